package physics

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// ExertForcesEvent is raised after every body was synced from its transform
// and before the backend steps. Force sources apply their forces here.
type ExertForcesEvent struct {
	Step uint64
	DT   float64
}

// PostPhysicsEvent is raised once per step after every transform holds the
// integrated position of that step. Listeners may still adjust bodies, e.g.
// to move them into another reference frame.
type PostPhysicsEvent struct {
	Step uint64
	DT   float64
}

// SettledEvent follows PostPhysicsEvent once all its listeners ran. Positions
// are final for the step; listeners only observe.
type SettledEvent struct {
	Step uint64
	DT   float64
}

// PhysicsManager owns the backend space and runs the physics step protocol
// on every AdvanceEvent for the rigid bodies registered with it.
type PhysicsManager struct {
	sim.Manager[*RigidBody]

	space      *cp.Space
	dispatcher *dispatcher
	dt         float64
	elapsed    float64
	log        log.Log
}

type Option func(*PhysicsManager)

// WithStep sets the time step used when the environment has no TimeSettings.
func WithStep(dt float64) Option {
	return func(m *PhysicsManager) { m.dt = dt }
}

// WithGravity sets a uniform gravity vector on the space.
func WithGravity(g geom.Vec2) Option {
	return func(m *PhysicsManager) { m.space.SetGravity(g.CP()) }
}

// WithIterations sets the solver iteration count.
func WithIterations(n uint) Option {
	return func(m *PhysicsManager) {
		if n > 0 {
			m.space.Iterations = n
		}
	}
}

func NewPhysicsManager(opts ...Option) *PhysicsManager {
	m := &PhysicsManager{
		space:      cp.NewSpace(),
		dispatcher: &dispatcher{log: log.NewNop()},
		dt:         sim.DefaultDT,
		log:        log.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dispatcher.install(m.space)
	return m
}

func (m *PhysicsManager) Setup() error {
	if env := m.Environment(); env != nil {
		m.log = env.Logger().With(log.String("component", "physics"))
		m.dispatcher.log = m.log
	}
	return sim.Listen(m, func(e sim.AdvanceEvent) error {
		return m.Step(e.Step)
	})
}

func (m *PhysicsManager) Teardown() {}

// Space returns the backend space. Bodies must only be added through RigidBody.
func (m *PhysicsManager) Space() *cp.Space { return m.space }

// DT returns the step in use: the environment's TimeSettings when present,
// otherwise the manager's own step.
func (m *PhysicsManager) DT() float64 {
	if env := m.Environment(); env != nil {
		if ts, ok := sim.TryGet[*sim.TimeSettings](env); ok {
			return ts.DT
		}
	}
	return m.dt
}

// Elapsed returns the simulated time integrated so far.
func (m *PhysicsManager) Elapsed() float64 { return m.elapsed }

// Bodies returns the registered rigid bodies.
func (m *PhysicsManager) Bodies() []*RigidBody { return m.Managed() }

// Step runs one physics step. Each phase completes for every body before the
// next one starts. Force errors are reported but do not abort the step.
func (m *PhysicsManager) Step(step uint64) error {
	dt := m.DT()

	for _, rb := range m.Managed() {
		rb.SyncFromTransform()
	}

	var errs error
	if err := sim.Raise(m, ExertForcesEvent{Step: step, DT: dt}); err != nil {
		errs = fmt.Errorf("exert forces: %w", err)
	}

	m.space.Step(dt)
	m.elapsed += dt

	for _, rb := range m.Managed() {
		rb.SyncToTransform()
	}

	if err := sim.Raise(m, PostPhysicsEvent{Step: step, DT: dt}); err != nil {
		errs = errors.Join(errs, fmt.Errorf("post physics: %w", err))
	}
	if err := sim.Raise(m, SettledEvent{Step: step, DT: dt}); err != nil {
		errs = errors.Join(errs, fmt.Errorf("settled: %w", err))
	}
	if errs != nil {
		m.log.Warn("physics step reported errors", log.Uint64("step", step), log.Error(errs))
	}
	return errs
}
