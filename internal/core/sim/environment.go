package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/sophysics/internal/core/events/bus"
	"github.com/zeusync/sophysics/internal/core/observability/log"
)

// Environment is the simulation world: a container of environment components,
// the set of live SimObjects and the event system they communicate through.
//
// The step loop is Advance (physics, then deferred destruction), Update and
// Render. Each call runs to completion before returning.
type Environment struct {
	Container

	events  *bus.EventSystem
	log     log.Log
	objects []*SimObject
	byID    map[uuid.UUID]*SimObject

	pending      map[*SimObject]struct{}
	pendingOrder []*SimObject

	steps  uint64
	frames uint64

	live      bool
	destroyed bool
}

type Option func(*Environment)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(l log.Log) Option {
	return func(e *Environment) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEnvironment creates an environment that is not yet set up.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		events:  bus.New(),
		log:     log.NewNop(),
		byID:    make(map[uuid.UUID]*SimObject),
		pending: make(map[*SimObject]struct{}),
	}
	e.Container.init(nil, e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the environment's event system.
func (e *Environment) Events() *bus.EventSystem { return e.events }

func (e *Environment) Logger() log.Log { return e.log }

func (e *Environment) IsSetUp() bool { return e.live }

func (e *Environment) IsDestroyed() bool { return e.destroyed }

// Steps returns the number of completed Advance calls.
func (e *Environment) Steps() uint64 { return e.steps }

// Setup makes the environment live. Environment components are set up first,
// then the components of every object already added. Components whose setup
// fails are destroyed; the failures are joined and returned.
func (e *Environment) Setup() error {
	if e.destroyed {
		return ErrEnvironmentDestroyed
	}
	if e.live {
		return ErrAlreadySetUp
	}
	e.live = true

	var errs error
	for _, c := range e.Components() {
		errs = errors.Join(errs, setupComponent(c))
	}
	for _, o := range slices.Clone(e.objects) {
		errs = errors.Join(errs, e.setupObject(o))
	}
	e.log.Debug("environment set up",
		log.Int("components", e.Len()),
		log.Int("objects", len(e.objects)))
	return errs
}

func (e *Environment) setupObject(o *SimObject) error {
	var errs error
	for _, c := range o.Components() {
		errs = errors.Join(errs, setupComponent(c))
	}
	if errs != nil {
		e.log.Warn("object setup failed", log.String("object", o.name), log.Error(errs))
	}
	return errs
}

// AddObject attaches o. When the environment is live, o's components are set
// up immediately and ObjectAddedEvent is raised.
func (e *Environment) AddObject(o *SimObject) error {
	switch {
	case o == nil:
		return ErrNilObject
	case e.destroyed:
		return ErrEnvironmentDestroyed
	case o.destroyed:
		return ErrObjectDestroyed
	case o.parent != nil:
		return ErrObjectAttached
	}
	o.parent = e
	e.objects = append(e.objects, o)
	e.byID[o.id] = o

	if !e.live {
		return nil
	}
	err := e.setupObject(o)
	return errors.Join(err, e.events.Raise(ObjectAddedEvent{Object: o}))
}

// NewObject is a shorthand for NewSimObject followed by AddObject.
func (e *Environment) NewObject(name string, components ...Component) (*SimObject, error) {
	o, err := NewSimObject(name, components...)
	if err != nil {
		return nil, err
	}
	if err := e.AddObject(o); err != nil {
		return o, err
	}
	return o, nil
}

func (e *Environment) removeObject(o *SimObject) {
	if i := slices.Index(e.objects, o); i >= 0 {
		e.objects = slices.Delete(e.objects, i, i+1)
	}
	delete(e.byID, o.id)
	if _, ok := e.pending[o]; ok {
		delete(e.pending, o)
		if i := slices.Index(e.pendingOrder, o); i >= 0 {
			e.pendingOrder = slices.Delete(e.pendingOrder, i, i+1)
		}
	}
	if e.live && !e.destroyed {
		if err := e.events.Raise(ObjectDestroyedEvent{Object: o}); err != nil {
			e.log.Warn("object destroyed listener failed", log.String("object", o.name), log.Error(err))
		}
	}
}

// Objects returns a snapshot of the live objects in insertion order.
func (e *Environment) Objects() []*SimObject {
	return slices.Clone(e.objects)
}

// ObjectCount returns the number of live objects.
func (e *Environment) ObjectCount() int { return len(e.objects) }

// Object looks an object up by id.
func (e *Environment) Object(id uuid.UUID) (*SimObject, bool) {
	o, ok := e.byID[id]
	return o, ok
}

// Query returns the objects holding components for every tag.
func (e *Environment) Query(tags ...Tag) []*SimObject {
	var out []*SimObject
	for _, o := range e.objects {
		if o.HasTags(tags...) {
			out = append(out, o)
		}
	}
	return out
}

// DestroyAfterStep schedules o for destruction at the end of the current or
// next Advance. Scheduling the same object repeatedly is idempotent.
func (e *Environment) DestroyAfterStep(o *SimObject) error {
	if o == nil {
		return ErrNilObject
	}
	if o.parent != e {
		return ErrNotInEnvironment
	}
	if _, ok := e.pending[o]; ok {
		return nil
	}
	e.pending[o] = struct{}{}
	e.pendingOrder = append(e.pendingOrder, o)
	return nil
}

// IsScheduledForDestruction reports whether o is waiting for deferred destruction.
func (e *Environment) IsScheduledForDestruction(o *SimObject) bool {
	_, ok := e.pending[o]
	return ok
}

// Advance runs one physics step by raising AdvanceEvent, then destroys every
// object scheduled with DestroyAfterStep.
func (e *Environment) Advance() error {
	if err := e.checkRunnable(); err != nil {
		return err
	}
	err := e.events.Raise(AdvanceEvent{Step: e.steps})
	e.steps++
	if derr := e.resolveDestruction(); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil {
		return fmt.Errorf("advance step %d: %w", e.steps-1, err)
	}
	return nil
}

// Update raises UpdateEvent for per-frame, non-physics logic.
func (e *Environment) Update() error {
	if err := e.checkRunnable(); err != nil {
		return err
	}
	return e.events.Raise(UpdateEvent{Frame: e.frames})
}

// Render raises RenderEvent and counts the frame.
func (e *Environment) Render() error {
	if err := e.checkRunnable(); err != nil {
		return err
	}
	err := e.events.Raise(RenderEvent{Frame: e.frames})
	e.frames++
	return err
}

func (e *Environment) checkRunnable() error {
	if e.destroyed {
		return ErrEnvironmentDestroyed
	}
	if !e.live {
		return ErrNotSetUp
	}
	return nil
}

func (e *Environment) resolveDestruction() error {
	var errs error
	// teardown code may schedule further objects
	for len(e.pendingOrder) > 0 {
		batch := e.pendingOrder
		e.pendingOrder = nil
		for _, o := range batch {
			delete(e.pending, o)
			if o.destroyed {
				continue
			}
			e.log.Debug("destroying scheduled object", log.String("object", o.name))
			errs = errors.Join(errs, o.Destroy())
		}
	}
	return errs
}

// Destroy tears down every object, then every environment component in
// reverse attach order, and finally clears the event system.
func (e *Environment) Destroy() error {
	if e.destroyed {
		return nil
	}
	var errs error
	for _, o := range slices.Backward(slices.Clone(e.objects)) {
		errs = errors.Join(errs, o.Destroy())
	}
	e.destroyed = true
	for _, c := range slices.Backward(e.Components()) {
		errs = errors.Join(errs, destroyComponent(c))
	}
	e.pending = make(map[*SimObject]struct{})
	e.pendingOrder = nil
	e.events.Clear()
	e.live = false
	e.log.Debug("environment destroyed")
	return errs
}
