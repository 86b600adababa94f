package behaviors

import (
	"fmt"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// ConstantAcceleration accelerates its body by a fixed amount, e.g. surface gravity.
type ConstantAcceleration struct {
	sim.Base
	Acceleration geom.Vec2
}

func NewConstantAcceleration(a geom.Vec2) *ConstantAcceleration {
	return &ConstantAcceleration{Acceleration: a}
}

// ExertForce applies F = m·a.
func (c *ConstantAcceleration) ExertForce(rb *physics.RigidBody) error {
	rb.ApplyForce(c.Acceleration.Scale(rb.Mass()))
	return nil
}

// DefaultGravitationalConstant is the attraction coefficient used by scenes
// that do not set one.
const DefaultGravitationalConstant = 1.0

// AttractionManager is the registry of attractors, the bodies that generate
// a gravitational field.
type AttractionManager struct {
	sim.Manager[*Attraction]
	G float64
}

func NewAttractionManager(g float64) *AttractionManager {
	return &AttractionManager{G: g}
}

// Attractors returns the registered attractors.
func (m *AttractionManager) Attractors() []*Attraction { return m.Managed() }

// Attraction pulls its body towards every attractor by Newton's law of
// gravitation. When attractor is set the body also pulls the others.
type Attraction struct {
	sim.Base
	attractor bool

	body    *physics.RigidBody
	manager *AttractionManager
}

func NewAttraction(attractor bool) *Attraction {
	return &Attraction{attractor: attractor}
}

func (a *Attraction) IsAttractor() bool { return a.attractor }

func (a *Attraction) Setup() error {
	rb, err := physics.BodyOf(a)
	if err != nil {
		return err
	}
	a.body = rb
	if a.attractor {
		m, err := sim.Manage[*AttractionManager](a)
		if err != nil {
			return fmt.Errorf("attraction: %w", err)
		}
		a.manager = m
		return nil
	}
	m, err := sim.Get[*AttractionManager](a.Environment())
	if err != nil {
		return fmt.Errorf("attraction: %w", err)
	}
	a.manager = m
	return nil
}

func (a *Attraction) Teardown() {
	a.body = nil
	a.manager = nil
}

// ExertForce sums F = G·m1·m2/r² over every other attractor. Attractors at
// exactly the same position are skipped.
func (a *Attraction) ExertForce(rb *physics.RigidBody) error {
	self := a.Object().Transform().Position
	var total geom.Vec2
	for _, other := range a.manager.Attractors() {
		if other == a || other.body == nil {
			continue
		}
		pos := other.Object().Transform().Position
		if pos == self {
			continue
		}
		distSq := self.DistSq(pos)
		magnitude := a.manager.G * rb.Mass() * other.body.Mass() / distSq
		total = total.Add(pos.Sub(self).Normalize().Scale(magnitude))
	}
	rb.ApplyForce(total)
	return nil
}
