package scene

import (
	"fmt"

	"github.com/zeusync/sophysics/internal/core/behaviors"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/render"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// Descriptor marks an object built from a scene body and keeps the parts of
// the body that have no other home, so the scene can be saved back.
type Descriptor struct {
	sim.Base
	ID string
}

// Style holds the presentation defaults shared by every celestial body.
type Style struct {
	TrailMaxPoints int
	TrailThickness float64
	TrailAlpha     uint8
	TrailLayer     int
}

func DefaultStyle() Style {
	return Style{
		TrailMaxPoints: 256,
		TrailThickness: 1,
		TrailAlpha:     128,
		TrailLayer:     0,
	}
}

// NewCelestialBody builds the object for one scene body: a circle rigid body
// that never bounces, gravity, merging, the reference frame and renderers.
// The trail is drawn unless disabled; its vertex distance defaults to the
// radius.
func NewCelestialBody(b Body, style Style) (*sim.SimObject, error) {
	p := b.Parameters
	shape := physics.Circle(p.Radius, p.Mass)
	shape.Elasticity = 0
	rb, err := physics.NewRigidBody(shape)
	if err != nil {
		return nil, fmt.Errorf("body %q: %w", b.ID, err)
	}
	rb.SetVelocity(p.InitialVelocity.Vec())

	components := []sim.Component{
		sim.NewTransform(p.InitialPosition.Vec(), 0),
		rb,
		&Descriptor{ID: b.ID},
		behaviors.NewAttraction(p.IsAttractor),
		behaviors.NewMergeOnCollision(),
		behaviors.NewReferenceFrame(),
		render.NewCircleRenderer(p.Radius, p.MinScreenRadius, p.Color, p.DrawLayer),
	}

	if p.DrawTrail == nil || *p.DrawTrail {
		dist := p.Radius
		if p.TrailVertexDistance != nil {
			dist = *p.TrailVertexDistance
		}
		trail, err := render.NewTrailRenderer(dist, style.TrailMaxPoints, style.TrailThickness,
			p.Color.WithAlpha(style.TrailAlpha), style.TrailLayer)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", b.ID, err)
		}
		components = append(components, trail)
	}

	o, err := sim.NewSimObject(p.Name, components...)
	if err != nil {
		return nil, fmt.Errorf("body %q: %w", b.ID, err)
	}
	return o, nil
}

// bodyOf is the inverse of NewCelestialBody. It reports false for objects
// that were not built from a scene body.
func bodyOf(o *sim.SimObject) (Body, bool) {
	d, ok := sim.TryGet[*Descriptor](o)
	if !ok {
		return Body{}, false
	}
	rb, ok := sim.TryGet[*physics.RigidBody](o)
	if !ok {
		return Body{}, false
	}
	p := Parameters{
		Name:            o.Name(),
		InitialPosition: PointOf(o.Transform().Position),
		InitialVelocity: PointOf(rb.Velocity()),
		Mass:            rb.Mass(),
	}
	if a, ok := sim.TryGet[*behaviors.Attraction](o); ok {
		p.IsAttractor = a.IsAttractor()
	}
	if c, ok := sim.TryGet[*render.CircleRenderer](o); ok {
		p.Radius = c.Radius
		p.MinScreenRadius = c.MinScreenRadius
		p.Color = c.Color
		p.DrawLayer = c.Layer()
	}
	if trail, ok := sim.TryGet[*render.TrailRenderer](o); ok {
		if trail.VertexDistance() != p.Radius {
			p.TrailVertexDistance = ptr(trail.VertexDistance())
		}
	} else {
		p.DrawTrail = ptr(false)
	}
	return Body{ID: d.ID, Parameters: p}, true
}
