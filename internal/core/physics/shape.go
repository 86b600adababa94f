package physics

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/zeusync/sophysics/internal/core/geom"
)

// bodyCollisionType is set on every shape so the dispatcher's handler
// receives all body-body contacts.
const bodyCollisionType cp.CollisionType = 1

type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeBox
	ShapeSegment
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	case ShapeSegment:
		return "segment"
	default:
		return "unknown"
	}
}

// Shape describes one piece of collision geometry of a RigidBody together
// with its mass and surface properties. Geometry is in body-local units.
type Shape struct {
	Kind ShapeKind

	// Radius of a circle, or the corner/end rounding of a box or segment.
	Radius float64
	// Offset of a circle's center from the body origin.
	Offset geom.Vec2
	Width  float64
	Height float64
	// A and B are the segment end points.
	A, B geom.Vec2

	Mass       float64
	Elasticity float64
	Friction   float64
}

var (
	ErrInvalidShape = errors.New("physics: invalid shape")
	ErrInvalidMass  = errors.New("physics: mass must be positive and finite")
)

func Circle(radius, mass float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius, Mass: mass}
}

func Box(width, height, mass float64) Shape {
	return Shape{Kind: ShapeBox, Width: width, Height: height, Mass: mass}
}

func Segment(a, b geom.Vec2, radius, mass float64) Shape {
	return Shape{Kind: ShapeSegment, A: a, B: b, Radius: radius, Mass: mass}
}

// Validate reports non-finite or out of range values.
func (s Shape) Validate() error {
	var errs []error
	check := func(name string, v float64, positive bool) {
		switch {
		case !geom.IsFinite(v):
			errs = append(errs, fmt.Errorf("%w: %s %s is not finite", ErrInvalidShape, s.Kind, name))
		case positive && v <= 0:
			errs = append(errs, fmt.Errorf("%w: %s %s must be positive, got %v", ErrInvalidShape, s.Kind, name, v))
		case v < 0:
			errs = append(errs, fmt.Errorf("%w: %s %s must not be negative, got %v", ErrInvalidShape, s.Kind, name, v))
		}
	}
	switch s.Kind {
	case ShapeCircle:
		check("radius", s.Radius, true)
		if !s.Offset.IsFinite() {
			errs = append(errs, fmt.Errorf("%w: circle offset is not finite", ErrInvalidShape))
		}
	case ShapeBox:
		check("width", s.Width, true)
		check("height", s.Height, true)
		check("radius", s.Radius, false)
	case ShapeSegment:
		check("radius", s.Radius, false)
		if !s.A.IsFinite() || !s.B.IsFinite() {
			errs = append(errs, fmt.Errorf("%w: segment end points are not finite", ErrInvalidShape))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown kind %d", ErrInvalidShape, s.Kind))
	}
	check("mass", s.Mass, false)
	check("elasticity", s.Elasticity, false)
	check("friction", s.Friction, false)
	return errors.Join(errs...)
}

// moment is the shape's moment of inertia about the body origin.
func (s Shape) moment() float64 {
	switch s.Kind {
	case ShapeCircle:
		return cp.MomentForCircle(s.Mass, 0, s.Radius, s.Offset.CP())
	case ShapeBox:
		return cp.MomentForBox(s.Mass, s.Width, s.Height)
	case ShapeSegment:
		return cp.MomentForSegment(s.Mass, s.A.CP(), s.B.CP(), s.Radius)
	}
	return 0
}

func (s Shape) build(body *cp.Body) *cp.Shape {
	var shape *cp.Shape
	switch s.Kind {
	case ShapeCircle:
		shape = cp.NewCircle(body, s.Radius, s.Offset.CP())
	case ShapeBox:
		shape = cp.NewBox(body, s.Width, s.Height, s.Radius)
	case ShapeSegment:
		shape = cp.NewSegment(body, s.A.CP(), s.B.CP(), s.Radius)
	}
	shape.SetElasticity(s.Elasticity)
	shape.SetFriction(s.Friction)
	shape.SetCollisionType(bodyCollisionType)
	return shape
}
