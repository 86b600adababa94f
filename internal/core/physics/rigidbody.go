package physics

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jakecoffman/cp"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/sim"
)

type BodyType uint8

const (
	Dynamic BodyType = iota
	Kinematic
	Static
)

var (
	ErrNoRigidBody      = errors.New("physics: object has no rigid body")
	ErrObserverAttached = errors.New("physics: collision observer is already attached")
	ErrObserverNotFound = errors.New("physics: collision observer is not attached")
	ErrShapeNotFound    = errors.New("physics: shape does not belong to the rigid body")
)

// RigidBody correlates its object's Transform with a backend body and its
// shapes. The backend body joins the PhysicsManager's space once, at setup,
// and leaves it once, at destroy.
type RigidBody struct {
	sim.Base

	kind      BodyType
	body      *cp.Body
	specs     []Shape
	shapes    []*cp.Shape
	observers []CollisionObserver

	manager   *PhysicsManager
	transform *sim.Transform
	inSpace   bool
}

// NewRigidBody builds a dynamic body from shapes. Without shapes the body
// gets a unit circle of mass 1 and elasticity 0.5.
func NewRigidBody(shapes ...Shape) (*RigidBody, error) {
	return newRigidBody(Dynamic, shapes)
}

// NewStaticRigidBody builds an immovable body, e.g. for borders.
func NewStaticRigidBody(shapes ...Shape) (*RigidBody, error) {
	return newRigidBody(Static, shapes)
}

// NewKinematicRigidBody builds a body moved only by its velocity.
func NewKinematicRigidBody(shapes ...Shape) (*RigidBody, error) {
	return newRigidBody(Kinematic, shapes)
}

func newRigidBody(kind BodyType, shapes []Shape) (*RigidBody, error) {
	if len(shapes) == 0 {
		def := Circle(1, 1)
		def.Elasticity = 0.5
		shapes = []Shape{def}
	}
	var errs error
	for _, s := range shapes {
		errs = errors.Join(errs, s.Validate())
	}
	if errs != nil {
		return nil, errs
	}

	rb := &RigidBody{kind: kind}
	switch kind {
	case Static:
		rb.body = cp.NewStaticBody()
	case Kinematic:
		rb.body = cp.NewKinematicBody()
	default:
		mass, moment := massOf(shapes)
		if mass <= 0 || !geom.IsFinite(mass) {
			return nil, fmt.Errorf("%w: total shape mass %v", ErrInvalidMass, mass)
		}
		rb.body = cp.NewBody(mass, moment)
	}
	for _, s := range shapes {
		rb.specs = append(rb.specs, s)
		rb.shapes = append(rb.shapes, s.build(rb.body))
	}
	return rb, nil
}

func massOf(shapes []Shape) (mass, moment float64) {
	for _, s := range shapes {
		mass += s.Mass
		moment += s.moment()
	}
	return mass, moment
}

func (rb *RigidBody) Setup() error {
	o := rb.Object()
	if o == nil {
		return sim.ErrNoObject
	}
	m, err := sim.Manage[*PhysicsManager](rb)
	if err != nil {
		return fmt.Errorf("rigid body %q: %w", o.Name(), err)
	}
	rb.manager = m
	rb.transform = o.Transform()
	rb.body.UserData = rb

	rb.body.SetAngle(rb.transform.Rotation)
	rb.body.SetPosition(rb.transform.Position.CP())
	m.space.AddBody(rb.body)
	for _, s := range rb.shapes {
		m.space.AddShape(s)
	}
	rb.inSpace = true
	return nil
}

func (rb *RigidBody) Teardown() {
	if rb.inSpace {
		space := rb.manager.space
		for _, s := range rb.shapes {
			space.RemoveShape(s)
		}
		space.RemoveBody(rb.body)
		rb.inSpace = false
	}
	rb.body.UserData = nil
	rb.observers = nil
	rb.manager = nil
	rb.transform = nil
}

// SyncFromTransform copies the transform into the backend body and re-indexes
// its shapes, so transforms edited between steps take effect.
func (rb *RigidBody) SyncFromTransform() {
	if rb.transform == nil {
		return
	}
	pos := rb.transform.Position.CP()
	moved := pos != rb.body.Position() || rb.transform.Rotation != rb.body.Angle()
	rb.body.SetAngle(rb.transform.Rotation)
	rb.body.SetPosition(pos)
	if moved && rb.inSpace && rb.kind != Dynamic {
		rb.reindex()
		return
	}
	for _, s := range rb.shapes {
		s.CacheBB()
	}
}

// reindex moves the shapes to their new place in the space's spatial index.
// The space only rebuilds the index of dynamic shapes while stepping, and cp
// exposes no reindex call, so the shapes are removed and added again.
func (rb *RigidBody) reindex() {
	space := rb.manager.space
	for _, s := range rb.shapes {
		space.RemoveShape(s)
		space.AddShape(s)
	}
}

// SyncToTransform copies the backend body's position and angle back into the transform.
func (rb *RigidBody) SyncToTransform() {
	if rb.transform == nil {
		return
	}
	rb.transform.Position = geom.FromCP(rb.body.Position())
	rb.transform.Rotation = rb.body.Angle()
}

func (rb *RigidBody) Type() BodyType { return rb.kind }

// Body returns the backend body.
func (rb *RigidBody) Body() *cp.Body { return rb.body }

// Shapes returns the shape descriptions in attach order.
func (rb *RigidBody) Shapes() []Shape { return slices.Clone(rb.specs) }

func (rb *RigidBody) Mass() float64 { return rb.body.Mass() }

// SetMass changes the mass and scales the moment of inertia with it, as if
// every shape kept its geometry and density changed uniformly.
func (rb *RigidBody) SetMass(mass float64) error {
	if mass <= 0 || !geom.IsFinite(mass) {
		return fmt.Errorf("%w: %v", ErrInvalidMass, mass)
	}
	if rb.kind != Dynamic {
		return fmt.Errorf("%w: only dynamic bodies have a mass", ErrInvalidMass)
	}
	old := rb.body.Mass()
	scale := mass / old
	rb.body.SetMoment(rb.body.Moment() * scale)
	rb.body.SetMass(mass)
	for i := range rb.specs {
		rb.specs[i].Mass *= scale
	}
	return nil
}

func (rb *RigidBody) Moment() float64 { return rb.body.Moment() }

func (rb *RigidBody) Velocity() geom.Vec2 { return geom.FromCP(rb.body.Velocity()) }

func (rb *RigidBody) SetVelocity(v geom.Vec2) { rb.body.SetVelocityVector(v.CP()) }

func (rb *RigidBody) AngularVelocity() float64 { return rb.body.AngularVelocity() }

func (rb *RigidBody) SetAngularVelocity(w float64) { rb.body.SetAngularVelocity(w) }

// Position is the backend body's position. Between steps it equals the
// transform's position.
func (rb *RigidBody) Position() geom.Vec2 { return geom.FromCP(rb.body.Position()) }

// SetPosition moves both the backend body and the transform.
func (rb *RigidBody) SetPosition(p geom.Vec2) {
	rb.body.SetPosition(p.CP())
	if rb.transform != nil {
		rb.transform.Position = p
	}
}

// ApplyForce applies f, in world coordinates, at the center of mass. It is
// integrated by the next backend step.
func (rb *RigidBody) ApplyForce(f geom.Vec2) {
	rb.body.ApplyForceAtWorldPoint(f.CP(), rb.body.Position())
}

// ApplyForceAt applies f at a world point, producing torque.
func (rb *RigidBody) ApplyForceAt(f, point geom.Vec2) {
	rb.body.ApplyForceAtWorldPoint(f.CP(), point.CP())
}

// AttachShape adds a shape; a live body adds it to the space immediately.
func (rb *RigidBody) AttachShape(s Shape) error {
	if err := s.Validate(); err != nil {
		return err
	}
	shape := s.build(rb.body)
	rb.specs = append(rb.specs, s)
	rb.shapes = append(rb.shapes, shape)
	rb.recomputeMass()
	if rb.inSpace {
		rb.manager.space.AddShape(shape)
	}
	return nil
}

// RemoveShape removes the i-th shape.
func (rb *RigidBody) RemoveShape(i int) error {
	if i < 0 || i >= len(rb.shapes) {
		return fmt.Errorf("%w: index %d", ErrShapeNotFound, i)
	}
	if len(rb.shapes) == 1 && rb.kind == Dynamic {
		return fmt.Errorf("%w: a dynamic body needs at least one shape", ErrInvalidShape)
	}
	if rb.inSpace {
		rb.manager.space.RemoveShape(rb.shapes[i])
	}
	rb.specs = slices.Delete(rb.specs, i, i+1)
	rb.shapes = slices.Delete(rb.shapes, i, i+1)
	rb.recomputeMass()
	return nil
}

func (rb *RigidBody) recomputeMass() {
	if rb.kind != Dynamic {
		return
	}
	mass, moment := massOf(rb.specs)
	if mass > 0 {
		rb.body.SetMass(mass)
		rb.body.SetMoment(moment)
	}
}

// AttachCollisionObserver adds o to the observers notified on every contact.
func (rb *RigidBody) AttachCollisionObserver(o CollisionObserver) error {
	if o == nil {
		return sim.ErrNilComponent
	}
	if slices.Contains(rb.observers, o) {
		return ErrObserverAttached
	}
	rb.observers = append(rb.observers, o)
	return nil
}

func (rb *RigidBody) DetachCollisionObserver(o CollisionObserver) error {
	i := slices.Index(rb.observers, o)
	if i < 0 {
		return ErrObserverNotFound
	}
	rb.observers = slices.Delete(slices.Clone(rb.observers), i, i+1)
	return nil
}

// CollisionObservers returns a snapshot of the attached observers.
func (rb *RigidBody) CollisionObservers() []CollisionObserver {
	return slices.Clone(rb.observers)
}

// notify calls every observer and folds their verdicts. A destroyed body's
// observers are not called.
func (rb *RigidBody) notify(phase Phase, other *RigidBody, contact Contact) Verdict {
	if rb.IsDestroyed() {
		return Abstain
	}
	verdict := Abstain
	for _, o := range rb.observers {
		verdict = verdict.And(o.OnCollision(phase, other, contact))
	}
	return verdict
}

// BodyOf returns the RigidBody of the object owning c.
func BodyOf(c sim.Component) (*RigidBody, error) {
	o := sim.ObjectOf(c)
	if o == nil {
		return nil, sim.ErrNoObject
	}
	rb, ok := sim.TryGet[*RigidBody](o)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRigidBody, o.Name())
	}
	return rb, nil
}
