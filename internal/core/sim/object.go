package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/sophysics/internal/core/geom"
)

// SimObject is one simulation entity: a container of object-level components
// that always holds exactly one Transform.
type SimObject struct {
	Container

	id        uuid.UUID
	name      string
	transform *Transform
	parent    *Environment

	destroying bool
	destroyed  bool
}

// NewSimObject builds an object from components. A Transform at the origin is
// attached when none is supplied; supplying two is an error.
func NewSimObject(name string, components ...Component) (*SimObject, error) {
	o := &SimObject{id: uuid.New(), name: name}
	o.Container.init(o, nil)
	for _, c := range components {
		if err := o.Attach(c); err != nil {
			return nil, fmt.Errorf("new sim object %q: %w", name, err)
		}
	}
	if o.transform == nil {
		if err := o.Attach(NewTransform(geom.Vec2{}, 0)); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *SimObject) ID() uuid.UUID { return o.id }

func (o *SimObject) Name() string { return o.name }

func (o *SimObject) SetName(name string) { o.name = name }

func (o *SimObject) Transform() *Transform { return o.transform }

// Environment returns the owning environment, or nil when unattached or destroyed.
func (o *SimObject) Environment() *Environment { return o.parent }

func (o *SimObject) IsDestroyed() bool { return o.destroyed }

// DestroyAfterStep schedules the object for destruction once the current
// physics step has completed.
func (o *SimObject) DestroyAfterStep() error {
	if o.parent == nil {
		return ErrNotInEnvironment
	}
	return o.parent.DestroyAfterStep(o)
}

// Destroy destroys every component, the transform last, then detaches the
// object from its environment. Prefer DestroyAfterStep from inside a step.
func (o *SimObject) Destroy() error {
	if o.destroyed || o.destroying {
		return nil
	}
	o.destroying = true

	var errs error
	comps := o.components
	for _, c := range slices.Backward(slices.Clone(comps)) {
		if c == Component(o.transform) {
			continue
		}
		errs = errors.Join(errs, destroyComponent(c))
	}
	// the transform pointer is kept so late readers see the final position
	if o.transform != nil {
		errs = errors.Join(errs, destroyComponent(o.transform))
	}

	if o.parent != nil {
		o.parent.removeObject(o)
	}
	o.parent = nil
	o.destroyed = true
	o.destroying = false
	return errs
}
