package physics

import (
	"github.com/zeusync/sophysics/internal/core/sim"
)

// ForceSource is the force capability. ExertForce runs once per step in the
// force phase with the RigidBody of the component's object. It must only read
// state settled by the transform sync.
type ForceSource interface {
	ExertForce(rb *RigidBody) error
}

func init() {
	sim.RegisterCapability[ForceSource](bindForceSource)
	sim.RegisterCapability[CollisionObserver](bindCollisionObserver)
}

func bindForceSource(c sim.Component) error {
	src := c.(ForceSource)
	rb, err := BodyOf(c)
	if err != nil {
		return err
	}
	return sim.Listen(c, func(ExertForcesEvent) error {
		if rb.IsDestroyed() {
			return nil
		}
		return src.ExertForce(rb)
	})
}

func bindCollisionObserver(c sim.Component) error {
	obs := c.(CollisionObserver)
	rb, err := BodyOf(c)
	if err != nil {
		return err
	}
	if err := rb.AttachCollisionObserver(obs); err != nil {
		return err
	}
	sim.OnDestroy(c, func() {
		_ = rb.DetachCollisionObserver(obs)
	})
	return nil
}
