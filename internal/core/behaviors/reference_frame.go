package behaviors

import (
	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// OriginChangedEvent is raised when the reference frame origin changes. Origin
// is nil when the frame is reset to the world frame.
type OriginChangedEvent struct {
	Origin *physics.RigidBody
}

// ReferenceFrameManager re-centres every ReferenceFrame body on the origin
// body after each physics step, so the origin stays at rest at (0, 0).
type ReferenceFrameManager struct {
	sim.Manager[*ReferenceFrame]
	origin *physics.RigidBody
}

func NewReferenceFrameManager() *ReferenceFrameManager { return &ReferenceFrameManager{} }

func (m *ReferenceFrameManager) Setup() error {
	return sim.Listen(m, func(physics.PostPhysicsEvent) error {
		return m.recentre()
	})
}

func (m *ReferenceFrameManager) Teardown() { m.origin = nil }

// Origin returns the current origin body, or nil.
func (m *ReferenceFrameManager) Origin() *physics.RigidBody {
	if m.origin != nil && m.origin.IsDestroyed() {
		return nil
	}
	return m.origin
}

// SetOrigin makes rb the origin; nil resets to the world frame.
func (m *ReferenceFrameManager) SetOrigin(rb *physics.RigidBody) error {
	if rb == m.origin {
		return nil
	}
	m.origin = rb
	if !m.IsSetUp() {
		return nil
	}
	return sim.Raise(m, OriginChangedEvent{Origin: rb})
}

func (m *ReferenceFrameManager) recentre() error {
	if m.origin == nil {
		return nil
	}
	if m.origin.IsDestroyed() {
		return m.SetOrigin(nil)
	}
	pos := m.origin.Position()
	vel := m.origin.Velocity()
	if pos == (geom.Vec2{}) && vel == (geom.Vec2{}) {
		return nil
	}
	for _, f := range m.Managed() {
		if f.body == nil {
			continue
		}
		f.body.SetPosition(f.body.Position().Sub(pos))
		f.body.SetVelocity(f.body.Velocity().Sub(vel))
	}
	return nil
}

// ReferenceFrame marks a body as moving with the reference frame. A manager
// is attached to the environment on first use.
type ReferenceFrame struct {
	sim.Base
	body *physics.RigidBody
}

func NewReferenceFrame() *ReferenceFrame { return &ReferenceFrame{} }

func (f *ReferenceFrame) Setup() error {
	rb, err := physics.BodyOf(f)
	if err != nil {
		return err
	}
	f.body = rb
	env := f.Environment()
	if !sim.Has[*ReferenceFrameManager](env) {
		if err := env.Attach(NewReferenceFrameManager()); err != nil {
			return err
		}
	}
	_, err = sim.Manage[*ReferenceFrameManager](f)
	return err
}

func (f *ReferenceFrame) Teardown() { f.body = nil }
