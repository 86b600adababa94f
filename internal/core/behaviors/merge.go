package behaviors

import (
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// MergeOnCollision merges two colliding bodies into one. The lighter body is
// scheduled for destruction; the heavier one takes the combined mass, the
// momentum weighted velocity and the mass weighted position. For equal masses
// the body notified first is the one destroyed.
type MergeOnCollision struct {
	sim.Base
}

func NewMergeOnCollision() *MergeOnCollision { return &MergeOnCollision{} }

func (m *MergeOnCollision) OnCollision(phase physics.Phase, other *physics.RigidBody, _ physics.Contact) physics.Verdict {
	if phase != physics.PhaseBegin {
		return physics.Abstain
	}
	env := m.Environment()
	self, err := physics.BodyOf(m)
	if err != nil || env == nil {
		return physics.Abstain
	}
	selfObj, otherObj := m.Object(), other.Object()
	if env.IsScheduledForDestruction(selfObj) {
		return physics.Veto
	}

	m1, m2 := self.Mass(), other.Mass()
	if m1 <= m2 && !env.IsScheduledForDestruction(otherObj) {
		if err := env.DestroyAfterStep(selfObj); err != nil {
			env.Logger().Warn("merge: cannot schedule destruction")
		}
		return physics.Veto
	}

	total := m1 + m2
	v := self.Velocity().Scale(m1).Add(other.Velocity().Scale(m2)).Scale(1 / total)
	p := self.Position().Scale(m1).Add(other.Position().Scale(m2)).Scale(1 / total)
	if err := self.SetMass(total); err != nil {
		return physics.Veto
	}
	self.SetVelocity(v)
	self.SetPosition(p)
	return physics.Veto
}
