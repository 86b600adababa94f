package physics

import (
	"github.com/jakecoffman/cp"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/observability/log"
)

// Phase is one of the four collision callbacks of the backend.
type Phase uint8

const (
	// PhaseBegin fires the first step two shapes touch. A veto ignores the
	// contact until the shapes separate.
	PhaseBegin Phase = iota
	// PhasePreSolve fires every step the shapes touch, before the solver.
	// A veto ignores the contact for this step.
	PhasePreSolve
	// PhasePostSolve fires after the solver; impulses are available.
	PhasePostSolve
	// PhaseSeparate fires when the shapes stop touching or one is removed.
	PhaseSeparate
)

func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhasePreSolve:
		return "pre-solve"
	case PhasePostSolve:
		return "post-solve"
	case PhaseSeparate:
		return "separate"
	default:
		return "unknown"
	}
}

// Verdict is an observer's answer for a collision. Only Veto stops a
// collision; Abstain and Allow both let it proceed.
type Verdict uint8

const (
	Abstain Verdict = iota
	Allow
	Veto
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Veto:
		return "veto"
	default:
		return "abstain"
	}
}

// And combines two verdicts: any Veto wins, then any Allow.
func (v Verdict) And(o Verdict) Verdict {
	switch {
	case v == Veto || o == Veto:
		return Veto
	case v == Allow || o == Allow:
		return Allow
	default:
		return Abstain
	}
}

// Proceed reports whether the collision should be processed.
func (v Verdict) Proceed() bool { return v != Veto }

type ContactPoint struct {
	// Self and Other are the contact positions on each body's surface, in world units.
	Self, Other geom.Vec2
	// Distance is the penetration depth; negative while overlapping.
	Distance float64
}

// Contact is the collision data as seen from one body. Normal points from
// this body towards the other one.
type Contact struct {
	Normal       geom.Vec2
	Points       []ContactPoint
	FirstContact bool
	// TotalImpulse is only meaningful in PhasePostSolve.
	TotalImpulse geom.Vec2

	arbiter *cp.Arbiter
}

// Arbiter exposes the backend arbiter for observers that need more than the
// translated data. It is only valid during the callback.
func (c Contact) Arbiter() *cp.Arbiter { return c.arbiter }

// CollisionObserver is the collision capability. Components implementing it
// are attached to their object's RigidBody at setup and detached on destroy.
// Observers that only care about some phases return Abstain for the others.
type CollisionObserver interface {
	OnCollision(phase Phase, other *RigidBody, contact Contact) Verdict
}

func contactFrom(arb *cp.Arbiter, phase Phase, swapped bool) Contact {
	set := arb.ContactPointSet()
	c := Contact{
		Normal:       geom.FromCP(set.Normal),
		FirstContact: arb.IsFirstContact(),
		arbiter:      arb,
	}
	if phase == PhasePostSolve {
		c.TotalImpulse = geom.FromCP(arb.TotalImpulse())
	}
	if set.Count > 0 {
		c.Points = make([]ContactPoint, set.Count)
	}
	for i := 0; i < set.Count; i++ {
		p := set.Points[i]
		c.Points[i] = ContactPoint{Self: geom.FromCP(p.PointA), Other: geom.FromCP(p.PointB), Distance: p.Distance}
		if swapped {
			c.Points[i].Self, c.Points[i].Other = c.Points[i].Other, c.Points[i].Self
		}
	}
	if swapped {
		c.Normal = c.Normal.Scale(-1)
		c.TotalImpulse = c.TotalImpulse.Scale(-1)
	}
	return c
}

// dispatcher translates backend callbacks into observer calls on both bodies.
type dispatcher struct {
	log log.Log
}

func (d *dispatcher) install(space *cp.Space) {
	h := space.NewCollisionHandler(bodyCollisionType, bodyCollisionType)
	h.BeginFunc = d.begin
	h.PreSolveFunc = d.preSolve
	h.PostSolveFunc = d.postSolve
	h.SeparateFunc = d.separate
}

func (d *dispatcher) resolve(arb *cp.Arbiter) (a, b *RigidBody, ok bool) {
	ba, bb := arb.Bodies()
	a, okA := ba.UserData.(*RigidBody)
	b, okB := bb.UserData.(*RigidBody)
	if !okA || !okB || a == nil || b == nil {
		d.log.Debug("collision with a body not owned by a rigid body")
		return nil, nil, false
	}
	return a, b, true
}

// dispatch notifies every observer on both sides; there is no short circuit.
func (d *dispatcher) dispatch(arb *cp.Arbiter, phase Phase) Verdict {
	a, b, ok := d.resolve(arb)
	if !ok {
		return Abstain
	}
	v := a.notify(phase, b, contactFrom(arb, phase, false))
	return v.And(b.notify(phase, a, contactFrom(arb, phase, true)))
}

func (d *dispatcher) begin(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	return d.dispatch(arb, PhaseBegin).Proceed()
}

func (d *dispatcher) preSolve(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	return d.dispatch(arb, PhasePreSolve).Proceed()
}

func (d *dispatcher) postSolve(arb *cp.Arbiter, _ *cp.Space, _ interface{}) {
	d.dispatch(arb, PhasePostSolve)
}

func (d *dispatcher) separate(arb *cp.Arbiter, _ *cp.Space, _ interface{}) {
	d.dispatch(arb, PhaseSeparate)
}
