package render

import (
	"errors"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

var ErrInvalidTrail = errors.New("render: trail vertex distance must be positive and max points at least 2")

// TrailResetEvent clears every trail.
type TrailResetEvent struct{}

// Renderer carries the state shared by object renderers. Concrete renderers
// embed it and join the environment camera from their Setup with joinCamera.
type Renderer struct {
	sim.Base
	Color Color

	layer    int
	inactive bool
}

func (r *Renderer) Layer() int { return r.layer }

func (r *Renderer) IsActive() bool { return !r.inactive }

func (r *Renderer) SetActive(active bool) { r.inactive = !active }

// joinCamera registers r with the environment camera. Without a camera the
// renderer stays unregistered and is never drawn.
func joinCamera(r Renderable) error {
	_, _, err := sim.TryManage[*Camera](r)
	return err
}

// CircleRenderer draws the object as a circle of a world-space radius, never
// smaller than MinScreenRadius pixels.
type CircleRenderer struct {
	Renderer
	Radius          float64
	MinScreenRadius int
}

func NewCircleRenderer(radius float64, minScreenRadius int, color Color, layer int) *CircleRenderer {
	return &CircleRenderer{
		Renderer:        Renderer{Color: color, layer: layer},
		Radius:          radius,
		MinScreenRadius: minScreenRadius,
	}
}

func (r *CircleRenderer) Setup() error { return joinCamera(r) }

func (r *CircleRenderer) Teardown() {}

// ScreenRadius returns the radius in pixels under cam.
func (r *CircleRenderer) ScreenRadius(cam *Camera) float64 {
	return max(r.Radius*cam.PixelsPerUnit(), float64(r.MinScreenRadius))
}

func (r *CircleRenderer) Render(f *Frame, cam *Camera) {
	o := r.Object()
	if o == nil {
		return
	}
	f.DrawCircle(r.layer, cam.WorldToScreen(o.Transform().Position), r.ScreenRadius(cam), r.Color)
}

// TrailRenderer draws the path the object travelled. A point is recorded after
// a physics step whenever the object is at least VertexDistance away from the
// last recorded point; the oldest points are dropped past MaxPoints.
type TrailRenderer struct {
	Renderer
	Thickness float64

	vertexDist float64
	maxPoints  int
	points     []geom.Vec2
}

func NewTrailRenderer(vertexDistance float64, maxPoints int, thickness float64, color Color, layer int) (*TrailRenderer, error) {
	if !geom.IsFinite(vertexDistance) || vertexDistance <= 0 || maxPoints < 2 {
		return nil, ErrInvalidTrail
	}
	return &TrailRenderer{
		Renderer:   Renderer{Color: color, layer: layer},
		Thickness:  thickness,
		vertexDist: vertexDistance,
		maxPoints:  maxPoints,
	}, nil
}

func (r *TrailRenderer) Setup() error {
	if err := sim.Listen(r, func(physics.SettledEvent) error {
		r.record()
		return nil
	}); err != nil {
		return err
	}
	if err := sim.Listen(r, func(TrailResetEvent) error {
		r.Reset()
		return nil
	}); err != nil {
		return err
	}
	return joinCamera(r)
}

func (r *TrailRenderer) Teardown() { r.points = nil }

func (r *TrailRenderer) VertexDistance() float64 { return r.vertexDist }

func (r *TrailRenderer) MaxPoints() int { return r.maxPoints }

// Points returns a copy of the recorded world-space points, oldest first.
func (r *TrailRenderer) Points() []geom.Vec2 {
	return append([]geom.Vec2(nil), r.points...)
}

func (r *TrailRenderer) Reset() { r.points = r.points[:0] }

func (r *TrailRenderer) record() {
	if !r.IsActive() {
		return
	}
	o := r.Object()
	if o == nil {
		return
	}
	pos := o.Transform().Position
	if n := len(r.points); n > 0 && r.points[n-1].DistSq(pos) < r.vertexDist*r.vertexDist {
		return
	}
	if len(r.points) == r.maxPoints {
		copy(r.points, r.points[1:])
		r.points = r.points[:len(r.points)-1]
	}
	r.points = append(r.points, pos)
}

func (r *TrailRenderer) Render(f *Frame, cam *Camera) {
	o := r.Object()
	if o == nil || len(r.points) == 0 {
		return
	}
	line := make([]geom.Vec2, 0, len(r.points)+1)
	for _, p := range r.points {
		line = append(line, cam.WorldToScreen(p))
	}
	line = append(line, cam.WorldToScreen(o.Transform().Position))
	f.DrawPolyline(r.layer, line, r.Thickness, r.Color)
}
