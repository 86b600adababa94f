// Package scene loads, validates and saves celestial simulations.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/render"
)

var ErrInvalidScene = errors.New("scene: invalid scene")

// FieldError reports one invalid field. Validate joins every FieldError it
// finds, so callers see all problems of a file at once.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return fmt.Sprintf("scene: %s: %s", e.Field, e.Reason) }

func (e *FieldError) Is(target error) bool { return target == ErrInvalidScene }

// Point is a 2D vector stored as [x, y].
type Point [2]float64

func PointOf(v geom.Vec2) Point { return Point{v.X, v.Y} }

func (p Point) Vec() geom.Vec2 { return geom.V(p[0], p[1]) }

func (p *Point) UnmarshalJSON(data []byte) error {
	var xs []float64
	if err := json.Unmarshal(data, &xs); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xs) != 2 {
		return fmt.Errorf("point: want 2 elements, got %d", len(xs))
	}
	*p = Point{xs[0], xs[1]}
	return nil
}

// Scene is the file form of a simulation.
type Scene struct {
	OriginID       *string         `json:"origin_id,omitempty" yaml:"origin_id,omitempty"`
	TimeSettings   *TimeSettings   `json:"time_settings,omitempty" yaml:"time_settings,omitempty"`
	CameraSettings *CameraSettings `json:"camera_settings,omitempty" yaml:"camera_settings,omitempty"`
	Bodies         []Body          `json:"bodies" yaml:"bodies"`
}

type TimeSettings struct {
	DT            *float64 `json:"dt,omitempty" yaml:"dt,omitempty"`
	StepsPerFrame *int     `json:"steps_per_frame,omitempty" yaml:"steps_per_frame,omitempty"`
	Paused        *bool    `json:"paused,omitempty" yaml:"paused,omitempty"`
}

type CameraSettings struct {
	UnitsPerPixel *float64 `json:"units_per_pixel,omitempty" yaml:"units_per_pixel,omitempty"`
	Position      *Point   `json:"position,omitempty" yaml:"position,omitempty"`
}

type Body struct {
	ID         string     `json:"id" yaml:"id"`
	Parameters Parameters `json:"parameters" yaml:"parameters"`
}

type Parameters struct {
	Name                string       `json:"name" yaml:"name"`
	InitialPosition     Point        `json:"initial_position" yaml:"initial_position"`
	InitialVelocity     Point        `json:"initial_velocity" yaml:"initial_velocity"`
	Mass                float64      `json:"mass" yaml:"mass"`
	Radius              float64      `json:"radius" yaml:"radius"`
	IsAttractor         bool         `json:"is_attractor" yaml:"is_attractor"`
	MinScreenRadius     int          `json:"min_screen_radius" yaml:"min_screen_radius"`
	Color               render.Color `json:"color" yaml:"color"`
	DrawLayer           int          `json:"draw_layer" yaml:"draw_layer"`
	DrawTrail           *bool        `json:"draw_trail,omitempty" yaml:"draw_trail,omitempty"`
	TrailVertexDistance *float64     `json:"trail_vertex_distance,omitempty" yaml:"trail_vertex_distance,omitempty"`
}

const (
	MinDrawLayer = 1
	MaxDrawLayer = 3
)

// Validate checks every field and returns all failures joined, or nil.
func (s *Scene) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if ts := s.TimeSettings; ts != nil {
		if ts.DT != nil && (!geom.IsFinite(*ts.DT) || *ts.DT < 0) {
			fail("time_settings.dt", "must be a finite number >= 0, got %v", *ts.DT)
		}
		if ts.StepsPerFrame != nil && *ts.StepsPerFrame < 0 {
			fail("time_settings.steps_per_frame", "must be >= 0, got %d", *ts.StepsPerFrame)
		}
	}
	if cs := s.CameraSettings; cs != nil {
		if cs.UnitsPerPixel != nil && (!geom.IsFinite(*cs.UnitsPerPixel) || *cs.UnitsPerPixel <= 0) {
			fail("camera_settings.units_per_pixel", "must be a finite number > 0, got %v", *cs.UnitsPerPixel)
		}
		if cs.Position != nil && !cs.Position.Vec().IsFinite() {
			fail("camera_settings.position", "must be finite, got %v", *cs.Position)
		}
	}

	if s.Bodies == nil {
		fail("bodies", "missing")
	}
	for i, b := range s.Bodies {
		field := func(name string) string { return fmt.Sprintf("bodies[%d].parameters.%s", i, name) }
		p := b.Parameters
		if !p.InitialPosition.Vec().IsFinite() {
			fail(field("initial_position"), "must be finite, got %v", p.InitialPosition)
		}
		if !p.InitialVelocity.Vec().IsFinite() {
			fail(field("initial_velocity"), "must be finite, got %v", p.InitialVelocity)
		}
		if !geom.IsFinite(p.Mass) || p.Mass <= 0 {
			fail(field("mass"), "must be a finite number > 0, got %v", p.Mass)
		}
		if !geom.IsFinite(p.Radius) || p.Radius <= 0 {
			fail(field("radius"), "must be a finite number > 0, got %v", p.Radius)
		}
		if p.MinScreenRadius < 0 {
			fail(field("min_screen_radius"), "can't be negative, got %d", p.MinScreenRadius)
		}
		if p.DrawLayer < MinDrawLayer || p.DrawLayer > MaxDrawLayer {
			fail(field("draw_layer"), "must be between %d and %d, got %d", MinDrawLayer, MaxDrawLayer, p.DrawLayer)
		}
		if d := p.TrailVertexDistance; d != nil && (!geom.IsFinite(*d) || *d <= 0) {
			fail(field("trail_vertex_distance"), "must be a finite number > 0, got %v", *d)
		}
	}
	return errors.Join(errs...)
}

// OriginBody returns the index of the body carrying the origin id. It reports
// false unless exactly one body matches.
func (s *Scene) OriginBody() (int, bool) {
	if s.OriginID == nil {
		return -1, false
	}
	found := -1
	for i, b := range s.Bodies {
		if b.ID != *s.OriginID {
			continue
		}
		if found >= 0 {
			return -1, false
		}
		found = i
	}
	return found, found >= 0
}

// Clone returns a deep copy.
func (s *Scene) Clone() *Scene {
	out := &Scene{Bodies: slices.Clone(s.Bodies)}
	if s.OriginID != nil {
		out.OriginID = ptr(*s.OriginID)
	}
	if ts := s.TimeSettings; ts != nil {
		c := *ts
		if ts.DT != nil {
			c.DT = ptr(*ts.DT)
		}
		if ts.StepsPerFrame != nil {
			c.StepsPerFrame = ptr(*ts.StepsPerFrame)
		}
		if ts.Paused != nil {
			c.Paused = ptr(*ts.Paused)
		}
		out.TimeSettings = &c
	}
	if cs := s.CameraSettings; cs != nil {
		c := *cs
		if cs.UnitsPerPixel != nil {
			c.UnitsPerPixel = ptr(*cs.UnitsPerPixel)
		}
		if cs.Position != nil {
			c.Position = ptr(*cs.Position)
		}
		out.CameraSettings = &c
	}
	for i, b := range out.Bodies {
		if b.Parameters.DrawTrail != nil {
			out.Bodies[i].Parameters.DrawTrail = ptr(*b.Parameters.DrawTrail)
		}
		if b.Parameters.TrailVertexDistance != nil {
			out.Bodies[i].Parameters.TrailVertexDistance = ptr(*b.Parameters.TrailVertexDistance)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
