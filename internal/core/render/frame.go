package render

import "github.com/zeusync/sophysics/internal/core/geom"

// CirclePrimitive is a filled circle in screen space.
type CirclePrimitive struct {
	Layer  int       `json:"layer"`
	Center geom.Vec2 `json:"center"`
	Radius float64   `json:"radius"`
	Color  Color     `json:"color"`
}

// PolylinePrimitive is an open line strip in screen space.
type PolylinePrimitive struct {
	Layer  int         `json:"layer"`
	Points []geom.Vec2 `json:"points"`
	Width  float64     `json:"width"`
	Color  Color       `json:"color"`
}

// Frame is a headless draw list produced by a Camera. Primitives are stored
// in submission order, which is ascending layer order.
type Frame struct {
	Number     uint64              `json:"frame"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Background Color               `json:"background"`
	Circles    []CirclePrimitive   `json:"circles"`
	Polylines  []PolylinePrimitive `json:"polylines"`
}

func (f *Frame) DrawCircle(layer int, center geom.Vec2, radius float64, color Color) {
	f.Circles = append(f.Circles, CirclePrimitive{Layer: layer, Center: center, Radius: radius, Color: color})
}

func (f *Frame) DrawPolyline(layer int, points []geom.Vec2, width float64, color Color) {
	if len(points) < 2 {
		return
	}
	f.Polylines = append(f.Polylines, PolylinePrimitive{Layer: layer, Points: points, Width: width, Color: color})
}

// Empty reports whether nothing was drawn.
func (f *Frame) Empty() bool { return len(f.Circles) == 0 && len(f.Polylines) == 0 }

// FrameSink receives every frame a camera publishes. Publish is called on the
// simulation goroutine and must not retain f past the call unless it copies it.
type FrameSink interface {
	Publish(f *Frame) error
}

// SinkFunc adapts a function to FrameSink.
type SinkFunc func(f *Frame) error

func (fn SinkFunc) Publish(f *Frame) error { return fn(f) }
