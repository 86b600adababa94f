package render

import (
	"errors"
	"fmt"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/sim"
)

var (
	ErrInvalidUnitsPerPixel = errors.New("render: units per pixel must be a positive finite number")
	ErrInvalidViewport      = errors.New("render: viewport must be at least 1x1 pixels")
)

const (
	DefaultUnitsPerPixel = 1.0 / 80
	DefaultWidth         = 1280
	DefaultHeight        = 720
)

// CameraRenderEvent is raised once per rendered frame, before the camera
// walks its renderables. Listeners may draw into Frame.
type CameraRenderEvent struct {
	Camera *Camera
	Frame  *Frame
}

// Renderable is a component drawn by the camera. Lower layers are drawn first.
type Renderable interface {
	sim.Component
	Layer() int
	IsActive() bool
	Render(f *Frame, cam *Camera)
}

// Camera is an environment component that turns the scene into frames. It
// keeps its renderables ordered by layer and renders on every RenderEvent.
type Camera struct {
	sim.Manager[Renderable]

	// Position is the camera offset from the world origin in pixels, y up.
	Position   geom.Vec2
	Background Color

	width, height int
	unitsPerPixel float64
	sinks         []FrameSink
	last          *Frame
	log           log.Log
}

func NewCamera(width, height int, unitsPerPixel float64) (*Camera, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	c := &Camera{
		Background: Black,
		width:      width,
		height:     height,
		log:        log.NewNop(),
	}
	if err := c.SetUnitsPerPixel(unitsPerPixel); err != nil {
		return nil, err
	}
	c.SetOrder(func(a, b Renderable) bool { return a.Layer() < b.Layer() })
	return c, nil
}

func (c *Camera) Setup() error {
	if env := c.Environment(); env != nil {
		c.log = env.Logger().With(log.String("component", "camera"))
	}
	return sim.Listen(c, func(e sim.RenderEvent) error {
		_, err := c.RenderScene(e.Frame)
		return err
	})
}

func (c *Camera) Teardown() {
	c.sinks = nil
	c.last = nil
}

func (c *Camera) Size() (width, height int) { return c.width, c.height }

func (c *Camera) UnitsPerPixel() float64 { return c.unitsPerPixel }

func (c *Camera) PixelsPerUnit() float64 { return 1 / c.unitsPerPixel }

func (c *Camera) SetUnitsPerPixel(v float64) error {
	if !geom.IsFinite(v) || v <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidUnitsPerPixel, v)
	}
	c.unitsPerPixel = v
	return nil
}

// AddSink registers a receiver for published frames.
func (c *Camera) AddSink(s FrameSink) {
	if s != nil {
		c.sinks = append(c.sinks, s)
	}
}

// LastFrame returns the most recently rendered frame, or nil.
func (c *Camera) LastFrame() *Frame { return c.last }

// WorldToScreen maps a world position to pixels. Screen y grows downwards.
func (c *Camera) WorldToScreen(p geom.Vec2) geom.Vec2 {
	ppu := c.PixelsPerUnit()
	return geom.Vec2{
		X: p.X*ppu + float64(c.width)/2 - c.Position.X,
		Y: -(p.Y * ppu) + float64(c.height)/2 + c.Position.Y,
	}
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(p geom.Vec2) geom.Vec2 {
	return geom.Vec2{
		X: (p.X - float64(c.width)/2 + c.Position.X) * c.unitsPerPixel,
		Y: -(p.Y - float64(c.height)/2 - c.Position.Y) * c.unitsPerPixel,
	}
}

// RenderScene draws one frame and hands it to every sink. Sink errors are
// joined; the frame is still returned.
func (c *Camera) RenderScene(number uint64) (*Frame, error) {
	f := &Frame{
		Number:     number,
		Width:      c.width,
		Height:     c.height,
		Background: c.Background,
	}
	if err := sim.Raise(c, CameraRenderEvent{Camera: c, Frame: f}); err != nil {
		return f, fmt.Errorf("camera render event: %w", err)
	}
	for _, r := range c.Managed() {
		if r.IsActive() {
			r.Render(f, c)
		}
	}
	c.last = f

	var errs error
	for _, s := range c.sinks {
		if err := s.Publish(f); err != nil {
			c.log.Warn("frame sink failed", log.Uint64("frame", number), log.Error(err))
			errs = errors.Join(errs, err)
		}
	}
	return f, errs
}
