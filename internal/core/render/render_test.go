package render

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/sophysics/internal/core/events/bus"
	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

func newScene(t *testing.T, cam *Camera) *sim.Environment {
	t.Helper()
	env := sim.NewEnvironment()
	require.NoError(t, env.Attach(physics.NewPhysicsManager()))
	if cam != nil {
		require.NoError(t, env.Attach(cam))
	}
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })
	return env
}

func newCamera(t *testing.T) *Camera {
	t.Helper()
	cam, err := NewCamera(800, 600, 0.5)
	require.NoError(t, err)
	return cam
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
	}{
		{"#ff8000", Color{255, 128, 0, 255}},
		{"#ff800040", Color{255, 128, 0, 64}},
		{"[1, 2, 3]", Color{1, 2, 3, 255}},
		{"[1,2,3,4]", Color{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseColor(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "red", "#fff", "#gg0000", "[1,2]", "[1,2,256]", "[1.5,2,3]", "[-1,0,0]"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}

func TestColorCodecs(t *testing.T) {
	var fromJSON struct {
		A Color `json:"a"`
		B Color `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "#102030", "b": [4, 5, 6, 7]}`), &fromJSON))
	assert.Equal(t, RGB(0x10, 0x20, 0x30), fromJSON.A)
	assert.Equal(t, Color{4, 5, 6, 7}, fromJSON.B)

	out, err := json.Marshal(RGB(1, 2, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, 3, 255]`, string(out))

	var fromYAML struct {
		A Color `yaml:"a"`
		B Color `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: '#102030'\nb: [4, 5, 6]\n"), &fromYAML))
	assert.Equal(t, RGB(0x10, 0x20, 0x30), fromYAML.A)
	assert.Equal(t, RGB(4, 5, 6), fromYAML.B)

	var bad struct {
		C Color `yaml:"c"`
	}
	err = yaml.Unmarshal([]byte("c: {r: 1}\n"), &bad)
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestCameraConversions(t *testing.T) {
	cam := newCamera(t)
	cam.Position = geom.V(10, -20)

	screen := cam.WorldToScreen(geom.V(3, 4))
	assert.Equal(t, geom.V(3*2+400-10, -(4*2)+300-20), screen)
	assert.Equal(t, geom.V(3, 4), cam.ScreenToWorld(screen))

	require.ErrorIs(t, cam.SetUnitsPerPixel(0), ErrInvalidUnitsPerPixel)
	assert.Equal(t, 0.5, cam.UnitsPerPixel())

	_, err := NewCamera(0, 10, 1)
	require.ErrorIs(t, err, ErrInvalidViewport)
}

type marker struct {
	Renderer
	name  string
	drawn *[]string
}

func (m *marker) Setup() error { return joinCamera(m) }
func (m *marker) Teardown()    {}
func (m *marker) Render(*Frame, *Camera) {
	*m.drawn = append(*m.drawn, m.name)
}

func TestCameraRendersInLayerOrder(t *testing.T) {
	cam := newCamera(t)
	env := newScene(t, cam)

	var drawn []string
	mk := func(name string, layer int) *marker {
		return &marker{Renderer: Renderer{layer: layer}, name: name, drawn: &drawn}
	}
	hidden := mk("hidden", 0)
	hidden.SetActive(false)
	_, err := env.NewObject("o", mk("top", 3), mk("bottom", 1), mk("middle", 2), mk("bottom-2", 1), hidden)
	require.NoError(t, err)

	var order []string
	_, err = bus.Listen(env.Events(), func(e CameraRenderEvent) error {
		assert.Same(t, cam, e.Camera)
		order = append(order, "event")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, env.Render())
	assert.Equal(t, []string{"event"}, order)
	assert.Equal(t, []string{"bottom", "bottom-2", "middle", "top"}, drawn)
	require.NotNil(t, cam.LastFrame())
	assert.Equal(t, 800, cam.LastFrame().Width)
}

func TestRenderersWithoutCameraAreSkipped(t *testing.T) {
	env := newScene(t, nil)
	r := NewCircleRenderer(1, 2, White, 1)
	_, err := env.NewObject("o", r)
	require.NoError(t, err)
	assert.True(t, r.IsSetUp())
	require.NoError(t, env.Render())
}

func TestCircleRenderer(t *testing.T) {
	cam := newCamera(t)
	env := newScene(t, cam)

	big := NewCircleRenderer(10, 3, RGB(255, 0, 0), 2)
	tiny := NewCircleRenderer(0.1, 3, RGB(0, 255, 0), 1)
	_, err := env.NewObject("big", sim.NewTransform(geom.V(1, 1), 0), big)
	require.NoError(t, err)
	_, err = env.NewObject("tiny", tiny)
	require.NoError(t, err)

	var sunk []*Frame
	cam.AddSink(SinkFunc(func(f *Frame) error {
		sunk = append(sunk, f)
		return nil
	}))
	require.NoError(t, env.Render())

	require.Len(t, sunk, 1)
	f := sunk[0]
	require.Len(t, f.Circles, 2)
	assert.Equal(t, CirclePrimitive{Layer: 1, Center: geom.V(400, 300), Radius: 3, Color: RGB(0, 255, 0)}, f.Circles[0])
	assert.Equal(t, CirclePrimitive{Layer: 2, Center: geom.V(402, 298), Radius: 20, Color: RGB(255, 0, 0)}, f.Circles[1])
}

func TestSinkErrorsAreJoined(t *testing.T) {
	cam := newCamera(t)
	_ = newScene(t, cam)
	boom := errors.New("boom")
	cam.AddSink(SinkFunc(func(*Frame) error { return boom }))

	f, err := cam.RenderScene(7)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(7), f.Number)
}

func TestTrailRenderer(t *testing.T) {
	cam := newCamera(t)
	env := newScene(t, cam)

	_, err := NewTrailRenderer(0, 10, 1, White, 1)
	require.ErrorIs(t, err, ErrInvalidTrail)

	trail, err := NewTrailRenderer(1, 3, 2, White, 1)
	require.NoError(t, err)
	o, err := env.NewObject("comet", trail)
	require.NoError(t, err)

	moveTo := func(x float64) {
		o.Transform().Position = geom.V(x, 0)
		require.NoError(t, env.Events().Raise(physics.SettledEvent{}))
	}
	moveTo(0)
	moveTo(0.5) // too close
	moveTo(1)
	moveTo(2.5)
	moveTo(4)
	assert.Equal(t, []geom.Vec2{geom.V(1, 0), geom.V(2.5, 0), geom.V(4, 0)}, trail.Points(), "oldest point dropped")

	o.Transform().Position = geom.V(5, 0)
	f, err := cam.RenderScene(0)
	require.NoError(t, err)
	require.Len(t, f.Polylines, 1)
	assert.Len(t, f.Polylines[0].Points, 4, "trail ends at the current position")

	require.NoError(t, env.Events().Raise(TrailResetEvent{}))
	assert.Empty(t, trail.Points())
	f, err = cam.RenderScene(1)
	require.NoError(t, err)
	assert.Empty(t, f.Polylines)
}
