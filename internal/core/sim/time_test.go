package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/core/events/bus"
)

func TestNewTimeSettingsValidation(t *testing.T) {
	cases := []struct {
		name  string
		dt    float64
		steps int
		ok    bool
	}{
		{"default", DefaultDT, 1, true},
		{"zero dt", 0, 1, true},
		{"zero steps", 0.01, 0, true},
		{"negative dt", -0.1, 1, false},
		{"nan dt", math.NaN(), 1, false},
		{"inf dt", math.Inf(1), 1, false},
		{"negative steps", 0.1, -1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, err := NewTimeSettings(tc.dt, tc.steps, false)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.steps, ts.StepsPerFrame)
				return
			}
			require.ErrorIs(t, err, ErrInvalidTimeSettings)
		})
	}
}

func TestSetPausedRaisesOnChange(t *testing.T) {
	env := NewEnvironment()
	ts := DefaultTimeSettings()
	require.NoError(t, env.Attach(ts))
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })

	var pauses, unpauses int
	_, err := bus.Listen(env.Events(), func(PauseEvent) error { pauses++; return nil })
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(UnpauseEvent) error { unpauses++; return nil })
	require.NoError(t, err)

	require.NoError(t, ts.SetPaused(true))
	require.NoError(t, ts.SetPaused(true))
	require.NoError(t, ts.TogglePaused())
	require.NoError(t, ts.SetPaused(false))

	assert.Equal(t, 1, pauses)
	assert.Equal(t, 1, unpauses)
	assert.False(t, ts.Paused())
}

func TestUpdaterFrame(t *testing.T) {
	env := NewEnvironment()
	ts, err := NewTimeSettings(0.01, 3, false)
	require.NoError(t, err)
	require.NoError(t, env.Attach(ts))
	tk := &ticker{}
	_, err = env.NewObject("obj", tk)
	require.NoError(t, err)
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })

	var advances, renders int
	_, err = bus.Listen(env.Events(), func(AdvanceEvent) error { advances++; return nil })
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(RenderEvent) error { renders++; return nil })
	require.NoError(t, err)

	u := NewUpdater(env)
	require.NoError(t, u.Frame())
	assert.Equal(t, 3, advances)
	assert.Equal(t, 1, renders)
	assert.Equal(t, 1, tk.ticks)

	require.NoError(t, ts.SetPaused(true))
	require.NoError(t, u.Run(2))
	assert.Equal(t, 3, advances, "paused frames do not advance")
	assert.Equal(t, 3, renders)
	assert.Equal(t, 3, tk.ticks)
}

func TestInputProcessorConsumption(t *testing.T) {
	env := NewEnvironment()
	in := NewInputProcessor()
	require.NoError(t, env.Attach(in))
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })

	var seen []any
	_, err := bus.Listen(env.Events(), func(e *InputEvent) error {
		if e.Raw == "escape" {
			e.Consume()
		}
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(e *InputEvent) error {
		seen = append(seen, e.Raw)
		return nil
	})
	require.NoError(t, err)

	consumed, err := in.Process("escape")
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = in.Process("space")
	require.NoError(t, err)
	assert.False(t, consumed)

	assert.Equal(t, []any{"space"}, seen)
}
