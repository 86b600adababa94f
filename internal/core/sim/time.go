package sim

import (
	"fmt"
	"math"
)

const (
	DefaultDT            = 1.0 / 60.0
	DefaultStepsPerFrame = 1
)

// TimeSettings is the environment component holding the shared time step,
// the number of physics steps per rendered frame and the paused flag.
type TimeSettings struct {
	Base
	DT            float64
	StepsPerFrame int
	paused        bool
}

// NewTimeSettings validates and builds time settings. dt may be zero, which
// freezes integration while the step loop keeps running.
func NewTimeSettings(dt float64, stepsPerFrame int, paused bool) (*TimeSettings, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return nil, fmt.Errorf("%w: dt %v", ErrInvalidTimeSettings, dt)
	}
	if stepsPerFrame < 0 {
		return nil, fmt.Errorf("%w: steps per frame %d", ErrInvalidTimeSettings, stepsPerFrame)
	}
	return &TimeSettings{DT: dt, StepsPerFrame: stepsPerFrame, paused: paused}, nil
}

func DefaultTimeSettings() *TimeSettings {
	return &TimeSettings{DT: DefaultDT, StepsPerFrame: DefaultStepsPerFrame}
}

func (t *TimeSettings) Paused() bool { return t.paused }

// SetPaused changes the paused flag and raises PauseEvent or UnpauseEvent
// when the value actually changes and the settings are live.
func (t *TimeSettings) SetPaused(paused bool) error {
	if t.paused == paused {
		return nil
	}
	t.paused = paused
	if !t.IsSetUp() {
		return nil
	}
	if paused {
		return Raise(t, PauseEvent{})
	}
	return Raise(t, UnpauseEvent{})
}

// TogglePaused flips the paused flag.
func (t *TimeSettings) TogglePaused() error { return t.SetPaused(!t.paused) }

// Updater drives one environment frame by frame.
type Updater struct {
	env *Environment
}

func NewUpdater(env *Environment) *Updater {
	return &Updater{env: env}
}

// Frame advances the simulation StepsPerFrame times unless paused, then
// updates and renders once. Without TimeSettings one step per frame runs.
func (u *Updater) Frame() error {
	steps := DefaultStepsPerFrame
	if ts, ok := TryGet[*TimeSettings](u.env); ok {
		steps = ts.StepsPerFrame
		if ts.Paused() {
			steps = 0
		}
	}
	for range steps {
		if err := u.env.Advance(); err != nil {
			return err
		}
	}
	if err := u.env.Update(); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := u.env.Render(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Run calls Frame n times, stopping at the first error.
func (u *Updater) Run(n int) error {
	for range n {
		if err := u.Frame(); err != nil {
			return err
		}
	}
	return nil
}
