package sim

import "github.com/zeusync/sophysics/internal/core/events/bus"

// AdvanceEvent is raised once per Environment.Advance, before deferred
// destruction is resolved. Step counts advances since setup, starting at 0.
type AdvanceEvent struct {
	Step uint64
}

// UpdateEvent drives per-frame logic (behaviors, input handling, cameras).
type UpdateEvent struct {
	Frame uint64
}

// RenderEvent asks rendering collaborators to draw the current state.
type RenderEvent struct {
	Frame uint64
}

// ObjectAddedEvent is raised after an object joined a live environment and its
// components were set up.
type ObjectAddedEvent struct {
	Object *SimObject
}

// ObjectDestroyedEvent is raised after an object was destroyed and removed.
type ObjectDestroyedEvent struct {
	Object *SimObject
}

type PauseEvent struct{}

type UnpauseEvent struct{}

// InputEvent wraps one raw platform input event. Listeners consume it to stop
// further routing.
type InputEvent struct {
	bus.Consumption
	Raw any
}
