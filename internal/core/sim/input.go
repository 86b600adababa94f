package sim

// InputProcessor forwards raw platform input into the environment as
// consumable *InputEvent values. It does not interpret input.
type InputProcessor struct {
	Base
}

func NewInputProcessor() *InputProcessor { return &InputProcessor{} }

// Process raises raw wrapped in an *InputEvent and reports whether a listener
// consumed it.
func (p *InputProcessor) Process(raw any) (bool, error) {
	ev := &InputEvent{Raw: raw}
	if err := Raise(p, ev); err != nil {
		return ev.Consumed(), err
	}
	return ev.Consumed(), nil
}

// Behavior is the full per-frame hook set. Components may implement any
// subset: Starter runs once after setup, Updatable on every UpdateEvent and
// Ender on destroy.
type Behavior interface {
	Starter
	Updatable
	Ender
}
