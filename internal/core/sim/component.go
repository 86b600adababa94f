package sim

import (
	"errors"
	"reflect"

	"github.com/zeusync/sophysics/internal/core/events/bus"
)

// State is the lifecycle state of a component.
type State uint8

const (
	StateUnattached State = iota
	StateAttached
	StateSetUp
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateAttached:
		return "attached"
	case StateSetUp:
		return "set-up"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Component is implemented by every value that can be attached to a Container.
// Concrete components embed Base, which carries the lifecycle bookkeeping.
type Component interface {
	base() *Base
}

// Lifecycle is implemented by components that acquire registrations or
// resources once their owner is live. Setup runs exactly once; Teardown runs
// on destroy whenever Setup was attempted, including after a failed Setup, so
// it must not assume any setup step succeeded.
type Lifecycle interface {
	Setup() error
	Teardown()
}

// Starter is called once after Setup and every capability binding succeeded.
type Starter interface {
	Start() error
}

// Ender is called on destroy before Teardown.
type Ender interface {
	End()
}

// Base holds the state shared by all components. The owner reference is
// non-owning: the container owns its components, and the reference is
// cleared when the component is destroyed.
type Base struct {
	state    State
	started  bool // setup, capabilities and Start all completed
	self     Component
	owner    *Container
	cleanups []func()
}

func (b *Base) base() *Base { return b }

func (b *Base) State() State { return b.state }

func (b *Base) IsSetUp() bool { return b.state == StateSetUp }

func (b *Base) IsDestroyed() bool { return b.state == StateDestroyed }

// Container returns the owning container, or nil.
func (b *Base) Container() *Container { return b.owner }

// Object returns the owning SimObject, or nil when the component is unattached
// or attached to an environment.
func (b *Base) Object() *SimObject {
	if b.owner == nil {
		return nil
	}
	return b.owner.object
}

// Environment returns the environment the component lives in: its owner when
// attached to an environment, or its object's environment.
func (b *Base) Environment() *Environment {
	if b.owner == nil {
		return nil
	}
	return b.owner.environment()
}

// OnDestroy registers fn to run when the component is destroyed, after
// Teardown. Cleanups run in reverse registration order.
func (b *Base) OnDestroy(fn func()) {
	if fn != nil {
		b.cleanups = append(b.cleanups, fn)
	}
}

// Destroy tears the component down and detaches it from its owner.
// Destroying an already destroyed component is a no-op.
func (b *Base) Destroy() error {
	if b.self == nil {
		if b.state == StateUnattached {
			b.state = StateDestroyed
		}
		return nil
	}
	return destroyComponent(b.self)
}

// ObjectOf returns the SimObject owning c, or nil.
func ObjectOf(c Component) *SimObject { return c.base().Object() }

// EnvironmentOf returns the environment c lives in, or nil.
func EnvironmentOf(c Component) *Environment { return c.base().Environment() }

// OnDestroy registers fn to run when c is destroyed.
func OnDestroy(c Component, fn func()) { c.base().OnDestroy(fn) }

// Listen subscribes fn to events of type T on the component's environment.
// The subscription is cancelled automatically when the component is destroyed.
func Listen[T any](c Component, fn func(T) error) error {
	b := c.base()
	env := b.Environment()
	if env == nil {
		return ErrNotLive
	}
	sub, err := bus.Listen(env.Events(), fn)
	if err != nil {
		return err
	}
	b.OnDestroy(func() {
		// the environment may have cleared its listeners already
		_ = sub.Cancel()
	})
	return nil
}

// Raise raises event on the component's environment.
func Raise(c Component, event bus.Event) error {
	env := c.base().Environment()
	if env == nil {
		return ErrNotLive
	}
	return env.Events().Raise(event)
}

func isNilComponent(c Component) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// setupComponent moves an attached component to SetUp. On failure the
// component is destroyed and a *SetupError is returned.
func setupComponent(c Component) error {
	b := c.base()
	if b.state != StateAttached {
		return nil
	}
	b.state = StateSetUp

	err := func() error {
		if lc, ok := c.(Lifecycle); ok {
			if err := lc.Setup(); err != nil {
				return err
			}
		}
		if err := bindCapabilities(c); err != nil {
			return err
		}
		if s, ok := c.(Starter); ok {
			return s.Start()
		}
		return nil
	}()
	if err == nil {
		b.started = true
		return nil
	}
	serr := &SetupError{Component: reflect.TypeOf(c), Err: err}
	if derr := destroyComponent(c); derr != nil {
		return errors.Join(serr, derr)
	}
	return serr
}

func destroyComponent(c Component) error {
	b := c.base()
	switch b.state {
	case StateDestroyed:
		return nil
	case StateUnattached:
		b.state = StateDestroyed
		return nil
	}
	if _, ok := c.(*Transform); ok && b.owner != nil && b.owner.object != nil && !b.owner.object.destroying {
		return ErrTransformRequired
	}

	wasSetUp := b.state == StateSetUp
	b.state = StateDestroyed
	if wasSetUp {
		if e, ok := c.(Ender); ok && b.started {
			e.End()
		}
		if lc, ok := c.(Lifecycle); ok {
			lc.Teardown()
		}
	}
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil

	if b.owner != nil {
		b.owner.remove(c)
	}
	b.owner = nil
	b.self = nil
	return nil
}
