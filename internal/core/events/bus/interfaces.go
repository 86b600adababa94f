package bus

import (
	"errors"
	"reflect"
	"time"
)

// Event is any value raised through an EventSystem.
//
// Routing is keyed by the event's exact dynamic type: a listener registered for
// *FooEvent never sees FooEvent values, and a listener registered for an
// interface type never sees the concrete types implementing it. Events that
// listeners are expected to mutate (consumable events) should be raised as
// pointers.
type Event = any

// Handler is a listener callback invoked synchronously per raised event. If it
// returns an error, Raise aggregates and returns it after every other handler
// has run.
type Handler func(event Event) error

// Consumable is implemented by events that carry a consumed flag. Once a
// listener consumes the event the remaining listeners are skipped.
type Consumable interface {
	Consume()
	Consumed() bool
}

// Consumption is embedded by events that want consumable semantics.
type Consumption struct {
	consumed bool
}

func (c *Consumption) Consume()       { c.consumed = true }
func (c *Consumption) Consumed() bool { return c.consumed }

// Subscription is the handle returned by AddListener. Go function values are
// not comparable, so the handle, not the callback, identifies a registration.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the exact event type this subscription listens to.
	EventType() reflect.Type
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel removes the listener from the event system it was registered with.
	// Cancelling a subscription that is no longer registered returns ErrListenerNotFound.
	Cancel() error
}

// Observer is notified about raises and deliveries. Observers should return quickly.
type Observer interface {
	OnRaise(eventType reflect.Type, event Event)
	OnDelivered(eventType reflect.Type, handlers int, err error, duration time.Duration)
}

// Metrics represents a minimal set of counters; it is updated only when at
// least one observer is registered.
type Metrics struct {
	Raised            uint64
	DeliveredHandlers uint64
	Errors            uint64
	Consumed          uint64
	ListenersActive   uint64
}

var (
	ErrNilHandler       = errors.New("bus: listener callback is nil")
	ErrNilEventType     = errors.New("bus: event type is nil")
	ErrNilEvent         = errors.New("bus: event is nil")
	ErrListenerNotFound = errors.New("bus: listener is not registered")
)
