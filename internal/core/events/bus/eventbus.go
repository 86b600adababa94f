package bus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// subscription implements Subscription.
type subscription struct {
	id        string
	eventType reflect.Type
	handler   Handler
	active    atomic.Bool
	owner     *EventSystem
}

func (s *subscription) ID() string              { return s.id }
func (s *subscription) EventType() reflect.Type { return s.eventType }
func (s *subscription) IsActive() bool          { return s.active.Load() }
func (s *subscription) Cancel() error           { return s.owner.RemoveListener(s) }

// EventSystem is a synchronous, in-process publish/subscribe registry owned by
// exactly one simulation environment.
//
// Raise invokes listeners in the caller goroutine and is re-entrant: a listener
// may raise further events, which are delivered depth-first before the outer
// Raise continues. The lock is never held while listeners run. Delivery order
// among listeners of one type follows registration order, but callers must not
// rely on it.
type EventSystem struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type][]*subscription
	observers []Observer
	metrics   Metrics
}

// New creates an empty EventSystem.
func New() *EventSystem {
	return &EventSystem{
		handlers: make(map[reflect.Type][]*subscription),
	}
}

// TypeOf returns the routing key for events of type T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Listen registers a typed listener for events whose exact dynamic type is T.
func Listen[T any](es *EventSystem, fn func(T) error) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return es.AddListener(TypeOf[T](), func(event Event) error {
		return fn(event.(T))
	})
}

// AddListener registers handler for eventType and returns its Subscription.
func (es *EventSystem) AddListener(eventType reflect.Type, handler Handler) (Subscription, error) {
	if eventType == nil {
		return nil, ErrNilEventType
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	s := &subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		handler:   handler,
		owner:     es,
	}
	s.active.Store(true)

	es.mu.Lock()
	es.handlers[eventType] = append(es.handlers[eventType], s)
	es.mu.Unlock()
	return s, nil
}

// RemoveListener unregisters sub. It fails with ErrListenerNotFound when sub
// was never registered with this system or has already been removed.
func (es *EventSystem) RemoveListener(sub Subscription) error {
	if sub == nil {
		return ErrListenerNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	subs := es.handlers[sub.EventType()]
	for i, s := range subs {
		if s.id != sub.ID() {
			continue
		}
		s.active.Store(false)
		// copy so that in-flight snapshots taken by Raise stay intact
		next := make([]*subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(es.handlers, sub.EventType())
		} else {
			es.handlers[sub.EventType()] = next
		}
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrListenerNotFound, sub.ID(), sub.EventType())
}

// Raise delivers event to every listener registered for its exact dynamic
// type. Listener errors are joined; every listener runs regardless of errors
// from earlier ones. Delivery stops early only when a Consumable event is consumed.
func (es *EventSystem) Raise(event Event) error {
	if event == nil {
		return ErrNilEvent
	}
	start := time.Now()
	etype := reflect.TypeOf(event)

	es.mu.RLock()
	subs := es.handlers[etype]
	observers := es.observers
	es.mu.RUnlock()

	for _, obs := range observers {
		obs.OnRaise(etype, event)
	}

	consumable, _ := event.(Consumable)

	var all error
	delivered := 0
	for _, s := range subs {
		if consumable != nil && consumable.Consumed() {
			break
		}
		// removed by an earlier listener of this same raise
		if !s.active.Load() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		dur := time.Since(start)
		for _, obs := range observers {
			obs.OnDelivered(etype, delivered, all, dur)
		}
		es.mu.Lock()
		es.metrics.Raised++
		es.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			es.metrics.Errors++
		}
		if consumable != nil && consumable.Consumed() {
			es.metrics.Consumed++
		}
		var active uint64
		for _, list := range es.handlers {
			active += uint64(len(list))
		}
		es.metrics.ListenersActive = active
		es.mu.Unlock()
	}
	return all
}

// ListenerCount returns the number of listeners registered for eventType.
func (es *EventSystem) ListenerCount(eventType reflect.Type) int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.handlers[eventType])
}

// Len returns the total number of registered listeners.
func (es *EventSystem) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	n := 0
	for _, list := range es.handlers {
		n += len(list)
	}
	return n
}

// Clear removes every listener. Outstanding subscriptions become inactive.
func (es *EventSystem) Clear() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, list := range es.handlers {
		for _, s := range list {
			s.active.Store(false)
		}
	}
	es.handlers = make(map[reflect.Type][]*subscription)
}

// AddObserver registers an observer to receive delivery callbacks.
func (es *EventSystem) AddObserver(obs Observer) {
	es.mu.Lock()
	es.observers = append(append([]Observer(nil), es.observers...), obs)
	es.mu.Unlock()
}

// RemoveObserver unregisters a previously added observer.
func (es *EventSystem) RemoveObserver(obs Observer) {
	es.mu.Lock()
	defer es.mu.Unlock()
	next := make([]Observer, 0, len(es.observers))
	for _, o := range es.observers {
		if o != obs {
			next = append(next, o)
		}
	}
	es.observers = next
}

// Metrics returns a snapshot of accumulated counters. Counters only move while
// at least one observer is registered.
func (es *EventSystem) Metrics() Metrics {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.metrics
}
