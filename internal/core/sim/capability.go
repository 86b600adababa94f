package sim

import (
	"fmt"
	"reflect"
	"sync"
)

// Tag is a stable, process-wide identifier for a component type or a
// capability interface. Containers keep a bit mask of the tags they satisfy.
type Tag uint32

// maxTags bounds the number of distinct tags so they fit the container mask.
const maxTags = 64

// Binder connects a component exposing a capability to the subsystem that
// serves it, e.g. subscribing a force source to the force phase. It runs
// during setup, after Lifecycle.Setup. Registrations made through Listen,
// Manage or Base.OnDestroy are released automatically on destroy.
type Binder func(c Component) error

type capability struct {
	typ  reflect.Type
	bind Binder
}

var registry = struct {
	mu           sync.RWMutex
	tags         map[reflect.Type]Tag
	types        []reflect.Type
	capabilities []capability
}{
	tags: make(map[reflect.Type]Tag),
}

// TagOf returns the tag for T, assigning the next free one on first use.
func TagOf[T any]() Tag {
	return tagFor(reflect.TypeFor[T]())
}

func tagFor(t reflect.Type) Tag {
	registry.mu.RLock()
	tag, ok := registry.tags[t]
	registry.mu.RUnlock()
	if ok {
		return tag
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if tag, ok = registry.tags[t]; ok {
		return tag
	}
	if len(registry.types) >= maxTags {
		panic(fmt.Sprintf("sim: too many component tags, cannot register %s", t))
	}
	tag = Tag(len(registry.types))
	registry.tags[t] = tag
	registry.types = append(registry.types, t)
	return tag
}

// tagVersion changes whenever a tag is registered.
func tagVersion() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.types)
}

// tagsOf returns every registered tag whose type c is assignable to.
func tagsOf(c Component) []Tag {
	ct := reflect.TypeOf(c)
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	var out []Tag
	for i, t := range registry.types {
		if ct.AssignableTo(t) {
			out = append(out, Tag(i))
		}
	}
	return out
}

// RegisterCapability declares the capability interface T and the binder that
// wires components implementing it. Capabilities are bound in registration
// order. Packages call it from init.
func RegisterCapability[T any](bind Binder) Tag {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("sim: capability %s must be an interface type", t))
	}
	tag := tagFor(t)
	registry.mu.Lock()
	registry.capabilities = append(registry.capabilities, capability{typ: t, bind: bind})
	registry.mu.Unlock()
	return tag
}

func bindCapabilities(c Component) error {
	ct := reflect.TypeOf(c)
	registry.mu.RLock()
	caps := registry.capabilities
	registry.mu.RUnlock()

	for _, capb := range caps {
		if !ct.Implements(capb.typ) || capb.bind == nil {
			continue
		}
		if err := capb.bind(c); err != nil {
			return fmt.Errorf("bind %s: %w", capb.typ, err)
		}
	}
	return nil
}

// Updatable is the per-frame logic capability: Update runs on every UpdateEvent.
type Updatable interface {
	Update() error
}

func init() {
	RegisterCapability[Updatable](func(c Component) error {
		u := c.(Updatable)
		return Listen(c, func(UpdateEvent) error {
			return u.Update()
		})
	})
}
