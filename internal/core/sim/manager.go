package sim

import (
	"reflect"
	"slices"
	"sort"
)

// Registry is an environment component that keeps an index of the object
// components of one capability type. Manager implements it; concrete managers
// embed Manager.
type Registry interface {
	Component
	ManagedType() reflect.Type
	AttachManageable(c Component) error
	DetachManageable(c Component) error
}

type managed[T any] struct {
	comp Component
	item T
}

// Manager is the embeddable registry for components implementing T. By
// default it keeps registration order; SetOrder switches it to a sorted
// registry maintained by binary insertion.
type Manager[T any] struct {
	Base
	entries []managed[T]
	less    func(a, b T) bool
}

// ManagedType returns the capability type this manager accepts.
func (m *Manager[T]) ManagedType() reflect.Type { return reflect.TypeFor[T]() }

// SetOrder installs an ordering and re-sorts the current entries. Entries
// that compare equal keep registration order.
func (m *Manager[T]) SetOrder(less func(a, b T) bool) {
	m.less = less
	m.Reorder()
}

// Reorder restores the ordering after keys of managed items changed.
func (m *Manager[T]) Reorder() {
	if m.less == nil {
		return
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.less(m.entries[i].item, m.entries[j].item)
	})
}

// AttachManageable registers c, which must implement T.
func (m *Manager[T]) AttachManageable(c Component) error {
	if isNilComponent(c) {
		return ErrNilComponent
	}
	item, ok := any(c).(T)
	if !ok {
		return &ManageableTypeError{
			Manager: reflect.TypeOf(m),
			Want:    m.ManagedType(),
			Got:     reflect.TypeOf(c),
		}
	}
	if m.index(c) >= 0 {
		return ErrAlreadyManaged
	}
	e := managed[T]{comp: c, item: item}
	if m.less == nil {
		m.entries = append(m.entries, e)
		return nil
	}
	// insert after every entry that does not sort after item
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.less(item, m.entries[i].item)
	})
	m.entries = slices.Insert(m.entries, i, e)
	return nil
}

// DetachManageable removes c from the registry.
func (m *Manager[T]) DetachManageable(c Component) error {
	i := m.index(c)
	if i < 0 {
		return ErrNotManaged
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return nil
}

// IsManaged reports whether c is registered.
func (m *Manager[T]) IsManaged(c Component) bool { return m.index(c) >= 0 }

// Managed returns a snapshot of the registered items in registry order.
func (m *Manager[T]) Managed() []T {
	out := make([]T, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.item
	}
	return out
}

func (m *Manager[T]) ManagedLen() int { return len(m.entries) }

func (m *Manager[T]) index(c Component) int {
	return slices.IndexFunc(m.entries, func(e managed[T]) bool { return e.comp == c })
}

// Manage registers c with the environment's manager of type M and arranges
// for c to be deregistered when it is destroyed. It fails when c is not in a
// live environment or the environment has no M.
func Manage[M Registry](c Component) (M, error) {
	var zero M
	env := c.base().Environment()
	if env == nil {
		return zero, ErrNotLive
	}
	m, err := Get[M](env)
	if err != nil {
		return zero, err
	}
	if err := m.AttachManageable(c); err != nil {
		return zero, err
	}
	c.base().OnDestroy(func() {
		_ = m.DetachManageable(c)
	})
	return m, nil
}

// TryManage is Manage for optional managers: a missing manager is reported
// as false rather than an error.
func TryManage[M Registry](c Component) (M, bool, error) {
	var zero M
	env := c.base().Environment()
	if env == nil {
		return zero, false, ErrNotLive
	}
	if !Has[M](env) {
		return zero, false, nil
	}
	m, err := Manage[M](c)
	if err != nil {
		return zero, false, err
	}
	return m, true, nil
}
