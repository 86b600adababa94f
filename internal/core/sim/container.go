package sim

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/TheBitDrifter/mask"
)

// Container is the owning collection of components attached to a SimObject
// or an Environment.
//
// Lookups are served from a type index. The index for a type is built the
// first time that type is queried and is then kept current on every attach
// and removal, so repeated lookups never scan the component list.
type Container struct {
	components []Component
	index      map[reflect.Type][]Component

	tags         mask.Mask
	tagsComputed int

	object *SimObject
	env    *Environment
}

func (c *Container) init(object *SimObject, env *Environment) {
	c.object = object
	c.env = env
	c.index = make(map[reflect.Type][]Component)
	c.tagsComputed = -1
}

// Owner is implemented by *Container and, through embedding, by *SimObject
// and *Environment, so lookups accept any of them.
type Owner interface {
	container() *Container
}

func (c *Container) container() *Container { return c }

func (c *Container) environment() *Environment {
	if c.env != nil {
		return c.env
	}
	if c.object != nil {
		return c.object.parent
	}
	return nil
}

// live reports whether attached components should be set up immediately.
func (c *Container) live() bool {
	if c.env != nil {
		return c.env.live
	}
	if c.object != nil {
		return !c.object.destroying && c.object.parent != nil && c.object.parent.live
	}
	return false
}

// Attach adds comp to the container. If the container is live, comp is set
// up immediately; a failed setup destroys comp and returns the error.
func (c *Container) Attach(comp Component) error {
	if isNilComponent(comp) {
		return ErrNilComponent
	}
	b := comp.base()
	switch b.state {
	case StateUnattached:
	case StateDestroyed:
		return fmt.Errorf("attach %T: %w", comp, ErrComponentDestroyed)
	default:
		return fmt.Errorf("attach %T: %w", comp, ErrAlreadyAttached)
	}
	if c.object != nil {
		if c.object.destroyed || c.object.destroying {
			return ErrObjectDestroyed
		}
		if t, ok := comp.(*Transform); ok {
			if c.object.transform != nil {
				return ErrDuplicateTransform
			}
			c.object.transform = t
		}
	}
	if c.env != nil && c.env.destroyed {
		return ErrEnvironmentDestroyed
	}

	b.self = comp
	b.owner = c
	b.state = StateAttached
	c.components = append(c.components, comp)
	c.indexAdd(comp)

	if c.live() {
		return setupComponent(comp)
	}
	return nil
}

// Remove destroys comp, which must belong to this container.
func (c *Container) Remove(comp Component) error {
	if isNilComponent(comp) {
		return ErrNilComponent
	}
	if comp.base().owner != c {
		return &ComponentNotFoundError{Type: reflect.TypeOf(comp)}
	}
	return destroyComponent(comp)
}

// Components returns a snapshot of the attached components in attach order.
func (c *Container) Components() []Component {
	return slices.Clone(c.components)
}

// Len returns the number of attached components.
func (c *Container) Len() int { return len(c.components) }

// HasTags reports whether the container holds components satisfying every tag.
func (c *Container) HasTags(tags ...Tag) bool {
	if v := tagVersion(); c.tagsComputed != v {
		c.tags = mask.Mask{}
		for _, comp := range c.components {
			for _, t := range tagsOf(comp) {
				c.tags.Mark(uint32(t))
			}
		}
		c.tagsComputed = v
	}
	var want mask.Mask
	for _, t := range tags {
		want.Mark(uint32(t))
	}
	return c.tags.ContainsAll(want)
}

func (c *Container) remove(comp Component) {
	if i := slices.Index(c.components, comp); i >= 0 {
		c.components = slices.Delete(c.components, i, i+1)
	}
	for t, list := range c.index {
		if i := slices.Index(list, comp); i >= 0 {
			c.index[t] = slices.Delete(slices.Clone(list), i, i+1)
		}
	}
	c.tagsComputed = -1
}

func (c *Container) indexAdd(comp Component) {
	ct := reflect.TypeOf(comp)
	// only types already queried are indexed; others are built on demand
	for t, list := range c.index {
		if ct.AssignableTo(t) {
			c.index[t] = append(list, comp)
		}
	}
	c.tagsComputed = -1
}

func (c *Container) lookup(t reflect.Type) []Component {
	if list, ok := c.index[t]; ok {
		return list
	}
	var list []Component
	for _, comp := range c.components {
		if reflect.TypeOf(comp).AssignableTo(t) {
			list = append(list, comp)
		}
	}
	c.index[t] = list
	return list
}

// containerOf returns nil for a nil owner, including a typed nil such as a
// nil *SimObject.
func containerOf(o Owner) *Container {
	if o == nil {
		return nil
	}
	if v := reflect.ValueOf(o); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return o.container()
}

// Get returns the first attached component assignable to T, in attach order.
// A missing component yields a *ComponentNotFoundError.
func Get[T any](o Owner) (T, error) {
	if v, ok := TryGet[T](o); ok {
		return v, nil
	}
	var zero T
	return zero, &ComponentNotFoundError{Type: reflect.TypeFor[T]()}
}

// TryGet is the optional form of Get.
func TryGet[T any](o Owner) (T, bool) {
	var zero T
	c := containerOf(o)
	if c == nil {
		return zero, false
	}
	list := c.lookup(reflect.TypeFor[T]())
	if len(list) == 0 {
		return zero, false
	}
	return list[0].(T), true
}

// GetAll returns every attached component assignable to T, in attach order.
func GetAll[T any](o Owner) []T {
	c := containerOf(o)
	if c == nil {
		return nil
	}
	list := c.lookup(reflect.TypeFor[T]())
	out := make([]T, len(list))
	for i, comp := range list {
		out[i] = comp.(T)
	}
	return out
}

// Has reports whether a component assignable to T is attached.
func Has[T any](o Owner) bool {
	_, ok := TryGet[T](o)
	return ok
}
