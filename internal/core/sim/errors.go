package sim

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNilComponent         = errors.New("sim: component is nil")
	ErrAlreadyAttached      = errors.New("sim: component is already attached")
	ErrComponentDestroyed   = errors.New("sim: component is destroyed")
	ErrDuplicateTransform   = errors.New("sim: object already has a transform")
	ErrTransformRequired    = errors.New("sim: transform cannot be removed from a live object")
	ErrNotLive              = errors.New("sim: component is not attached to a live environment")
	ErrNoObject             = errors.New("sim: component must be attached to a sim object")
	ErrNilObject            = errors.New("sim: sim object is nil")
	ErrObjectAttached       = errors.New("sim: sim object already belongs to an environment")
	ErrObjectDestroyed      = errors.New("sim: sim object is destroyed")
	ErrNotInEnvironment     = errors.New("sim: sim object does not belong to this environment")
	ErrAlreadySetUp         = errors.New("sim: environment is already set up")
	ErrNotSetUp             = errors.New("sim: environment is not set up")
	ErrEnvironmentDestroyed = errors.New("sim: environment is destroyed")
	ErrAlreadyManaged       = errors.New("sim: component is already registered with the manager")
	ErrNotManaged           = errors.New("sim: component is not registered with the manager")
	ErrInvalidTimeSettings  = errors.New("sim: invalid time settings")
)

// ComponentNotFoundError is returned by Get when no component satisfies the
// requested type. TryGet reports the same condition as an absent value.
type ComponentNotFoundError struct {
	Type reflect.Type
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("sim: no component of type %s", e.Type)
}

// ManageableTypeError is returned when a component offered to a manager does
// not have the capability the manager declared.
type ManageableTypeError struct {
	Manager reflect.Type
	Want    reflect.Type
	Got     reflect.Type
}

func (e *ManageableTypeError) Error() string {
	return fmt.Sprintf("sim: manager %s manages %s, got %s", e.Manager, e.Want, e.Got)
}

// SetupError wraps a failure raised while setting a component up. The
// component has already been destroyed when this error is returned.
type SetupError struct {
	Component reflect.Type
	Err       error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("sim: setup %s: %v", e.Component, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
