package extension

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginNotFound is returned when enabling or disabling an unknown plugin
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrCannotDisableManager is returned when disabling the manager pseudo-plugin
	ErrCannotDisableManager = errors.New("cannot disable the manager")

	// ErrInvalidActionResult marks a result with only one half of the follow-up pair
	ErrInvalidActionResult = errors.New("invalid action result")
)

// ActionError is an unexpected failure raised while running a plugin action
type ActionError struct {
	Plugin   string
	Action   string
	Err      error
	Panicked bool
}

func (e *ActionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("plugin %s: action %s panicked: %v", e.Plugin, e.Action, e.Err)
	}
	return fmt.Sprintf("plugin %s: action %s failed: %v", e.Plugin, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UnitError is a failure to instantiate one discovery unit
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}
