package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNoAccepts is returned when a predicate script does not define
	// a global accepts function.
	ErrNoAccepts = errors.New("script does not define accepts")
)

// ScriptError reports a failure while loading or running a script.
type ScriptError struct {
	Script string
	Op     string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua %s %s: %v", e.Op, e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
