package eavesdrop

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registry.
var (
	// ErrInvalidEvent is returned when publish input or an event selector
	// is malformed: an unsupported payload form, a mapping without the
	// reserved key, extra fields on a non-name event, or an empty name.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("callback cannot be nil")

	// ErrListenerPanic matches, via errors.Is, failures caused by a
	// panicking callback.
	ErrListenerPanic = errors.New("listener panicked")
)

// ListenerError wraps a callback failure with dispatch context. Dispatch
// stops at the first failing callback and Publish returns the failure
// wrapped in a ListenerError.
type ListenerError struct {
	// Event is the identifier of the event being dispatched.
	Event ID

	// Origin names the publisher whose scope was dispatching, or "" for
	// the global scope.
	Origin string

	// Eavesdrop marks failures raised during the eavesdropper pass.
	Eavesdrop bool

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	role := "listener"
	if e.Eavesdrop {
		role = "eavesdropper"
	}
	scope := e.Origin
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("%s error for event %s (scope %s): %v", role, e.Event, scope, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value recovered from a callback.
type PanicError struct {
	// Event is the identifier of the event being dispatched.
	Event ID

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panic during %s: %v", e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}
