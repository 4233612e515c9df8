package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for renderer conditions.
var (
	// ErrRendererClosed is returned when an operation reaches a closed renderer.
	ErrRendererClosed = errors.New("server: renderer closed")

	// ErrSubscriberRegistered is returned when an update subscriber is
	// already installed. The existing subscriber is left in place.
	ErrSubscriberRegistered = errors.New("server: update subscriber already registered")

	// ErrNilSubscriber is returned when registering a nil update subscriber.
	ErrNilSubscriber = errors.New("server: nil update subscriber")

	// ErrNilFactory is returned when a component factory is nil.
	ErrNilFactory = errors.New("server: nil component factory")

	// ErrNilComponent is returned when a factory produces no component.
	ErrNilComponent = errors.New("server: factory returned nil component")

	// ErrDuplicateKey is returned when two child components share a key.
	ErrDuplicateKey = errors.New("server: duplicate component key")
)

// RenderError wraps a fault raised while initializing or rendering a
// component.
type RenderError struct {
	ComponentID int
	Op          string // Lifecycle step that failed
	Err         error  // Underlying error
}

// Error returns the error message with component context.
func (e *RenderError) Error() string {
	return fmt.Sprintf("server: component %d: %s: %v", e.ComponentID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(componentID int, op string, err error) *RenderError {
	return &RenderError{
		ComponentID: componentID,
		Op:          op,
		Err:         err,
	}
}

// PanicError wraps a panic recovered from component code.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("server: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
