package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed indicates Publish or Subscribe was called after Close.
var ErrBusClosed = errors.New("event bus is closed")

// EventError represents an error during event delivery.
type EventError struct {
	Event   Event  // The event that failed
	Handler string // Subscription that failed (if known)
	Err     error  // Underlying error
}

// Error implements error interface.
func (e *EventError) Error() string {
	if e.Handler != "" {
		return fmt.Sprintf("event %s (%s): subscriber %s: %v", e.Event.ID(), e.Event.Type(), e.Handler, e.Err)
	}
	return fmt.Sprintf("event %s (%s): %v", e.Event.ID(), e.Event.Type(), e.Err)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
