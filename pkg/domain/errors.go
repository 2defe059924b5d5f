package domain

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when there is nothing to teach: the session started
// with zero atoms, or a transition has no atom to advance to.
var ErrNoContent = errors.New("no content available for this session")

// ErrBusy is returned when an action is triggered while a request for the same
// slot is still in flight. The trigger is a no-op.
var ErrBusy = errors.New("a request for this action is already in flight")

// ErrStaleResponse marks a response that arrived after the session moved on.
// It is discarded without touching state and is not a user-facing error.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrInvalidTransition is returned when an action is not allowed in the current phase.
var ErrInvalidTransition = errors.New("action not allowed in the current phase")

// ErrInvalidAnswer is returned when the selected option does not exist on the current question.
var ErrInvalidAnswer = errors.New("selected option is out of range")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// RequestFailure wraps a failed call to the learning service.
// It is recoverable: the phase is unchanged and the learner may retry.
type RequestFailure struct {
	Slot       Slot
	Op         string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *RequestFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

// InvalidTransition builds an ErrInvalidTransition with context.
func InvalidTransition(action string, phase Phase) error {
	return fmt.Errorf("%w: %s during %s", ErrInvalidTransition, action, phase)
}
