// Package apperr defines the failure taxonomy shared by the trust, network,
// recommendation and connection packages. Business outcomes are returned as
// errors wrapping one of the sentinels below so callers can branch with
// errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                       = errors.New("validation error")
	ErrInvalidStateTransition           = errors.New("invalid state transition")
	ErrInvalidUpgrade                   = errors.New("invalid upgrade")
	ErrRecipientNotAcceptingConnections = errors.New("recipient not accepting connections")
	ErrNotFound                         = errors.New("not found")
	ErrConcurrencyConflict              = errors.New("concurrency conflict")
	ErrNotPermitted                     = errors.New("action not permitted")
)

// TransitionError reports a workflow action attempted from a state that does
// not allow it.
type TransitionError struct {
	Action string
	State  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s a connection in state %q", e.Action, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// NewTransition builds a TransitionError for action attempted in state.
func NewTransition(action, state string) error {
	return &TransitionError{Action: action, State: state}
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound naming the missing entity.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// IsRetryable reports whether the caller may re-read, recheck and resubmit.
// Only optimistic-lock conflicts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// Kind returns a short machine-readable code for err, used in API responses
// and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrInvalidUpgrade):
		return "invalid_upgrade"
	case errors.Is(err, ErrRecipientNotAcceptingConnections):
		return "recipient_not_accepting_connections"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrNotPermitted):
		return "not_permitted"
	default:
		return "internal"
	}
}
