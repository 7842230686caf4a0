package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionError(t *testing.T) {
	err := NewTransition("accept", "blocked")

	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	assert.Contains(t, err.Error(), "accept")
	assert.Contains(t, err.Error(), "blocked")

	var te *TransitionError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &te))
	assert.Equal(t, "accept", te.Action)
	assert.Equal(t, "blocked", te.State)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"validation", Validation("bad score %d", 120), "validation"},
		{"transition", NewTransition("decline", "accepted"), "invalid_state_transition"},
		{"upgrade", fmt.Errorf("follow -> follow: %w", ErrInvalidUpgrade), "invalid_upgrade"},
		{"recipient", ErrRecipientNotAcceptingConnections, "recipient_not_accepting_connections"},
		{"not found", NotFound("profile", "u1"), "not_found"},
		{"conflict", fmt.Errorf("save: %w", ErrConcurrencyConflict), "concurrency_conflict"},
		{"not permitted", ErrNotPermitted, "not_permitted"},
		{"other", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("save connection: %w", ErrConcurrencyConflict)))
	assert.False(t, IsRetryable(NewTransition("accept", "declined")))
	assert.False(t, IsRetryable(nil))
}
