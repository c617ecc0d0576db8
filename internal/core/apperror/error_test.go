package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeHelpers_FollowWrapping(t *testing.T) {
	base := NewLockTimeout("data/association.db.lock", 2*time.Second)
	wrapped := fmt.Errorf("recompute all: %w", base)

	assert.True(t, IsLockTimeout(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.False(t, IsLockTimeout(errors.New("plain")))
	assert.Equal(t, "2s", base.Details["timeout"])
}

func TestTransactionFailure_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewTransactionFailure(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsTransactionFailure(err))
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidation("quantity must be positive"), "quantity must be positive"},
		{"transaction", NewTransactionFailure(errors.New("constraint")), "The operation could not be saved, try again"},
		{"lock", NewLockTimeout("x", time.Second), "Resource is busy, try again later"},
		{"foreign", errors.New("boom"), "An unexpected error occurred, try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
