package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetradar/internal/service"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit sentinel", ErrRateLimit, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"retryable wrapper", &RetryableError{Err: errors.New("x"), Retryable: true}, true},
		{"non-retryable wrapper", &RetryableError{Err: errors.New("x"), Retryable: false}, false},
		{"plain error", errors.New("x"), false},
		{"wrapped rate limit overrides the flag", &RetryableError{Err: ErrRateLimit, Retryable: false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	inner := errors.New("boom")
	err := NewUserError("something went wrong", inner)

	assert.Equal(t, "something went wrong: boom", err.Error())
	assert.True(t, errors.Is(err, inner))

	var userErr *UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "something went wrong", userErr.UserMessage)

	bare := &UserError{UserMessage: "just a message"}
	assert.Equal(t, "just a message", bare.Error())
}

func TestWithRetry(t *testing.T) {
	fastOpts := service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
	ctx := context.Background()

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		attempts := 0
		err := WithRetry(ctx, func() error {
			attempts++
			return &RetryableError{Err: errors.New("bad request"), Retryable: false}
		}, fastOpts)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.False(t, errors.Is(err, ErrMaxRetries))
	})

	t.Run("retryable error retries until success", func(t *testing.T) {
		attempts := 0
		err := WithRetry(ctx, func() error {
			attempts++
			if attempts < 2 {
				return &RetryableError{Err: errors.New("try again"), Retryable: true}
			}
			return nil
		}, fastOpts)
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("exhausting attempts wraps ErrMaxRetries", func(t *testing.T) {
		attempts := 0
		err := WithRetry(ctx, func() error {
			attempts++
			return &RetryableError{Err: errors.New("still failing"), Retryable: true}
		}, fastOpts)
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.True(t, errors.Is(err, ErrMaxRetries))
	})

	t.Run("canceled context aborts between attempts", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(canceled, func() error {
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}, fastOpts)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
