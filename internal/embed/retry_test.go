package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return aerrors.New(aerrors.ErrCodeNetworkTimeout, "transient", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_Exhausts(t *testing.T) {
	boom := aerrors.New(aerrors.ErrCodeNetworkUnavailable, "boom", nil)
	attempts := 0
	err := withRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, attempts, "initial attempt plus three retries")
}

func TestWithRetry_NonRetryableFailsFast(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation error", aerrors.ValidationError("bad input", nil)},
		{"embedding error", aerrors.EmbeddingError("model rejected input", nil)},
		{"plain error", errors.New("uncoded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := withRetry(context.Background(), fastRetryConfig(), func() error {
				attempts++
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, attempts, "non-retryable errors burn no retry budget")
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, fastRetryConfig(), func() error {
		return errors.New("never retried")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
