package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("permanent")
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetryWithResultReturnsValue(t *testing.T) {
	got, err := RetryWithResult(context.Background(), fastRetryConfig(2), func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastRetryConfig(5), func() error {
		calls++
		cancel()
		return errors.New("always")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation interrupts before the next attempt")
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	initial := 2 * time.Second
	max := 30 * time.Second

	assert.Equal(t, 2*time.Second, CalculateBackoff(0, initial, max, 2.0))
	assert.Equal(t, 4*time.Second, CalculateBackoff(1, initial, max, 2.0))
	assert.Equal(t, 8*time.Second, CalculateBackoff(2, initial, max, 2.0))
	assert.Equal(t, max, CalculateBackoff(10, initial, max, 2.0))
}
