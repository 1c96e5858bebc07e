package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 50*time.Millisecond)

	require.NoError(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	require.NoError(t, cb.Allow(), "two failures should not open a threshold-3 breaker")

	cb.RecordFailure()
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	require.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	// After the open timeout, the breaker half-opens and probes pass.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow())

	// Two half-open successes close it for good.
	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestRetryWithBackoffTransient(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	calls := 0
	err := retryWithBackoff(context.Background(), cfg, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rate limit exceeded")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffNonRetryable(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, BackoffMultiplier: 2.0}

	calls := 0
	err := retryWithBackoff(context.Background(), cfg, "test", func(ctx context.Context) error {
		calls++
		return errors.New("invalid api key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "auth errors must not be retried")
}

func TestRetryWithBackoffExhaustion(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, BackoffMultiplier: 2.0}

	calls := 0
	err := retryWithBackoff(context.Background(), cfg, "search", func(ctx context.Context) error {
		calls++
		return errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "search failed after 3 attempts")
}

func TestRetryWithBackoffCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialBackoff: 50 * time.Millisecond, BackoffMultiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, cfg, "test", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rate limit exceeded", true},
		{"429 too many requests", true},
		{"request timeout", true},
		{"context deadline exceeded", true},
		{"api overloaded", true},
		{"connection refused", true},
		{"invalid api key", false},
		{"unauthorized", false},
		{"invalid_request: bad schema", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isTransient(errors.New(tt.err)), tt.err)
	}
}
