package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMiss = errors.New("miss")

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("cache", 2, time.Minute, func(err error) bool { return errors.Is(err, errMiss) })
	b.now = func() time.Time { return now }
	boom := errors.New("connection refused")

	assert.ErrorIs(t, b.Do(func() error { return errMiss }), errMiss)
	assert.Equal(t, StateClosed, b.State(), "ignored errors are not failures")

	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	require.Equal(t, StateOpen, b.State())

	called := false
	assert.ErrorIs(t, b.Do(func() error { called = true; return nil }), ErrOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("cache", 1, time.Second, nil)
	b.now = func() time.Time { return now }
	boom := errors.New("timeout")

	_ = b.Do(func() error { return boom })
	now = now.Add(2 * time.Second)
	_ = b.Do(func() error { return boom })
	assert.Equal(t, StateOpen, b.State())
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	attempts := 0
	err := Retry(ctx, "publish", fast, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	permanent := errors.New("message too large")
	attempts = 0
	fast.Retryable = func(err error) bool { return !errors.Is(err, permanent) }
	err = Retry(ctx, "publish", fast, func(context.Context) error {
		attempts++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}
