// Package resilience keeps optional or remote dependencies (the Kafka
// producer, the Redis query cache) from stalling or failing the retriever:
// bounded retry with backoff, and a breaker that stops calling a dependency
// after repeated failures.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff controls Retry. Zero fields take defaults.
type Backoff struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// Retryable reports whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

func (b Backoff) withDefaults() Backoff {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 3
	}
	if b.InitialDelay <= 0 {
		b.InitialDelay = 100 * time.Millisecond
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 10 * time.Second
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	if b.JitterFraction <= 0 {
		b.JitterFraction = 0.1
	}
	return b
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx ends.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)
	var lastErr error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if b.Retryable != nil && !b.Retryable(lastErr) {
			return lastErr
		}
		if attempt == b.MaxAttempts {
			break
		}
		delay := b.delay(attempt)
		logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", b.MaxAttempts,
			"error", lastErr,
			"next_delay", delay,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", name, b.MaxAttempts, lastErr)
}

func (b Backoff) delay(attempt int) time.Duration {
	backoff := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	backoff += backoff * b.JitterFraction * (2*rand.Float64() - 1)
	if backoff > float64(b.MaxDelay) {
		backoff = float64(b.MaxDelay)
	}
	if backoff < 0 {
		backoff = float64(b.InitialDelay)
	}
	return time.Duration(backoff)
}
