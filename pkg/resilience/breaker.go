package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Breaker.Do while the breaker is open.
var ErrOpen = errors.New("breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker opens after Threshold consecutive failures and lets a single
// probe through once Cooldown has passed.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	// ignore marks errors that are answers rather than failures, such as a
	// cache miss.
	ignore func(error) bool
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker. threshold and cooldown default to 5
// and 30s when not positive. ignore may be nil.
func NewBreaker(name string, threshold int, cooldown time.Duration, ignore func(error) bool) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		ignore:    ignore,
		now:       time.Now,
		logger:    slog.Default().With("component", "breaker", "name", name),
	}
}

// Do runs fn unless the breaker is open, and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return fmt.Errorf("%w: %s", ErrOpen, b.name)
		}
		b.state = StateHalfOpen
		b.probing = true
		b.logger.Info("breaker half-open, probing")
	case StateHalfOpen:
		if b.probing {
			return fmt.Errorf("%w: %s (probe in flight)", ErrOpen, b.name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil || (b.ignore != nil && b.ignore(err)) {
		if b.state != StateClosed {
			b.logger.Info("breaker closed")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		if b.state != StateOpen {
			b.logger.Warn("breaker opened", "consecutive_failures", b.failures, "error", err)
		}
		b.state = StateOpen
		b.openedAt = b.now()
	}
}
