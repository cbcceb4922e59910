// Package ingestion reads facts from line-oriented input. Each non-blank
// line is one fact; a tab separates the fact from an optional label.
package ingestion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion/validator"
)

const maxLineBytes = 4 << 20

// ErrLimitReached is returned by a Limiter once its limit is used up.
var ErrLimitReached = errors.New("fact limit reached")

// Limiter caps how many facts a source hands on. It is shared by the file
// reader and the Kafka consumer and is safe for concurrent use.
type Limiter struct {
	max      int
	accepted atomic.Int64
}

// NewLimiter returns a Limiter allowing max facts; max <= 0 means no limit.
func NewLimiter(max int) *Limiter {
	return &Limiter{max: max}
}

// Accepted reports how many facts went through.
func (l *Limiter) Accepted() int {
	return int(l.accepted.Load())
}

// Wrap returns fn gated by the limit. Once max calls have succeeded the
// returned function fails with ErrLimitReached without calling fn. Failed
// calls do not count.
func (l *Limiter) Wrap(fn func(context.Context, pool.Fact) error) func(context.Context, pool.Fact) error {
	return func(ctx context.Context, fact pool.Fact) error {
		n := l.accepted.Add(1)
		if l.max > 0 && n > int64(l.max) {
			l.accepted.Add(-1)
			return ErrLimitReached
		}
		if err := fn(ctx, fact); err != nil {
			l.accepted.Add(-1)
			return err
		}
		return nil
	}
}

// ParseLine splits one input line into a fact.
func ParseLine(line string) pool.Fact {
	text, label, _ := strings.Cut(line, "\t")
	return pool.Fact{Text: strings.TrimSpace(text), Label: strings.TrimSpace(label)}
}

// ReadFacts calls fn for every valid fact in r and stops early when fn
// returns ErrLimitReached. Invalid lines are logged and skipped. It returns
// the number of facts fn accepted.
func ReadFacts(ctx context.Context, r io.Reader, fn func(context.Context, pool.Fact) error) (int, error) {
	logger := slog.Default().With("component", "fact-reader")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		n      int
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fact := ParseLine(line)
		if err := validator.ValidateFact(fact); err != nil {
			logger.Warn("skipping invalid fact", "line", lineNo, "error", err)
			continue
		}
		if err := fn(ctx, fact); err != nil {
			if errors.Is(err, ErrLimitReached) {
				logger.Info("fact limit reached", "facts", n, "line", lineNo)
				return n, nil
			}
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading facts: %w", err)
	}
	return n, nil
}
