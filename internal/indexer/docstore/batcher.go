package docstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
)

// DefaultBufferSize is the number of pending inserts that triggers an
// opportunistic flush.
const DefaultBufferSize = 1000

// Batcher queues one builder's pending inserts. Every builder in a build owns
// a Batcher, and all of them share one write lock, so at most one batch is
// written to the store at a time.
//
// A Batcher is used by a single goroutine; the shared lock is the only
// coordination between Batchers.
type Batcher struct {
	store     Store
	lock      *sync.Mutex
	pending   []Document
	threshold int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewBatcher(store Store, lock *sync.Mutex, threshold int, m *metrics.Metrics, logger *slog.Logger) *Batcher {
	if threshold <= 0 {
		threshold = DefaultBufferSize
	}
	return &Batcher{
		store:     store,
		lock:      lock,
		pending:   make([]Document, 0, threshold),
		threshold: threshold,
		metrics:   m,
		logger:    logger,
	}
}

// Add queues doc. Once the threshold is reached it tries to flush without
// waiting: if another builder holds the write lock the batch simply keeps
// growing until the next attempt.
func (b *Batcher) Add(ctx context.Context, doc Document) error {
	b.pending = append(b.pending, doc)
	if len(b.pending) < b.threshold {
		return nil
	}
	if !b.lock.TryLock() {
		b.metrics.StoreFlushesTotal.WithLabelValues("opportunistic", "deferred").Inc()
		b.logger.Debug("document flush deferred, store busy", "pending", len(b.pending))
		return nil
	}
	defer b.lock.Unlock()
	return b.write(ctx, "opportunistic")
}

// Flush writes everything pending, waiting for the write lock if needed.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.write(ctx, "blocking")
}

func (b *Batcher) Pending() int {
	return len(b.pending)
}

// write must be called with the lock held. The pending list is kept on
// failure so a later flush retries the same batch.
func (b *Batcher) write(ctx context.Context, mode string) error {
	if err := b.store.InsertBatch(ctx, b.pending); err != nil {
		b.metrics.StoreFlushesTotal.WithLabelValues(mode, "error").Inc()
		b.logger.Error("document flush failed", "mode", mode, "pending", len(b.pending), "error", err)
		return err
	}
	b.metrics.StoreFlushesTotal.WithLabelValues(mode, "ok").Inc()
	b.metrics.StoreFlushSize.Observe(float64(len(b.pending)))
	b.logger.Debug("documents flushed", "mode", mode, "count", len(b.pending))
	b.pending = b.pending[:0]
	return nil
}
