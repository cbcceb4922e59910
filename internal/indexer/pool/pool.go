// Package pool runs a fixed set of indexer workers off one master and
// dispatches facts to them round-robin.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/logger"
)

// Fact is one unit of input text with an optional label.
type Fact struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// Pool owns W workers, each draining its own queue in a goroutine. With
// zero workers facts go straight to the master.
type Pool struct {
	master *indexer.Master
	queues []chan Fact
	group  *errgroup.Group
	gctx   context.Context
	logger *slog.Logger

	// mu is held for reading while sending so Shutdown never closes a
	// queue under a sender.
	mu     sync.RWMutex
	next   atomic.Uint64
	closed bool
}

// New creates numWorkers workers registered with master and starts them.
func New(ctx context.Context, master *indexer.Master, numWorkers, queueSize int) (*Pool, error) {
	if numWorkers < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "worker count must be non-negative, got %d", numWorkers)
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		master: master,
		queues: make([]chan Fact, numWorkers),
		group:  group,
		gctx:   gctx,
		logger: logger.WithComponent("worker-pool"),
	}
	for i := 0; i < numWorkers; i++ {
		w, err := indexer.NewWorker(master)
		if err != nil {
			return nil, fmt.Errorf("creating worker %d: %w", i, err)
		}
		queue := make(chan Fact, queueSize)
		p.queues[i] = queue
		group.Go(func() error {
			return run(gctx, w, queue)
		})
	}
	p.logger.Info("worker pool ready", "workers", numWorkers)
	return p, nil
}

// run ingests everything on queue and then hands the worker's data to the
// master.
func run(ctx context.Context, w *indexer.Worker, queue <-chan Fact) error {
	log := logger.WithWorker("worker-pool", w.Index())
	for fact := range queue {
		if err := ingest(ctx, w, fact, log); err != nil {
			if shutdownErr := w.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
				log.Error("worker shutdown after failure", "error", shutdownErr)
			}
			return err
		}
	}
	return w.Shutdown(context.WithoutCancel(ctx))
}

// ingest adds one fact to b. Bad facts are logged and skipped, and a failed
// store flush leaves the documents pending for the next flush; only fatal
// errors are returned.
func ingest(ctx context.Context, b indexer.Builder, fact Fact, log *slog.Logger) error {
	err := b.IngestLabeled(ctx, fact.Text, fact.Label)
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, apperrors.ErrInvalidArgument):
		log.Warn("skipping fact", "error", err)
		return nil
	case apperrors.Fatal(err), apperrors.Is(err, apperrors.ErrClosed):
		return err
	default:
		log.Error("ingest failed", "error", err)
		return nil
	}
}

// Submit hands fact to the next worker, blocking while its queue is full.
func (p *Pool) Submit(ctx context.Context, fact Fact) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return apperrors.New(apperrors.ErrClosed, "worker pool is shut down")
	}
	if len(p.queues) == 0 {
		return ingest(ctx, p.master, fact, p.logger)
	}
	queue := p.queues[(p.next.Add(1)-1)%uint64(len(p.queues))]

	select {
	case queue <- fact:
		return nil
	case <-p.gctx.Done():
		return fmt.Errorf("worker pool stopped: %w", context.Cause(p.gctx))
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes every queue, waits for the workers to drain and hand off
// their data, then shuts the master down.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return apperrors.New(apperrors.ErrClosed, "worker pool is shut down")
	}
	p.closed = true
	p.mu.Unlock()

	for _, q := range p.queues {
		close(q)
	}
	workerErr := p.group.Wait()
	if workerErr != nil {
		p.logger.Error("worker failed", "error", workerErr)
	}
	if err := p.master.Shutdown(ctx); err != nil {
		return err
	}
	return workerErr
}
