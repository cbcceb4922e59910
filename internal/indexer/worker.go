package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
)

// Worker ingests facts into a private vocabulary and frequency list. It
// shares the master's document counter and store lock, and hands its data
// to the master on Shutdown. A Worker is not safe for concurrent use; run
// one per goroutine.
type Worker struct {
	builder
	master *Master
	index  int
	out    chan Message
	vocab  *vocab.Vocabulary
	freqs  *index.FrequencyList
	closed bool
}

// NewWorker registers a new worker with m. It fails with ErrClosed once the
// master has begun shutting down.
func NewWorker(m *Master) (*Worker, error) {
	idx, out, err := m.register()
	if err != nil {
		return nil, err
	}
	log := m.opts.Logger.With("role", "worker", "worker", idx)
	return &Worker{
		builder: newBuilder(m.shared, m.opts.Tokenizer, m.opts.BufferSize, m.opts.Metrics, log, "worker"),
		master:  m,
		index:   idx,
		out:     out,
		vocab:   vocab.New(),
		freqs:   index.NewFrequencyList(),
	}, nil
}

func (w *Worker) Index() int {
	return w.index
}

func (w *Worker) Ingest(ctx context.Context, text string) error {
	return w.IngestLabeled(ctx, text, "")
}

func (w *Worker) IngestLabeled(ctx context.Context, text, label string) error {
	if w.closed {
		return apperrors.Newf(apperrors.ErrClosed, "worker %d is shut down", w.index)
	}
	fact, err := w.scan(ctx, text, label)
	if apperrors.Is(err, apperrors.ErrInvalidArgument) {
		return err
	}
	for _, token := range fact.distinct {
		w.freqs.Append(index.Record{
			TokenID: w.vocab.ID(token),
			DocID:   fact.docID,
			Count:   fact.counts[token],
		})
	}
	return err
}

// Shutdown flushes the worker's documents, sends its vocabulary, its
// records and an end-of-stream marker to the master, then announces itself
// on the shared queue. The final flush is retried; if it still fails the
// index data is handed off anyway and the flush error is returned.
func (w *Worker) Shutdown(ctx context.Context) error {
	if w.closed {
		return apperrors.Newf(apperrors.ErrClosed, "worker %d is shut down", w.index)
	}
	w.closed = true

	flushErr := finalFlush(ctx, w.batcher)
	if flushErr != nil {
		flushErr = fmt.Errorf("worker %d flushing documents: %w", w.index, flushErr)
		w.logger.Error("final flush failed, handing off index data anyway",
			"pending", w.batcher.Pending(), "error", flushErr)
	}

	// out has room for all three messages.
	w.out <- VocabularyMessage{Tokens: w.vocab.Tokens()}
	w.out <- FrequenciesMessage{
		TokenIDs: w.freqs.TokenIDs,
		DocIDs:   w.freqs.DocIDs,
		Counts:   w.freqs.Counts,
	}
	w.out <- EndOfStream{}
	w.logger.Info("all data sent", "tokens", w.vocab.Len(), "records", w.freqs.Len())
	w.freqs.Reset()

	return errors.Join(flushErr, w.master.announce(ctx, w.index))
}
