package indexer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/resilience"
)

const progressEvery = 10000

// finalFlushBackoff bounds the retries of a builder's last flush at
// shutdown.
var finalFlushBackoff = resilience.Backoff{MaxAttempts: 3}

func finalFlush(ctx context.Context, b *docstore.Batcher) error {
	return resilience.Retry(ctx, "final-document-flush", finalFlushBackoff, b.Flush)
}

// builder is the ingestion half common to masters and workers. It is not
// safe for concurrent use.
type builder struct {
	shared    *Shared
	tok       tokenizer.Tokenizer
	batcher   *docstore.Batcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	role      string
	processed int
}

func newBuilder(shared *Shared, tok tokenizer.Tokenizer, bufferSize int, m *metrics.Metrics, logger *slog.Logger, role string) builder {
	return builder{
		shared:  shared,
		tok:     tok,
		batcher: docstore.NewBatcher(shared.store, &shared.storeMu, bufferSize, m, logger),
		metrics: m,
		logger:  logger,
		role:    role,
	}
}

// scanned is one fact after tokenization.
type scanned struct {
	docID    int
	distinct []string
	counts   map[string]int
}

// scan assigns text a document id, counts its tokens and queues it for
// storage.
func (b *builder) scan(ctx context.Context, text, label string) (scanned, error) {
	if strings.TrimSpace(text) == "" {
		return scanned{}, apperrors.New(apperrors.ErrInvalidArgument, "empty fact")
	}
	docID := b.shared.NewDocumentID()
	tokens := b.tok.Tokenize(b.tok.Normalize(text))
	distinct, counts := index.CountTokens(tokens)

	err := b.batcher.Add(ctx, docstore.Document{ID: docID, Text: text, Label: label})

	b.processed++
	b.metrics.FactsIngestedTotal.WithLabelValues(b.role).Inc()
	b.metrics.DocumentCount.Set(float64(b.shared.DocumentCount()))
	if b.processed%progressEvery == 0 {
		b.logger.Info("processed rows", "count", b.processed)
	}
	return scanned{docID: docID, distinct: distinct, counts: counts}, err
}
