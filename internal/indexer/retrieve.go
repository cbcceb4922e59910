package indexer

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
)

// Rank scores every document against query and returns the best k in
// descending score order. Query tokens missing from the vocabulary are
// ignored; a query with no known tokens ranks nothing.
func (m *Master) Rank(ctx context.Context, query string, k int) ([]ranker.ScoredDoc, error) {
	if k < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "max results must be non-negative, got %d", k)
	}
	start := time.Now()
	docs, err := m.rank(query, k)
	m.opts.Metrics.RetrieveLatency.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		m.opts.Metrics.RetrieveQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	case len(docs) == 0:
		m.opts.Metrics.RetrieveQueriesTotal.WithLabelValues("zero_result").Inc()
	default:
		m.opts.Metrics.RetrieveQueriesTotal.WithLabelValues("hit").Inc()
	}
	m.opts.Metrics.RetrieveResultsCount.Observe(float64(len(docs)))
	m.logger.Debug("query ranked", "query", query, "results", len(docs))
	return docs, nil
}

func (m *Master) rank(query string, k int) ([]ranker.ScoredDoc, error) {
	tokens := m.opts.Tokenizer.Tokenize(m.opts.Tokenizer.Normalize(query))

	m.mu.Lock()
	rowCounts := make(map[int]int, len(tokens))
	for _, token := range tokens {
		if id, ok := m.vocab.Lookup(token); ok {
			rowCounts[int(id)]++
		}
	}
	if len(rowCounts) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	t, err := m.tfidfLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Built matrices are never mutated, so scoring runs unlocked.
	terms := ranker.QueryVector(rowCounts, t.idfs)
	return ranker.TopK(ranker.Score(t.weights, terms), k), nil
}

// Retrieve flushes pending documents, ranks query and returns a lazy
// sequence of the matching fact texts, best first. Each text is read from
// the store as the sequence is consumed. The sequence can be ranged only
// once.
func (m *Master) Retrieve(ctx context.Context, query string, maxResults int) (iter.Seq2[string, error], error) {
	if err := m.Flush(ctx); err != nil {
		return nil, err
	}
	docs, err := m.Rank(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			return
		}
		for _, d := range docs {
			doc, err := m.Document(ctx, d.DocID)
			if !yield(doc.Text, err) || err != nil {
				return
			}
		}
	}, nil
}

// Document reads one stored fact.
func (m *Master) Document(ctx context.Context, id int) (docstore.Document, error) {
	return m.shared.store.Get(ctx, id)
}
