// Package executor answers queries: it ranks through the query cache when
// one is configured and resolves each ranked id to its stored fact.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/ranker"
)

// Index is the query surface of an indexer master.
type Index interface {
	Flush(ctx context.Context) error
	Rank(ctx context.Context, query string, k int) ([]ranker.ScoredDoc, error)
	Version() string
	Document(ctx context.Context, id int) (docstore.Document, error)
}

type Hit struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
	Label string  `json:"label,omitempty"`
}

type SearchResult struct {
	Query  string        `json:"query"`
	Hits   []Hit         `json:"hits"`
	Cached bool          `json:"cached"`
	Took   time.Duration `json:"took"`
}

type Executor struct {
	index  Index
	cache  *cache.QueryCache
	logger *slog.Logger
}

// New returns an Executor over idx. qc may be nil.
func New(idx Index, qc *cache.QueryCache) *Executor {
	return &Executor{
		index:  idx,
		cache:  qc,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	if err := e.index.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flushing pending documents: %w", err)
	}

	var (
		docs   []ranker.ScoredDoc
		cached bool
		err    error
	)
	rank := func() ([]ranker.ScoredDoc, error) {
		return e.index.Rank(ctx, query, limit)
	}
	if e.cache != nil {
		docs, cached, err = e.cache.GetOrCompute(ctx, query, limit, e.index.Version(), rank)
	} else {
		docs, err = rank()
	}
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		doc, err := e.index.Document(ctx, d.DocID)
		if err != nil {
			return nil, fmt.Errorf("loading document %d: %w", d.DocID, err)
		}
		hits = append(hits, Hit{DocID: d.DocID, Score: d.Score, Text: doc.Text, Label: doc.Label})
	}

	result := &SearchResult{
		Query:  query,
		Hits:   hits,
		Cached: cached,
		Took:   time.Since(start),
	}
	e.logger.Info("query executed",
		"query", query,
		"hits", len(hits),
		"cached", cached,
		"took", result.Took,
	)
	return result, nil
}
