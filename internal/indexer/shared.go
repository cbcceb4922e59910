// Package indexer builds the retrieval index. A Master owns the merged
// vocabulary, frequency records and derived matrices; Workers ingest facts in
// parallel with private vocabularies and hand everything to the master on
// shutdown.
package indexer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
)

// Builder is the ingestion surface shared by masters and workers.
type Builder interface {
	Ingest(ctx context.Context, text string) error
	IngestLabeled(ctx context.Context, text, label string) error
	Shutdown(ctx context.Context) error
}

var (
	_ Builder = (*Master)(nil)
	_ Builder = (*Worker)(nil)
)

// Shared is the state a master hands to every worker it creates: the
// document id counter, the store write lock and the queue on which workers
// announce that their data is ready.
type Shared struct {
	docs    atomic.Int64
	storeMu sync.Mutex
	store   docstore.Store
	notify  chan int
}

func newShared(store docstore.Store) *Shared {
	return &Shared{
		store:  store,
		notify: make(chan int),
	}
}

// NewDocumentID returns a fresh id, strictly greater than every id issued
// before it.
func (s *Shared) NewDocumentID() int {
	return int(s.docs.Add(1) - 1)
}

// DocumentCount is the number of ids issued so far.
func (s *Shared) DocumentCount() int {
	return int(s.docs.Load())
}

// reserve raises the counter to at least n.
func (s *Shared) reserve(n int) {
	for {
		cur := s.docs.Load()
		if cur >= int64(n) || s.docs.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

func (s *Shared) Store() docstore.Store {
	return s.store
}
