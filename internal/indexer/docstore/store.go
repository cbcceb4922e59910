// Package docstore persists the raw text of every ingested fact, keyed by
// document id, and batches inserts so builders touch the table rarely.
package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
)

// TableName is the document table shared by every backend:
// id INTEGER PRIMARY KEY, x TEXT (fact), y TEXT DEFAULT NULL (label).
const TableName = "document"

// Document is one row of the document table.
type Document struct {
	ID    int
	Text  string
	Label string
}

// Store is a durable id → text table. InsertBatch is all-or-nothing.
// Implementations must allow Get while a batch insert is in flight.
type Store interface {
	InsertBatch(ctx context.Context, docs []Document) error
	Get(ctx context.Context, id int) (Document, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Driver and makes sure the
// document table exists. Any failure is reported as ErrStorageUnavailable.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case "sqlite", "":
		store, err = OpenSQLite(ctx, cfg)
	case "postgres":
		store, err = OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, apperrors.Newf(apperrors.ErrStorageUnavailable, "unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "docstore").Info("document store ready", "driver", cfg.Driver)
	return store, nil
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStorageUnavailable, what, err)
}
