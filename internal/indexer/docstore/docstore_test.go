package docstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "facts.db"),
		PoolSize: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSQLiteInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.InsertBatch(ctx, []Document{
		{ID: 0, Text: "the sky is blue"},
		{ID: 1, Text: "grass is green", Label: "colour"},
	}))

	doc, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Document{ID: 1, Text: "grass is green", Label: "colour"}, doc)

	doc, err = store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "", doc.Label)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestSQLiteBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.InsertBatch(ctx, []Document{{ID: 5, Text: "first"}}))

	err := store.InsertBatch(ctx, []Document{
		{ID: 6, Text: "second"},
		{ID: 5, Text: "duplicate id"},
	})
	require.Error(t, err)

	_, err = store.Get(ctx, 6)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound, "failed batch must roll back")
}

func TestOpenFailsFast(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(blocker, "facts.db"),
	})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "cassandra"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestBatcherFlushesAtThreshold(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	var lock sync.Mutex
	b := NewBatcher(store, &lock, 3, metrics.NewUnregistered(), discardLogger())

	for id := 0; id < 2; id++ {
		require.NoError(t, b.Add(ctx, Document{ID: id, Text: "fact"}))
	}
	assert.Equal(t, 2, b.Pending())

	require.NoError(t, b.Add(ctx, Document{ID: 2, Text: "fact"}))
	assert.Equal(t, 0, b.Pending())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBatcherDefersWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	var lock sync.Mutex
	b := NewBatcher(store, &lock, 1, metrics.NewUnregistered(), discardLogger())

	lock.Lock()
	require.NoError(t, b.Add(ctx, Document{ID: 0, Text: "waiting"}))
	assert.Equal(t, 1, b.Pending(), "flush must be skipped while another builder writes")
	lock.Unlock()

	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, 0, b.Pending())
	doc, err := store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "waiting", doc.Text)
}
