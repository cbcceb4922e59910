package sqlitepool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func TestOpenAppliesPragmas(t *testing.T) {
	var called bool
	pool, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: 2,
		OnConnect: func(conn *sqlite.Conn) error {
			called = true
			return nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)
	defer pool.Put(conn)
	require.True(t, called)

	var journalMode string
	var busy int
	err = sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			journalMode = stmt.ColumnText(0)
			return nil
		},
	})
	require.NoError(t, err)
	err = sqlitex.Execute(conn, "PRAGMA busy_timeout", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			busy = stmt.ColumnInt(0)
			return nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, "wal", journalMode)
	require.Equal(t, 60000, busy)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
