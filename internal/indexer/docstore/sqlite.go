package docstore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/sqlitepool"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id INTEGER PRIMARY KEY,
	x TEXT,
	y TEXT DEFAULT NULL
) WITHOUT ROWID;`

// SQLiteStore keeps the document table in a local SQLite file.
type SQLiteStore struct {
	pool *sqlitepool.Pool
}

// OpenSQLite opens (creating if needed) the database at cfg.Path. It takes
// one connection up front so an unusable path fails here, not on first
// flush.
func OpenSQLite(ctx context.Context, cfg config.StoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, apperrors.New(apperrors.ErrStorageUnavailable, "sqlite store path is empty")
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:        cfg.Path,
		PoolSize:    cfg.PoolSize,
		BusyTimeout: cfg.BusyTimeout,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, unavailable(fmt.Sprintf("opening %s", cfg.Path), err)
	}
	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, unavailable(fmt.Sprintf("initialising %s", cfg.Path), err)
	}
	pool.Put(conn)
	return &SQLiteStore{pool: pool}, nil
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, docs []Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("beginning document batch: %w", err)
	}
	defer endFn(&err)

	stmt, err := conn.Prepare(`INSERT INTO ` + TableName + ` (id, x, y) VALUES ($id, $x, $y);`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	for _, doc := range docs {
		stmt.SetInt64("$id", int64(doc.ID))
		stmt.SetText("$x", doc.Text)
		if doc.Label == "" {
			stmt.SetNull("$y")
		} else {
			stmt.SetText("$y", doc.Label)
		}
		if _, err := stmt.Step(); err != nil {
			stmt.Reset()
			return fmt.Errorf("inserting document %d: %w", doc.ID, err)
		}
		if err := stmt.Reset(); err != nil {
			return fmt.Errorf("resetting document insert: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int) (Document, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Document{}, err
	}
	defer s.pool.Put(conn)

	doc := Document{ID: id}
	found := false
	err = sqlitex.Execute(conn, `SELECT x, y FROM `+TableName+` WHERE id = ?;`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			doc.Text = stmt.ColumnText(0)
			doc.Label = stmt.ColumnText(1)
			return nil
		},
	})
	if err != nil {
		return Document{}, fmt.Errorf("looking up document %d: %w", id, err)
	}
	if !found {
		return Document{}, apperrors.Newf(apperrors.ErrDocumentNotFound, "id %d", id)
	}
	return doc, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)
	var n int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM `+TableName+`;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	s.pool.Put(conn)
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
