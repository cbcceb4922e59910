package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/postgres"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id BIGINT PRIMARY KEY,
	x TEXT,
	y TEXT DEFAULT NULL
)`

// PostgresStore keeps the document table in PostgreSQL, for builds whose
// workers run on separate hosts.
type PostgresStore struct {
	client *postgres.Client
}

func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, unavailable("connecting to postgres", err)
	}
	if _, err := client.DB.ExecContext(ctx, postgresSchema); err != nil {
		client.Close()
		return nil, unavailable("creating document table", err)
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+TableName+` (id, x, y) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing document insert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range docs {
			label := sql.NullString{String: doc.Label, Valid: doc.Label != ""}
			if _, err := stmt.ExecContext(ctx, doc.ID, doc.Text, label); err != nil {
				return fmt.Errorf("inserting document %d: %w", doc.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Get(ctx context.Context, id int) (Document, error) {
	var text string
	var label sql.NullString
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT x, y FROM `+TableName+` WHERE id = $1`, id,
	).Scan(&text, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperrors.Newf(apperrors.ErrDocumentNotFound, "id %d", id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("looking up document %d: %w", id, err)
	}
	return Document{ID: id, Text: text, Label: label.String}, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.client.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}
