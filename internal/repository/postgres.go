package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresDocumentStore keeps each document as a row in a single table.
// Update runs inside a transaction with SELECT ... FOR UPDATE, giving the
// load-transform-save cycle row-level isolation across processes.
type PostgresDocumentStore struct {
	db *sqlx.DB
}

// NewPostgresDocumentStore wraps an already-connected database handle.
func NewPostgresDocumentStore(db *sqlx.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

// Init creates the backing table when it does not exist yet.
func (s *PostgresDocumentStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
        name TEXT PRIMARY KEY,
        body JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("init documents table: %w", err)
	}
	return nil
}

// Load reads the named document, returning (nil, nil) when it does not exist.
func (s *PostgresDocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return body, nil
}

// Save replaces the named document.
func (s *PostgresDocumentStore) Save(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (name, body, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, data)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

// Update applies transform to the document inside a transaction holding the
// document's row lock.
func (s *PostgresDocumentStore) Update(ctx context.Context, name string, transform func(raw []byte) ([]byte, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update of document %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var body []byte
	err = tx.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = $1 FOR UPDATE`, name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read document %s: %w", name, err)
	}

	next, err := transform(body)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO documents (name, body, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, next)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}

	return tx.Commit()
}
