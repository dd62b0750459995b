package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/hawkeye/internal/store"
)

// Schema creates the documents table. Applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	version    BIGINT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is the subset of pgxpool.Pool the store needs
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed store.DocumentStore.
// The version token is a monotonically increasing row version.
// ⭐ SSOT: Postgres 문서 저장은 여기서만
type Store struct {
	db DBTX
}

// New creates a new postgres document store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the documents table if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Get reads the whole document
func (s *Store) Get(ctx context.Context, name string) (store.Document, error) {
	if name == "" {
		return store.Document{}, store.ErrInvalidInput
	}

	var body []byte
	var version int64
	err := s.db.QueryRow(ctx,
		`SELECT body::text, version FROM documents WHERE name = $1`, name,
	).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Document{}, nil
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to get document %s: %w", name, err)
	}

	return store.Document{Data: body, Version: strconv.FormatInt(version, 10)}, nil
}

// Put inserts (version "") or conditionally updates the document
func (s *Store) Put(ctx context.Context, name string, data []byte, version, reason string) (string, error) {
	if name == "" {
		return "", store.ErrInvalidInput
	}

	if version == "" {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO documents (name, body, version, reason, updated_at)
			VALUES ($1, $2::jsonb, 1, $3, now())
			ON CONFLICT (name) DO NOTHING
		`, name, string(data), reason)
		if err != nil {
			return "", fmt.Errorf("failed to insert document %s: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			return "", store.ErrVersionConflict
		}
		return "1", nil
	}

	current, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: version %q", store.ErrInvalidInput, version)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET body = $2::jsonb, version = version + 1, reason = $4, updated_at = now()
		WHERE name = $1 AND version = $3
	`, name, string(data), current, reason)
	if err != nil {
		return "", fmt.Errorf("failed to update document %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return "", store.ErrVersionConflict
	}

	return strconv.FormatInt(current+1, 10), nil
}
