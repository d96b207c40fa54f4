package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps blobs in the blobs table
type PostgresStore struct {
	db      *pgxpool.Pool
	baseURL string
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *pgxpool.Pool, baseURL string) *PostgresStore {
	return &PostgresStore{db: db, baseURL: baseURL}
}

// Put upserts the blob and returns its public URL
func (s *PostgresStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("blob path is required")
	}

	query := `
		INSERT INTO blobs (path, content_type, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (path) DO UPDATE
		SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, path, contentType, data); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	return publicURL(s.baseURL, path), nil
}

// Get returns the blob and its content type
func (s *PostgresStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	query := `SELECT data, content_type FROM blobs WHERE path = $1`

	var data []byte
	var contentType string
	err := s.db.QueryRow(ctx, query, path).Scan(&data, &contentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get blob: %w", err)
	}

	return data, contentType, nil
}
