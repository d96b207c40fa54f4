package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/metrics"
)

const (
	upsertMergeQuery = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb || COALESCE(
			(SELECT jsonb_object_agg(k, to_jsonb(NOW())) FROM unnest($4::text[]) AS k),
			'{}'::jsonb), NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = documents.data || EXCLUDED.data, updated_at = NOW()
	`

	upsertOverwriteQuery = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb || COALESCE(
			(SELECT jsonb_object_agg(k, to_jsonb(NOW())) FROM unnest($4::text[]) AS k),
			'{}'::jsonb), NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
	`
)

// PostgresStore keeps documents in the documents table
type PostgresStore struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.With().Str("component", "docstore").Logger(),
	}
}

// Get fetches a document by collection and id
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	query := `
		SELECT id, data, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	var doc Document
	err := s.db.QueryRow(ctx, query, collection, id).Scan(&doc.ID, &doc.Data, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.fail("get", collection, fmt.Errorf("failed to get document: %w", err))
	}

	return &doc, nil
}

// Set upserts a document, merging top-level keys unless Overwrite is given
func (s *PostgresStore) Set(ctx context.Context, collection, id string, data any, opts ...SetOption) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	fields, err := encodeObject(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	o := applyOptions(opts)
	query := upsertMergeQuery
	if o.overwrite {
		query = upsertOverwriteQuery
	}
	stamps := o.serverTimestamps
	if stamps == nil {
		stamps = []string{}
	}

	if _, err := s.db.Exec(ctx, query, collection, id, string(raw), stamps); err != nil {
		return s.fail("set", collection, fmt.Errorf("failed to set document: %w", err))
	}

	return nil
}

// Delete removes a document
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	if _, err := s.db.Exec(ctx, query, collection, id); err != nil {
		return s.fail("delete", collection, fmt.Errorf("failed to delete document: %w", err))
	}

	return nil
}

// List returns every document in a collection ordered by id
func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	query := `
		SELECT id, data, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, collection)
	if err != nil {
		return nil, s.fail("list", collection, fmt.Errorf("failed to list documents: %w", err))
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.UpdatedAt); err != nil {
			return nil, s.fail("list", collection, fmt.Errorf("failed to scan document: %w", err))
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, s.fail("list", collection, fmt.Errorf("error iterating documents: %w", err))
	}

	return docs, nil
}

// Add stores a document under a new UUID and returns the id
func (s *PostgresStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, Overwrite()); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) fail(op, collection string, err error) error {
	metrics.DocumentStoreErrors.WithLabelValues(op).Inc()
	s.logger.Error().Err(err).Str("operation", op).Str("collection", collection).Msg("document store operation failed")
	return err
}
