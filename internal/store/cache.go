package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// CacheLookup fetches a cached embedding by (content hash, model name).
// A hit bumps access_count and refreshes last_accessed_at in the same
// statement. Returns (nil, false, nil) on a miss.
func (s *Store) CacheLookup(ctx context.Context, contentHash, modelName string) ([]float32, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE embedding_cache
		SET access_count = access_count + 1, last_accessed_at = now()
		WHERE content_hash = $1 AND model_name = $2
		RETURNING embedding`,
		contentHash, modelName)

	var vec pgvector.Vector
	err := row.Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return vec.Slice(), true, nil
}

// CacheSave stores an embedding under (content hash, model name). Concurrent
// inserts of the same key are resolved by keeping the existing entry.
func (s *Store) CacheSave(ctx context.Context, contentHash, modelName string, embedding []float32, textPreview string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO embedding_cache (content_hash, model_name, embedding, text_preview)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_hash, model_name) DO NOTHING`,
		contentHash, modelName, pgvector.NewVector(embedding), textPreview)
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	return nil
}
