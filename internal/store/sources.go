package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateSource inserts a new source. A zero ID is assigned a fresh UUID.
func (s *Store) CreateSource(ctx context.Context, src *Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.Status == "" {
		src.Status = SourceStatusActive
	}

	enabled, err := json.Marshal(src.EnabledCollections)
	if err != nil {
		return fmt.Errorf("marshal enabled_collections: %w", err)
	}
	names, err := json.Marshal(src.CollectionNames)
	if err != nil {
		return fmt.Errorf("marshal collection_names: %w", err)
	}
	metadata, err := json.Marshal(src.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sources (id, source_type, url, status, enabled_collections, collection_names, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		src.ID, src.SourceType, src.URL, src.Status, enabled, names, metadata)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}

	s.logger.Debug("created source", "source_id", src.ID, "source_type", src.SourceType)
	return nil
}

// GetSource fetches a source by ID. Returns ErrNotFound if missing.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_type, COALESCE(url, ''), status,
		       enabled_collections, collection_names, metadata, created_at, updated_at
		FROM sources WHERE id = $1`, id)

	var src Source
	var enabled, names, metadata []byte
	err := row.Scan(&src.ID, &src.SourceType, &src.URL, &src.Status,
		&enabled, &names, &metadata, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("source %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}

	if err := json.Unmarshal(enabled, &src.EnabledCollections); err != nil {
		return nil, fmt.Errorf("parse enabled_collections: %w", err)
	}
	if err := json.Unmarshal(names, &src.CollectionNames); err != nil {
		return nil, fmt.Errorf("parse collection_names: %w", err)
	}
	if err := json.Unmarshal(metadata, &src.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &src, nil
}

// UpdateSourceCollections persists the content type -> collection name map
// after vector collections have been created for the source.
func (s *Store) UpdateSourceCollections(ctx context.Context, id string, names map[string]string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal collection_names: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sources SET collection_names = $2, updated_at = now() WHERE id = $1`,
		id, data)
	if err != nil {
		return fmt.Errorf("update source collections: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source. The schema cascades the delete to the
// source's documents, their chunks, and its crawl jobs.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %q: %w", id, ErrNotFound)
	}

	s.logger.Debug("deleted source", "source_id", id)
	return nil
}
