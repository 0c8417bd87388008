package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDocumentWithChunks inserts a document and its surviving chunks in a
// single transaction. beforeCommit runs after the rows are written but
// before the transaction commits; if it fails the transaction rolls back.
//
// The orchestrator passes the vector upsert as beforeCommit so that a chunk
// row is never visible without its corresponding vector point.
func (s *Store) CreateDocumentWithChunks(ctx context.Context, doc *Document, chunks []Chunk, beforeCommit func(context.Context) error) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, source_id, title, document_type, url, collection, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.SourceID, doc.Title, doc.DocumentType, doc.URL, doc.Collection, metadata)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	rows := make([][]any, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.DocumentID = doc.ID
		rows = append(rows, []any{c.ID, c.DocumentID, c.ChunkIndex, c.Text, c.TokenCount, c.StartChar, c.EndChar})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"chunks"},
		[]string{"id", "document_id", "chunk_index", "text", "token_count", "start_char", "end_char"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return fmt.Errorf("pre-commit hook: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}

	s.logger.Debug("stored document", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

// GetDocument fetches a document by ID. Returns ErrNotFound if missing.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, title, document_type, COALESCE(url, ''), collection,
		       metadata, created_at, updated_at
		FROM documents WHERE id = $1`, id)

	var doc Document
	var metadata []byte
	err := row.Scan(&doc.ID, &doc.SourceID, &doc.Title, &doc.DocumentType, &doc.URL,
		&doc.Collection, &metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document; chunk rows cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	}

	s.logger.Debug("deleted document", "document_id", id)
	return nil
}

// ListChunks returns a document's chunks ordered by chunk index.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, text, token_count, start_char, end_char, created_at
		FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text,
			&c.TokenCount, &c.StartChar, &c.EndChar, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of chunk rows for a document.
func (s *Store) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}
