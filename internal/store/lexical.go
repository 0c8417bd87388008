package store

import (
	"context"
	"fmt"
)

// LexicalSearch runs a full-text query over the chunk corpus using
// websearch_to_tsquery and ts_rank. sourceID narrows the corpus to one
// source when non-empty. Results are ordered by rank, descending; callers
// normalize the unbounded rank scores.
func (s *Store) LexicalSearch(ctx context.Context, query, sourceID string, limit int) ([]LexicalHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var srcFilter any
	if sourceID != "" {
		srcFilter = sourceID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.text,
		       ts_rank(to_tsvector('english', c.text), websearch_to_tsquery('english', $1)) AS rank
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE to_tsvector('english', c.text) @@ websearch_to_tsquery('english', $1)
		  AND ($2::uuid IS NULL OR d.source_id = $2)
		ORDER BY rank DESC, c.id ASC
		LIMIT $3`,
		query, srcFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.ChunkIndex, &h.Text, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
