// Package store implements the relational layer over PostgreSQL: sources,
// documents, chunks, crawl jobs, the embedding cache, and the lexical
// full-text index over chunks.
//
// Referential integrity is enforced in the schema: deleting a source
// cascades to its documents, chunks (via documents), and crawl jobs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a crawl job status update violated the
	// pending -> running -> terminal state machine.
	ErrInvalidTransition = errors.New("invalid crawl job transition")
)

// Store provides access to all relational tables.
// Safe for concurrent use; pgxpool handles connection management.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store over an existing connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// NewPool creates a pgx connection pool with pgvector types registered,
// so embedding_cache vectors scan directly into pgvector.Vector.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Pool exposes the underlying pool for callers that need raw access (tests).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
