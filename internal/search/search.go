// Package search implements retrieval over the chunk corpus: pure vector
// similarity or hybrid vector+lexical with weighted score fusion.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonhill90/vibes-sub001/internal/store"
	"github.com/jonhill90/vibes-sub001/internal/vectorstore"
)

var (
	// ErrEmbedQuery indicates the query text could not be embedded.
	ErrEmbedQuery = errors.New("failed to embed query")

	// ErrInvalidMode indicates an unknown search mode string.
	ErrInvalidMode = errors.New("invalid search mode")
)

// Mode selects the retrieval strategy.
type Mode int

const (
	// ModeAuto picks hybrid retrieval, the better default.
	ModeAuto Mode = iota
	// ModeVector runs pure vector similarity.
	ModeVector
	// ModeHybrid fuses vector and lexical signals.
	ModeHybrid
)

// ParseMode maps a mode string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "vector":
		return ModeVector, nil
	case "hybrid":
		return ModeHybrid, nil
	default:
		return ModeAuto, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Match types reported per result.
const (
	MatchBoth   = "both"
	MatchVector = "vector"
	MatchText   = "text"
)

// Request is one search call.
type Request struct {
	Query      string
	Collection string // vector collection to query
	SourceID   string // optional source filter, empty means all
	Limit      int
	Mode       Mode
}

// Result is one ranked chunk.
type Result struct {
	ChunkID       string
	DocumentID    string
	ChunkIndex    int
	Text          string
	VectorScore   float64
	TextScore     float64
	CombinedScore float64
	MatchType     string
}

// QueryEmbedder embeds query text. *embedding.Service satisfies this.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, bool)
}

// VectorSearcher queries a vector collection. *vectorstore.Store satisfies
// this.
type VectorSearcher interface {
	Query(ctx context.Context, collection string, vector []float32, filter vectorstore.Filter, limit int) ([]vectorstore.Hit, error)
}

// LexicalSearcher runs full-text retrieval. *store.Store satisfies this.
type LexicalSearcher interface {
	LexicalSearch(ctx context.Context, query, sourceID string, limit int) ([]store.LexicalHit, error)
}

// Config tunes the engine.
type Config struct {
	VectorWeight        float64       // default 0.7
	TextWeight          float64       // default 0.3
	CandidateMultiplier int           // over-fetch factor per sub-query, default 3
	LexicalTimeout      time.Duration // budget for the lexical sub-query, default 80ms
}

func (c Config) withDefaults() Config {
	if c.VectorWeight == 0 && c.TextWeight == 0 {
		c.VectorWeight, c.TextWeight = 0.7, 0.3
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = 3
	}
	if c.LexicalTimeout <= 0 {
		c.LexicalTimeout = 80 * time.Millisecond
	}
	return c
}

// Engine routes searches to a strategy by mode.
type Engine struct {
	vector Strategy
	hybrid Strategy
	logger *slog.Logger
}

// New creates a search engine over the given backends.
func New(embedder QueryEmbedder, vectors VectorSearcher, lexical LexicalSearcher, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	vs := &VectorStrategy{embedder: embedder, vectors: vectors, logger: logger}
	return &Engine{
		vector: vs,
		hybrid: &HybridStrategy{
			vector:  vs,
			lexical: lexical,
			cfg:     cfg,
			logger:  logger,
		},
		logger: logger,
	}
}

// Select returns the strategy for a mode. ModeAuto resolves to hybrid.
func (e *Engine) Select(mode Mode) Strategy {
	if mode == ModeVector {
		return e.vector
	}
	return e.hybrid
}

// Search runs a request through the strategy its mode selects.
func (e *Engine) Search(ctx context.Context, req Request) ([]Result, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}

	start := time.Now()
	results, err := e.Select(req.Mode).Search(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search completed",
		"query_len", len(req.Query),
		"mode", req.Mode,
		"results", len(results),
		"elapsed", time.Since(start))
	return results, nil
}

func vectorFilter(sourceID string) (vectorstore.Filter, error) {
	if sourceID == "" {
		return vectorstore.Filter{}, nil
	}
	id, err := uuid.Parse(sourceID)
	if err != nil {
		return vectorstore.Filter{}, fmt.Errorf("invalid source id %q: %w", sourceID, err)
	}
	return vectorstore.Filter{SourceID: id}, nil
}
