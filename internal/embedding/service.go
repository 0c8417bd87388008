package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Failure reason strings attached to BatchResult.Failed entries.
const (
	reasonEmptyText      = "empty_text"
	reasonQuotaExhausted = "quota_exhausted"
	reasonProviderError  = "provider_error"
	reasonZeroVector     = "zero_vector"
	reasonDimension      = "dimension_mismatch"
)

const (
	// previewLength bounds the text preview stored alongside cache
	// entries, counted in runes so the cut never splits a multi-byte
	// character.
	previewLength = 500

	// statsLogInterval controls how often the cache hit-rate summary is
	// emitted, counted in lookups.
	statsLogInterval = 100
)

// CacheStore persists embeddings keyed by content hash and model name.
// *store.Store satisfies this.
type CacheStore interface {
	CacheLookup(ctx context.Context, contentHash, modelName string) ([]float32, bool, error)
	CacheSave(ctx context.Context, contentHash, modelName string, embedding []float32, textPreview string) error
}

// Config holds embedding service parameters.
type Config struct {
	Model     string // Provider model identifier, used as cache key component
	Dimension int    // Expected vector dimension; mismatches are rejected
	BatchSize int    // Texts per provider call
}

// FailedItem records one input that could not be embedded.
type FailedItem struct {
	Index  int    // Position in the original input slice
	Text   string // The input text
	Reason string // One of the reason* constants
}

// BatchResult reports the outcome of a BatchEmbed call. Embeddings holds
// vectors for successful inputs only, in input order; failed inputs are
// listed in Failed. SuccessCount+FailureCount always equals the input count.
type BatchResult struct {
	Embeddings   [][]float32
	SuccessCount int
	FailureCount int
	Failed       []FailedItem
}

// CacheStats is a snapshot of the service's cache accounting.
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	HitRate       float64
}

// Service embeds text through a Provider, consulting a content-hash cache
// before each provider call. Safe for concurrent use.
type Service struct {
	provider Provider
	cache    CacheStore // nil disables caching
	model    string
	dim      int
	batch    int
	retry    retryPolicy
	logger   *slog.Logger

	mu       sync.Mutex
	requests int64
	hits     int64
	misses   int64
}

// NewService creates an embedding service. cache may be nil.
func NewService(provider Provider, cache CacheStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Service{
		provider: provider,
		cache:    cache,
		model:    cfg.Model,
		dim:      cfg.Dimension,
		batch:    cfg.BatchSize,
		retry:    defaultRetryPolicy(),
		logger:   logger,
	}
}

// EmbedText embeds a single text. Returns (nil, false) on empty input or
// any failure; callers treat false as "skip this item", never as fatal.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, bool) {
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("skipping empty text")
		return nil, false
	}

	hash := contentHash(text)
	if vec, ok := s.cacheGet(ctx, hash); ok {
		return vec, true
	}

	var vecs [][]float32
	err := s.retry.do(ctx, s.logger, func() error {
		var embedErr error
		vecs, embedErr = s.provider.Embed(ctx, []string{text})
		return embedErr
	})
	if err != nil {
		s.logger.Warn("embedding failed", "error", err, "text_len", len(text))
		return nil, false
	}
	if len(vecs) != 1 {
		s.logger.Warn("provider returned unexpected vector count", "count", len(vecs))
		return nil, false
	}

	vec := vecs[0]
	if reason := s.validateVector(vec); reason != "" {
		s.logger.Warn("rejecting embedding", "reason", reason, "dimension", len(vec))
		return nil, false
	}

	s.cachePut(ctx, hash, text, vec)
	return vec, true
}

// BatchEmbed embeds texts in sub-batches of the configured size, issued
// strictly in order. A quota-exhaustion error stops all remaining
// sub-batches; their items are reported as failed rather than retried.
func (s *Service) BatchEmbed(ctx context.Context, texts []string) BatchResult {
	type slot struct {
		vec    []float32
		ok     bool
		reason string
	}
	slots := make([]slot, len(texts))

	// Resolve empties and cache hits first so provider batches only carry
	// texts that actually need embedding.
	var pending []int
	hashes := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			slots[i] = slot{reason: reasonEmptyText}
			continue
		}
		hashes[i] = contentHash(t)
		if vec, ok := s.cacheGet(ctx, hashes[i]); ok {
			slots[i] = slot{vec: vec, ok: true}
			continue
		}
		pending = append(pending, i)
	}

	quotaHit := false
	for start := 0; start < len(pending); start += s.batch {
		end := min(start+s.batch, len(pending))
		indices := pending[start:end]

		if quotaHit {
			for _, idx := range indices {
				slots[idx] = slot{reason: reasonQuotaExhausted}
			}
			continue
		}

		batchTexts := make([]string, len(indices))
		for j, idx := range indices {
			batchTexts[j] = texts[idx]
		}

		var vecs [][]float32
		err := s.retry.do(ctx, s.logger, func() error {
			var embedErr error
			vecs, embedErr = s.provider.Embed(ctx, batchTexts)
			return embedErr
		})
		if err != nil {
			reason := reasonProviderError
			if classifyProviderError(err) == classQuota {
				quotaHit = true
				reason = reasonQuotaExhausted
				s.logger.Warn("quota exhausted, stopping batch",
					"completed", start,
					"remaining", len(pending)-start)
			} else {
				s.logger.Warn("sub-batch embedding failed",
					"size", len(indices),
					"error", err)
			}
			for _, idx := range indices {
				slots[idx] = slot{reason: reason}
			}
			continue
		}

		for j, idx := range indices {
			var vec []float32
			if j < len(vecs) {
				vec = vecs[j]
			}
			if reason := s.validateVector(vec); reason != "" {
				slots[idx] = slot{reason: reason}
				continue
			}
			slots[idx] = slot{vec: vec, ok: true}
			s.cachePut(ctx, hashes[idx], texts[idx], vec)
		}
	}

	res := BatchResult{}
	for i, sl := range slots {
		if sl.ok {
			res.Embeddings = append(res.Embeddings, sl.vec)
			res.SuccessCount++
			continue
		}
		res.FailureCount++
		res.Failed = append(res.Failed, FailedItem{Index: i, Text: texts[i], Reason: sl.reason})
	}

	s.logger.Debug("batch embed complete",
		"total", len(texts),
		"succeeded", res.SuccessCount,
		"failed", res.FailureCount)
	return res
}

// CacheStats returns a snapshot of the cache counters.
func (s *Service) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{
		TotalRequests: s.requests,
		CacheHits:     s.hits,
		CacheMisses:   s.misses,
	}
	if s.requests > 0 {
		stats.HitRate = float64(s.hits) / float64(s.requests)
	}
	return stats
}

// validateVector returns a failure reason for unusable vectors, "" if ok.
func (s *Service) validateVector(vec []float32) string {
	if s.dim > 0 && len(vec) != s.dim {
		return reasonDimension
	}
	if len(vec) == 0 {
		return reasonDimension
	}
	for _, v := range vec {
		if v != 0 {
			return ""
		}
	}
	return reasonZeroVector
}

func (s *Service) cacheGet(ctx context.Context, hash string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}

	vec, found, err := s.cache.CacheLookup(ctx, hash, s.model)
	if err != nil {
		// Cache trouble must never fail an embedding request.
		s.logger.Warn("cache lookup failed", "error", err)
		found = false
	}
	s.record(found)
	if !found {
		return nil, false
	}
	return vec, true
}

func (s *Service) cachePut(ctx context.Context, hash, text string, vec []float32) {
	if s.cache == nil {
		return
	}

	preview := text
	if runes := []rune(preview); len(runes) > previewLength {
		preview = string(runes[:previewLength])
	}
	if err := s.cache.CacheSave(ctx, hash, s.model, vec, preview); err != nil {
		s.logger.Warn("cache save failed", "error", err)
	}
}

// record updates the cache counters and periodically logs a summary.
func (s *Service) record(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	if hit {
		s.hits++
	} else {
		s.misses++
	}

	if s.requests%statsLogInterval == 0 {
		s.logger.Info("embedding cache stats",
			"requests", s.requests,
			"hits", s.hits,
			"misses", s.misses,
			"hit_rate", fmt.Sprintf("%.1f%%", float64(s.hits)/float64(s.requests)*100))
	}
}

// contentHash returns the hex SHA-256 of text, the cache key component.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
