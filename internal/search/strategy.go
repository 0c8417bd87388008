package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jonhill90/vibes-sub001/internal/store"
)

// Strategy is one retrieval approach over the corpus.
type Strategy interface {
	Search(ctx context.Context, req Request) ([]Result, error)
}

// VectorStrategy retrieves by embedding similarity alone.
type VectorStrategy struct {
	embedder QueryEmbedder
	vectors  VectorSearcher
	logger   *slog.Logger
}

// Search implements Strategy.
func (s *VectorStrategy) Search(ctx context.Context, req Request) ([]Result, error) {
	hits, err := s.fetch(ctx, req, req.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = h
		results[i].CombinedScore = h.VectorScore
	}
	return results, nil
}

// fetch runs the embed+query leg shared with the hybrid strategy.
func (s *VectorStrategy) fetch(ctx context.Context, req Request, limit int) ([]Result, error) {
	vec, ok := s.embedder.EmbedText(ctx, req.Query)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEmbedQuery, req.Query)
	}

	filter, err := vectorFilter(req.SourceID)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Query(ctx, req.Collection, vec, filter, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ChunkID:     h.ChunkID.String(),
			DocumentID:  h.DocumentID.String(),
			ChunkIndex:  h.ChunkIndex,
			Text:        h.Text,
			VectorScore: float64(h.Score),
			MatchType:   MatchVector,
		}
	}
	return results, nil
}

// HybridStrategy fans out vector and lexical retrieval concurrently, then
// fuses the two score sets.
type HybridStrategy struct {
	vector  *VectorStrategy
	lexical LexicalSearcher
	cfg     Config
	logger  *slog.Logger
}

// Search implements Strategy. A lexical failure or timeout degrades to
// vector-only results rather than failing the call.
func (s *HybridStrategy) Search(ctx context.Context, req Request) ([]Result, error) {
	candidates := req.Limit * s.cfg.CandidateMultiplier

	var (
		vecResults []Result
		lexHits    []store.LexicalHit
		lexErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vecResults, err = s.vector.fetch(gctx, req, candidates)
		return err
	})
	g.Go(func() error {
		// Bounded separately: lexical trouble must not sink the query.
		lexCtx, cancel := context.WithTimeout(gctx, s.cfg.LexicalTimeout)
		defer cancel()
		lexHits, lexErr = s.lexical.LexicalSearch(lexCtx, req.Query, req.SourceID, candidates)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if lexErr != nil {
		s.logger.Warn("lexical search failed, degrading to vector-only",
			"query_len", len(req.Query),
			"error", lexErr)
		lexHits = nil
	}

	return s.fuse(vecResults, lexHits, req.Limit), nil
}

// fuse merges the two candidate sets by chunk ID and ranks by the weighted
// combined score.
func (s *HybridStrategy) fuse(vecResults []Result, lexHits []store.LexicalHit, limit int) []Result {
	merged := make(map[string]*Result, len(vecResults)+len(lexHits))
	for i := range vecResults {
		r := vecResults[i]
		merged[r.ChunkID] = &r
	}

	for _, h := range lexHits {
		score := normalizeRank(h.Rank, lexHits)
		if r, ok := merged[h.ChunkID]; ok {
			r.TextScore = score
			continue
		}
		merged[h.ChunkID] = &Result{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			ChunkIndex: h.ChunkIndex,
			Text:       h.Text,
			TextScore:  score,
		}
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		r.CombinedScore = s.cfg.VectorWeight*r.VectorScore + s.cfg.TextWeight*r.TextScore
		switch {
		case r.VectorScore > 0 && r.TextScore > 0:
			r.MatchType = MatchBoth
		case r.VectorScore > 0:
			r.MatchType = MatchVector
		default:
			r.MatchType = MatchText
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// lexicalScoreFloor is the smallest normalized score a retrieved lexical
// hit can carry. Min-max scaling would send the lowest-ranked candidate
// to exactly zero, where it no longer reads as a text match.
const lexicalScoreFloor = 0.05

// normalizeRank min-max scales a ts_rank score into
// [lexicalScoreFloor,1] over the retrieved candidate set. When every
// candidate scores the same, all map to 1.0.
func normalizeRank(rank float64, hits []store.LexicalHit) float64 {
	if len(hits) == 0 {
		return 0
	}
	minR, maxR := hits[0].Rank, hits[0].Rank
	for _, h := range hits[1:] {
		if h.Rank < minR {
			minR = h.Rank
		}
		if h.Rank > maxR {
			maxR = h.Rank
		}
	}
	if maxR == minR {
		return 1.0
	}
	norm := (rank - minR) / (maxR - minR)
	if norm < lexicalScoreFloor {
		return lexicalScoreFloor
	}
	return norm
}
