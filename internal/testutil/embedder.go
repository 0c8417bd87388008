package testutil

import (
	"context"
	"crypto/sha256"
)

// FakeEmbedder is a deterministic embedding provider: every text maps to
// the same non-zero vector on every call, derived from its content hash.
// Satisfies embedding.Provider.
type FakeEmbedder struct {
	Dimension int
	Calls     int
}

// NewFakeEmbedder creates a fake provider producing vectors of dim.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dim}
}

// Embed implements the embedding provider contract.
func (f *FakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.Calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *FakeEmbedder) vectorFor(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, f.Dimension)
	for i := range vec {
		b := sum[i%len(sum)]
		vec[i] = (float32(b) + 1) / 256 // never zero
	}
	return vec
}
