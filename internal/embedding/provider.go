// Package embedding wraps an embedding provider with content-hash caching,
// fixed-size batching, retry with backoff, and quota-exhaustion protection.
package embedding

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Provider is the embedding backend contract. Implementations must
// distinguishably signal rate-limit/quota errors from other failures
// through their error text (see classifyProviderError).
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GenkitProvider adapts a Genkit ai.Embedder to the Provider interface.
type GenkitProvider struct {
	embedder ai.Embedder
}

// NewGenkitProvider creates a provider backed by a Genkit embedder.
func NewGenkitProvider(embedder ai.Embedder) *GenkitProvider {
	return &GenkitProvider{embedder: embedder}
}

// Embed implements Provider.
func (p *GenkitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]*ai.Document, len(texts))
	for i, t := range texts {
		input[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts",
			len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Embedding
	}
	return out, nil
}
