package embed

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/docent-ai/docent/internal/metrics"
)

// GoogleAIProvider adapts a Genkit ai.Embedder (Gemini) to the Provider
// interface. Gemini embedding models support truncation to a smaller output
// dimensionality (Matryoshka Representation Learning), which keeps the
// stored vectors compatible with whatever dimensionality was configured.
type GoogleAIProvider struct {
	embedder   ai.Embedder
	model      string
	dimensions int
}

// NewGoogleAIProvider wraps a Genkit embedder.
func NewGoogleAIProvider(embedder ai.Embedder, model string, dimensions int) *GoogleAIProvider {
	return &GoogleAIProvider{
		embedder:   embedder,
		model:      model,
		dimensions: dimensions,
	}
}

// Embed implements Provider.
func (p *GoogleAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. Genkit preserves input order in
// resp.Embeddings, so no re-sorting is needed here.
func (p *GoogleAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := int32(p.dimensions)
	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("googleai", p.model, "error").Inc()
		return nil, fmt.Errorf("embedding texts: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues("googleai", p.model, "error").Inc()
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w", len(texts), len(resp.Embeddings), ErrEmptyResponse)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("googleai", p.model, "success").Inc()

	vecs := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("missing embedding for input %d: %w", i, ErrEmptyResponse)
		}
		vecs[i] = e.Embedding
	}

	return vecs, nil
}

// Dimensions implements Provider.
func (p *GoogleAIProvider) Dimensions() int {
	return p.dimensions
}
