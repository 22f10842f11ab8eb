package testutil

import (
	"context"
	"sync"
)

// MockProvider is a deterministic embedding provider for testing.
//
// By default it generates a vector from content using SHA-256. Explicit
// mappings can be added for precise cosine similarity control.
//
// Thread-safe for concurrent use.
type MockProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
	err     error
}

// NewMockProvider creates a mock provider with the given vector dimensions.
func NewMockProvider(dim int) *MockProvider {
	return &MockProvider{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a given content string.
// Use this to control exact cosine similarity between test inputs.
func (p *MockProvider) SetVector(content string, vec []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[content] = vec
}

// SetError makes all subsequent calls fail with err. Pass nil to recover.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Embed implements embed.Provider.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements embed.Provider.
func (p *MockProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := p.vectors[t]; ok {
			vecs[i] = v
			continue
		}
		vecs[i] = deterministicVector(t, p.dim)
	}
	return vecs, nil
}

// Dimensions implements embed.Provider.
func (p *MockProvider) Dimensions() int {
	return p.dim
}
