// Package embed defines the embedding provider abstraction used by the
// knowledge store and its OpenAI and Google AI implementations.
//
// Providers return plain []float32 vectors; conversion to pgvector types
// happens at the storage boundary.
package embed

import (
	"context"
	"errors"
)

var (
	// ErrProvider wraps upstream embedding API failures.
	ErrProvider = errors.New("embedding provider error")

	// ErrEmptyResponse indicates the provider returned no embeddings.
	ErrEmptyResponse = errors.New("empty embedding response")
)

// Provider generates vector embeddings for text.
//
// Implementations must return vectors of a fixed dimensionality for their
// lifetime; Dimensions reports that value so the store can validate inserts.
type Provider interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the output dimensionality of this provider.
	Dimensions() int
}
