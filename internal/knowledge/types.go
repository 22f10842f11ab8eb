package knowledge

import (
	"errors"
	"time"
)

var (
	// ErrStoreNotInitialized indicates the documents schema is missing.
	// Run migrations before opening the store.
	ErrStoreNotInitialized = errors.New("knowledge store not initialized")

	// ErrDimensionMismatch indicates an embedding does not match the
	// dimensionality already recorded in the store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Document represents one chunk of documentation text with its metadata.
type Document struct {
	ID       string            `json:"id,omitempty"`         // UUID; generated when empty
	Name     string            `json:"name"`                 // Document name, e.g. the page slug
	Content  string            `json:"content"`              // Chunk text
	Metadata map[string]string `json:"metadata,omitempty"`   // source_url, title, and ingestion details
	CreateAt time.Time         `json:"created_at,omitempty"` // Creation timestamp
}

// Result represents a single search result.
//
// For hybrid Search the score is a fused Reciprocal Rank Fusion value
// (higher is better, typically 0.01–0.03). For VectorSearch it is cosine
// similarity in [0, 1].
type Result struct {
	Document Document
	Score    float32
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	limit   int
	timeout time.Duration
}

// WithLimit sets the maximum number of results to return.
// Default is 10 if not specified.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		c.limit = n
	}
}

// WithTimeout bounds the search query duration. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		limit:   10,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
