package rag

import (
	"context"
	"fmt"

	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/metrics"
)

// searcher is the slice of knowledge.Store the retriever depends on.
type searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retriever turns raw store hits into a curated chunk list.
//
// The pipeline: over-fetch candidates, drop low-relevance hits (unless that
// would empty the result), cap chunks per source page, truncate to the
// requested count, and strip ingestion metadata.
type Retriever struct {
	store  searcher
	logger log.Logger
}

// New creates a Retriever over the given store.
func New(store searcher, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{store: store, logger: logger.With("component", "rag")}
}

// Retrieve returns up to numDocs curated chunks for the query.
// numDocs <= 0 means DefaultNumDocuments. Returns nil when nothing matched.
func (r *Retriever) Retrieve(ctx context.Context, query string, numDocs int) ([]knowledge.Result, error) {
	if numDocs <= 0 {
		numDocs = DefaultNumDocuments
	}

	candidates, err := r.store.Search(ctx, query, knowledge.WithLimit(numDocs*RetrievalMultiplier))
	if err != nil {
		return nil, fmt.Errorf("searching knowledge store: %w", err)
	}
	if len(candidates) == 0 {
		metrics.RetrievalChunksReturned.Observe(0)
		return nil, nil
	}

	results := filterByScore(candidates)
	if len(results) == 0 {
		// A weak answer beats no answer; fall back to the unfiltered set.
		r.logger.Debug("all candidates below score floor, keeping unfiltered set",
			"candidates", len(candidates))
		results = candidates
	}

	results = capPerSource(results)

	if len(results) > numDocs {
		results = results[:numDocs]
	}

	for i := range results {
		results[i].Document.Metadata = cleanMetadata(results[i].Document.Metadata)
	}

	metrics.RetrievalChunksReturned.Observe(float64(len(results)))
	return results, nil
}

// filterByScore drops results below MinScore, preserving order.
func filterByScore(results []knowledge.Result) []knowledge.Result {
	kept := make([]knowledge.Result, 0, len(results))
	for _, res := range results {
		if res.Score >= MinScore {
			kept = append(kept, res)
		}
	}
	return kept
}

// capPerSource limits each source to MaxChunksPerURL chunks, preserving
// order. A chunk's source identity is its source_url, falling back to the
// document name. Chunks with neither are never capped against each other.
func capPerSource(results []knowledge.Result) []knowledge.Result {
	seen := make(map[string]int)
	kept := make([]knowledge.Result, 0, len(results))

	for _, res := range results {
		key := res.Document.Metadata[MetaSourceURL]
		if key == "" {
			key = res.Document.Name
		}
		if key != "" {
			if seen[key] >= MaxChunksPerURL {
				continue
			}
			seen[key]++
		}
		kept = append(kept, res)
	}
	return kept
}

// cleanMetadata strips ingestion-time keys, keeping source attribution.
func cleanMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	cleaned := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cleaned[k] = v
	}
	for _, k := range noisyMetadataKeys {
		delete(cleaned, k)
	}
	return cleaned
}
