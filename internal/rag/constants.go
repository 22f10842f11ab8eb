// Package rag curates raw knowledge store hits into the chunk set handed to
// the model: over-fetch, score filter, per-source cap, metadata cleaning.
package rag

// Retrieval tuning constants.
const (
	// DefaultNumDocuments is the number of chunks returned to the model
	// when the caller does not specify a count.
	DefaultNumDocuments = 10

	// RetrievalMultiplier over-fetches candidates before curation so the
	// per-source cap and score filter still leave enough material.
	RetrievalMultiplier = 5

	// MinScore is the relevance floor on the fused RRF scale. A lone
	// rank-40 hit scores ~0.01; anything below that is noise.
	MinScore = 0.01

	// MaxChunksPerURL caps how many chunks a single source page may
	// contribute, keeping one long page from crowding out the rest.
	MaxChunksPerURL = 2
)

// Metadata keys used on stored chunks.
const (
	// MetaSourceURL is the canonical URL of the page a chunk came from.
	MetaSourceURL = "source_url"

	// MetaTitle is the page title.
	MetaTitle = "title"
)

// noisyMetadataKeys are ingestion-time details stripped before chunks reach
// the model; they waste prompt tokens and leak pipeline internals.
var noisyMetadataKeys = []string{"chunk", "chunk_size", "path"}
