package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/docent-ai/docent/internal/metrics"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

const vectorSearchSQL = `SELECT id, name, content, metadata, created_at, embedding <=> $1 AS distance
	FROM documents
	ORDER BY embedding <=> $1
	LIMIT $2`

const lexicalSearchSQL = `SELECT id, name, content, metadata, created_at,
		ts_rank_cd(search_text, websearch_to_tsquery('english', $1)) AS rank
	FROM documents
	WHERE search_text @@ websearch_to_tsquery('english', $1)
	ORDER BY rank DESC
	LIMIT $2`

// Search performs hybrid retrieval: vector KNN and lexical full-text search
// run over the same corpus and are merged with Reciprocal Rank Fusion.
//
// If the lexical leg fails (malformed query syntax, missing language config),
// Search degrades to vector-only results with a warning rather than failing
// the request. Scores stay on the RRF scale in both modes.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	start := time.Now()

	queryVec, err := s.provider.Embed(queryCtx, query)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("hybrid", "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	knn, err := s.vectorCandidates(queryCtx, queryVec, cfg.limit)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("hybrid", "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}

	mode := "hybrid"
	lexical, err := s.lexicalCandidates(queryCtx, query, cfg.limit)
	if err != nil {
		// Lexical search is the optional leg; vector results alone are
		// still useful answers.
		s.logger.Warn("lexical search failed, using vector results only", "error", err)
		mode = "vector_fallback"
		lexical = nil
	}

	results := fuseRRF(knn, lexical, cfg.limit)

	metrics.RetrievalRequestsTotal.WithLabelValues(mode, "success").Inc()
	metrics.RetrievalDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	return results, nil
}

// VectorSearch performs pure KNN retrieval. Scores are cosine similarity.
func (s *Store) VectorSearch(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	queryVec, err := s.provider.Embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := s.vectorCandidates(queryCtx, queryVec, cfg.limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		// Cosine distance is in [0, 2]; clamp so similarity stays in [0, 1]
		sim := 1 - c.distance
		if sim < 0 {
			sim = 0
		}
		results = append(results, Result{Document: c.doc, Score: sim})
	}
	return results, nil
}

// candidate is one row from a single retrieval leg before fusion.
type candidate struct {
	doc      Document
	distance float32 // vector leg only
}

func (s *Store) vectorCandidates(ctx context.Context, queryVec []float32, limit int) ([]candidate, error) {
	rows, err := s.db.Query(ctx, vectorSearchSQL, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		var raw []byte
		if err := rows.Scan(&c.doc.ID, &c.doc.Name, &c.doc.Content, &raw, &c.doc.CreateAt, &c.distance); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.doc.Metadata = s.parseMetadata(c.doc.ID, raw)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) lexicalCandidates(ctx context.Context, query string, limit int) ([]candidate, error) {
	rows, err := s.db.Query(ctx, lexicalSearchSQL, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		var raw []byte
		var rank float32
		if err := rows.Scan(&c.doc.ID, &c.doc.Name, &c.doc.Content, &raw, &c.doc.CreateAt, &rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.doc.Metadata = s.parseMetadata(c.doc.ID, raw)
		out = append(out, c)
	}
	return out, rows.Err()
}

// fuseRRF merges the two candidate lists via Reciprocal Rank Fusion:
// score(d) = sum of 1/(k + rank_i(d)) over each ranking where d appears.
// When a document appears in both lists, the vector leg's copy is kept.
func fuseRRF(knn, lexical []candidate, limit int) []Result {
	type scored struct {
		doc   Document
		score float64
	}

	merged := make(map[string]*scored)

	for rank, c := range knn {
		merged[c.doc.ID] = &scored{doc: c.doc, score: 1.0 / float64(rrfK+rank+1)}
	}

	for rank, c := range lexical {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[c.doc.ID]; ok {
			existing.score += s
		} else {
			merged[c.doc.ID] = &scored{doc: c.doc, score: s}
		}
	}

	results := make([]Result, 0, len(merged))
	for _, s := range merged {
		results = append(results, Result{Document: s.doc, Score: float32(s.score)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return nil
	}
	return results
}
