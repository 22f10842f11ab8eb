// Package knowledge manages the document store backing retrieval: a
// PostgreSQL table of text chunks with pgvector embeddings and a generated
// tsvector column for lexical search.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/docent-ai/docent/internal/embed"
	"github.com/docent-ai/docent/internal/log"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const insertDocumentSQL = `INSERT INTO documents (id, name, content, embedding, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
	    content = EXCLUDED.content,
	    embedding = EXCLUDED.embedding,
	    metadata = EXCLUDED.metadata`

// Store manages documentation chunks with hybrid search capabilities.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       querier
	provider embed.Provider
	logger   log.Logger
}

// New creates a Store. The pool must point at a migrated database.
func New(db querier, provider embed.Provider, logger log.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, provider: provider, logger: logger.With("component", "knowledge")}, nil
}

// Initialize verifies the documents schema exists. It does not create it;
// schema management belongs to migrations.
func (s *Store) Initialize(ctx context.Context) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'documents')`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("documents table missing, run migrations: %w", ErrStoreNotInitialized)
	}
	return nil
}

// AddDocuments embeds and upserts the given documents in one batch.
// Documents without an ID get a generated UUID. Returns the stored IDs in
// input order.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vecs, err := s.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	want := s.provider.Dimensions()
	batch := &pgx.Batch{}
	ids := make([]string, len(docs))
	now := time.Now()

	for i, d := range docs {
		if len(vecs[i]) != want {
			return nil, fmt.Errorf("document %d: got %d dimensions, provider reports %d: %w",
				i, len(vecs[i]), want, ErrDimensionMismatch)
		}

		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id

		metadataJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata for document %d: %w", i, err)
		}

		createdAt := d.CreateAt
		if createdAt.IsZero() {
			createdAt = now
		}

		vec := pgvector.NewVector(vecs[i])
		batch.Queue(insertDocumentSQL, id, d.Name, d.Content, vec, metadataJSON, createdAt)
	}

	br := s.db.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			s.logger.Warn("closing batch results", "error", err)
		}
	}()

	for i := range docs {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("inserting document %d: %w", i, err)
		}
	}

	s.logger.Debug("added documents", "count", len(docs))
	return ids, nil
}

// CountDocuments returns the total number of stored chunks.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}

	// Overflow protection for 32-bit platforms
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// HasDocuments reports whether the store holds at least one chunk.
func (s *Store) HasDocuments(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for documents: %w", err)
	}
	return exists, nil
}

// Clear removes all documents from the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	s.logger.Info("knowledge store cleared")
	return nil
}

// Delete removes a single document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting document %q: %w", id, err)
	}
	s.logger.Debug("deleted document", "id", id)
	return nil
}

// Close closes the Store. The connection pool is managed by the caller.
func (*Store) Close() error {
	return nil
}

// parseMetadata unmarshals stored metadata, degrading to an empty map on
// corrupt rows so one bad document cannot poison a whole search.
func (s *Store) parseMetadata(id string, raw []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", id, "error", err)
		return make(map[string]string)
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return metadata
}
