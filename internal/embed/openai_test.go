package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docent-ai/docent/internal/log"
)

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Object string           `json:"object"`
	Data   []embeddingDatum `json:"data"`
	Model  string           `json:"model"`
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIProvider(&OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "text-embedding-3-small",
		Dimensions: 3,
		Logger:     log.NewNop(),
	})
}

func TestOpenAIEmbedBatchReordersByIndex(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		// Return data out of input order; the provider must place vectors
		// by index, not by response position.
		resp := embeddingResponse{
			Object: "list",
			Model:  "text-embedding-3-small",
			Data: []embeddingDatum{
				{Object: "embedding", Index: 1, Embedding: []float32{0, 1, 0}},
				{Object: "embedding", Index: 0, Embedding: []float32{1, 0, 0}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	})

	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("EmbedBatch() returned %d vectors, want 2", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered by index: got %v", vecs)
	}
}

func TestOpenAIEmbedBatchCountMismatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{
			Object: "list",
			Data:   []embeddingDatum{{Index: 0, Embedding: []float32{1, 0, 0}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("EmbedBatch() error = %v, want %v", err, ErrEmptyResponse)
	}
}

func TestOpenAIEmbedBatchAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail": "rate limit exceeded"}`))
	})

	_, err := p.EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("EmbedBatch() error = %v, want %v", err, ErrProvider)
	}
}

func TestOpenAIEmbedBatchEmptyInput(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil) error = %v", err)
	}
	if vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vecs)
	}
}
