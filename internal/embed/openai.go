package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/metrics"
)

// OpenAIProvider generates embeddings using the OpenAI API (or any
// OpenAI-compatible endpoint via BaseURL).
type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     log.Logger
}

// OpenAIConfig holds the OpenAI embedding provider settings.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty means api.openai.com
	Model      string
	Dimensions int
	Logger     log.Logger
}

// NewOpenAIProvider creates an OpenAI embedding provider.
func NewOpenAIProvider(cfg *OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     logger.With("component", "embed.openai"),
	}
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. The API may return embeddings out of
// input order, so results are placed by the index field of each datum.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(p.model), "error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(p.model), "error").Inc()
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w", len(texts), len(resp.Data), ErrEmptyResponse)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("openai", string(p.model), "success").Inc()

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range for %d inputs: %w", d.Index, len(texts), ErrProvider)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("missing embedding for input %d: %w", i, ErrEmptyResponse)
		}
	}

	return vecs, nil
}

// Dimensions implements Provider.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with ErrProvider for uniform errors.Is checks.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, ErrProvider)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, ErrProvider)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
