package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
)

// Server is a thin client for an engine running in a separate process.
// The remote keeps conversation state per session id; ClearHistory rotates
// the id so the next Ask starts clean.
type Server struct {
	baseURL string
	client  *http.Client
	logger  log.Logger

	mu        sync.Mutex
	sessionID string
}

// NewServer creates the external-server backend.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Config.ServerURL == "" {
		return nil, fmt.Errorf("server_url is not configured")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Server{
		baseURL:   strings.TrimRight(deps.Config.ServerURL, "/"),
		client:    &http.Client{},
		logger:    logger.With("component", "backend.server"),
		sessionID: uuid.NewString(),
	}, nil
}

var _ Backend = (*Server)(nil)

type serverAskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type serverSeedRequest struct {
	Documents []knowledge.Document `json:"documents"`
	Replace   bool                 `json:"replace,omitempty"`
}

type serverSeedResponse struct {
	Stored int `json:"stored"`
}

// Ask implements Backend.
func (s *Server) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	s.mu.Lock()
	body := serverAskRequest{Question: question, SessionID: s.sessionID}
	s.mu.Unlock()

	var answer Answer
	if err := s.post(ctx, "/ask", body, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Seed sends documentation chunks to the remote engine for ingestion and
// returns the number of chunks the server stored.
func (s *Server) Seed(ctx context.Context, docs []knowledge.Document, replace bool) (int, error) {
	var resp serverSeedResponse
	if err := s.post(ctx, "/seed", serverSeedRequest{Documents: docs, Replace: replace}, &resp); err != nil {
		return 0, err
	}
	return resp.Stored, nil
}

// ClearHistory implements Backend.
func (s *Server) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = uuid.NewString()
}

// IsAvailable implements Backend.
func (s *Server) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close implements Backend.
func (s *Server) Close() error { return nil }

// post sends a JSON request and decodes a JSON response. Non-2xx responses
// become errors carrying a snippet of the body.
func (s *Server) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling engine server: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("engine server %s returned status %d: %s",
			path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
