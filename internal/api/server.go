// Package api exposes the embedded engine over HTTP so a separate process
// (or the "server" backend) can use it: POST /ask, POST /seed, GET /health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/docent-ai/docent/internal/backend"
	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
)

// askRequest is the body of POST /ask. The session id is accepted for
// client-side bookkeeping; the engine itself is stateless per question.
type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

// seedRequest is the body of POST /seed.
type seedRequest struct {
	Documents []knowledge.Document `json:"documents"`
	Replace   bool                 `json:"replace,omitempty"`
}

type seedResponse struct {
	Stored int `json:"stored"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger log.Logger
	Engine Engine // required
}

// Engine is the slice of the embedded backend the server exposes.
type Engine interface {
	Ask(ctx context.Context, question string) (*backend.Answer, error)
	Seed(ctx context.Context, docs []knowledge.Document, replace bool) (int, error)
}

// Server is the engine HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	h := &handlers{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", h.ask)
	mux.HandleFunc("POST /seed", h.seed)
	mux.HandleFunc("GET /health", h.health)

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// Handler returns the root handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

type handlers struct {
	engine Engine
	logger log.Logger
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question must not be empty"})
		return
	}

	answer, err := h.engine.Ask(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Text: answer.Text, Sources: answer.Sources})
}

func (h *handlers) seed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no documents to seed"})
		return
	}

	stored, err := h.engine.Seed(r.Context(), req.Documents, req.Replace)
	if err != nil {
		h.logger.Error("seed failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, seedResponse{Stored: stored})
}

// health answers liveness probes.
func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
