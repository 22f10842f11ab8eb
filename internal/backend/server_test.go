package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
)

func newServerBackend(t *testing.T, url string) *Server {
	t.Helper()
	s, err := NewServer(Deps{
		Config: &config.Config{ServerURL: url},
		Logger: log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func TestServerAsk(t *testing.T) {
	var gotReq serverAskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Answer{
			Text:    "Run npm install docs-router.",
			Sources: []string{"https://docs.example.com/install"},
		})
	}))
	defer srv.Close()

	s := newServerBackend(t, srv.URL)
	answer, err := s.Ask(context.Background(), "how do I install?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Text != "Run npm install docs-router." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Sources) != 1 {
		t.Errorf("Sources = %v", answer.Sources)
	}
	if gotReq.Question != "how do I install?" {
		t.Errorf("server saw question %q", gotReq.Question)
	}
	if gotReq.SessionID == "" {
		t.Error("request carried no session id")
	}
}

func TestServerAskErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "knowledge base is empty", http.StatusConflict)
	}))
	defer srv.Close()

	s := newServerBackend(t, srv.URL)
	_, err := s.Ask(context.Background(), "anything")
	if err == nil {
		t.Fatal("Ask() against failing server succeeded")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "knowledge base is empty") {
		t.Errorf("error = %v, want status and body snippet", err)
	}
}

func TestServerSeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seed" {
			http.NotFound(w, r)
			return
		}
		var req serverSeedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(serverSeedResponse{Stored: len(req.Documents)})
	}))
	defer srv.Close()

	s := newServerBackend(t, srv.URL)
	docs := []knowledge.Document{
		{Content: "chunk one"},
		{Content: "chunk two"},
	}
	stored, err := s.Seed(context.Background(), docs, true)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if stored != 2 {
		t.Errorf("Seed() stored = %d, want 2", stored)
	}
}

func TestServerClearHistoryRotatesSession(t *testing.T) {
	s := newServerBackend(t, "http://localhost:7777")

	before := s.sessionID
	s.ClearHistory()
	if s.sessionID == before || s.sessionID == "" {
		t.Error("ClearHistory() did not rotate the session id")
	}
}

func TestServerIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))

	s := newServerBackend(t, srv.URL)
	if !s.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false against healthy server")
	}

	srv.Close()
	if s.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true against stopped server")
	}
}
