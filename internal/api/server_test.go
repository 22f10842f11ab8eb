package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docent-ai/docent/internal/backend"
	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
)

// mockEngine fakes the embedded backend behind the HTTP surface.
type mockEngine struct {
	answer  *backend.Answer
	askErr  error
	stored  int
	seedErr error

	lastQuestion string
	lastReplace  bool
	panicOnAsk   bool
}

func (m *mockEngine) Ask(_ context.Context, question string) (*backend.Answer, error) {
	if m.panicOnAsk {
		panic("engine exploded")
	}
	m.lastQuestion = question
	return m.answer, m.askErr
}

func (m *mockEngine) Seed(_ context.Context, docs []knowledge.Document, replace bool) (int, error) {
	m.lastReplace = replace
	if m.seedErr != nil {
		return 0, m.seedErr
	}
	m.stored = len(docs)
	return len(docs), nil
}

func newTestServer(t *testing.T, engine Engine) *httptest.Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{Engine: engine, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestAskEndpoint(t *testing.T) {
	engine := &mockEngine{answer: &backend.Answer{
		Text:    "Run npm install.",
		Sources: []string{"https://docs.example.com/install"},
	}}
	ts := newTestServer(t, engine)

	resp := postJSON(t, ts.URL+"/ask", askRequest{Question: "how do I install?"})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got askResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Text != "Run npm install." {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Sources) != 1 {
		t.Errorf("Sources = %v", got.Sources)
	}
	if engine.lastQuestion != "how do I install?" {
		t.Errorf("engine saw question %q", engine.lastQuestion)
	}
}

func TestAskEndpointRejectsBlankQuestion(t *testing.T) {
	ts := newTestServer(t, &mockEngine{})

	resp := postJSON(t, ts.URL+"/ask", askRequest{Question: "   "})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAskEndpointEngineError(t *testing.T) {
	ts := newTestServer(t, &mockEngine{askErr: errors.New("provider unreachable")})

	resp := postJSON(t, ts.URL+"/ask", askRequest{Question: "anything"})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var got errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.Error, "provider unreachable") {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestSeedEndpoint(t *testing.T) {
	engine := &mockEngine{}
	ts := newTestServer(t, engine)

	resp := postJSON(t, ts.URL+"/seed", seedRequest{
		Documents: []knowledge.Document{{Content: "one"}, {Content: "two"}},
		Replace:   true,
	})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got seedResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Stored != 2 {
		t.Errorf("Stored = %d, want 2", got.Stored)
	}
	if !engine.lastReplace {
		t.Error("replace flag not forwarded")
	}
}

func TestSeedEndpointRejectsEmptyBatch(t *testing.T) {
	ts := newTestServer(t, &mockEngine{})

	resp := postJSON(t, ts.URL+"/seed", seedRequest{})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, &mockEngine{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRecoveryMiddlewareCatchesPanic(t *testing.T) {
	ts := newTestServer(t, &mockEngine{panicOnAsk: true})

	resp := postJSON(t, ts.URL+"/ask", askRequest{Question: "boom"})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 from recovery", resp.StatusCode)
	}
}
