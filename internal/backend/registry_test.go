package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docent-ai/docent/internal/config"
)

// stubBackend satisfies Backend for registry tests.
type stubBackend struct {
	available bool
	closed    bool
}

func (s *stubBackend) Ask(context.Context, string) (*Answer, error) { return &Answer{}, nil }
func (s *stubBackend) ClearHistory()                                {}
func (s *stubBackend) IsAvailable(context.Context) bool             { return s.available }
func (s *stubBackend) Close() error                                 { s.closed = true; return nil }

func TestLoadUnknownTag(t *testing.T) {
	r := NewRegistry()
	r.Register("engine", func(Deps) (Backend, error) { return &stubBackend{}, nil })

	b, loadErr := r.Load(context.Background(), "bogus", Deps{})
	if b != nil {
		t.Fatal("Load() returned a backend for an unknown tag")
	}
	if loadErr == nil || loadErr.Kind != KindNotFound {
		t.Fatalf("Load() error = %+v, want kind %q", loadErr, KindNotFound)
	}
	if !strings.Contains(loadErr.Suggestion, "engine") {
		t.Errorf("Suggestion = %q, want it to list valid tags", loadErr.Suggestion)
	}
}

func TestLoadConstructsFreshInstances(t *testing.T) {
	// The registry holds stateless factories only; a Close()d instance must
	// never be handed out again.
	built := 0
	r := NewRegistry()
	r.Register("engine", func(Deps) (Backend, error) {
		built++
		return &stubBackend{}, nil
	})

	deps := Deps{Config: &config.Config{Project: "alpha"}}

	first, loadErr := r.Load(context.Background(), "engine", deps)
	if loadErr != nil {
		t.Fatalf("Load() error = %v", loadErr)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, loadErr := r.Load(context.Background(), "engine", deps)
	if loadErr != nil {
		t.Fatalf("Load() error = %v", loadErr)
	}
	if first == second {
		t.Error("Load() returned the closed instance again")
	}
	if built != 2 {
		t.Errorf("factory ran %d times, want 2 (one per Load)", built)
	}
}

func TestLoadInitFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(config.BackendEngine, func(Deps) (Backend, error) {
		return nil, errors.New("no database")
	})

	_, loadErr := r.Load(context.Background(), config.BackendEngine, Deps{})
	if loadErr == nil || loadErr.Kind != KindInitFailed {
		t.Fatalf("Load() error = %+v, want kind %q", loadErr, KindInitFailed)
	}
	if loadErr.Suggestion == "" {
		t.Error("init failure carries no remediation suggestion")
	}
}

func TestLoadServerUnavailable(t *testing.T) {
	r := NewRegistry()
	stub := &stubBackend{available: false}
	r.Register(config.BackendServer, func(Deps) (Backend, error) { return stub, nil })

	_, loadErr := r.Load(context.Background(), config.BackendServer, Deps{})
	if loadErr == nil || loadErr.Kind != KindUnavailable {
		t.Fatalf("Load() error = %+v, want kind %q", loadErr, KindUnavailable)
	}
	if !stub.closed {
		t.Error("unreachable server backend was not closed")
	}

	// A later start must be picked up.
	stub.available = true
	if _, loadErr := r.Load(context.Background(), config.BackendServer, Deps{}); loadErr != nil {
		t.Fatalf("Load() after server came up error = %v", loadErr)
	}
}

func TestDefaultRegistryTags(t *testing.T) {
	tags := NewDefaultRegistry().Tags()
	want := []string{config.BackendAssistant, config.BackendEngine, config.BackendServer}
	if len(tags) != len(want) {
		t.Fatalf("Tags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("Tags()[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestDefaultRegistryServerBackendHealthGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	deps := Deps{Config: &config.Config{Project: "docs", ServerURL: srv.URL}}
	if _, loadErr := NewDefaultRegistry().Load(context.Background(), config.BackendServer, deps); loadErr != nil {
		t.Fatalf("Load() with healthy server error = %v", loadErr)
	}

	srv.Close()
	_, loadErr := NewDefaultRegistry().Load(context.Background(), config.BackendServer, deps)
	if loadErr == nil || loadErr.Kind != KindUnavailable {
		t.Fatalf("Load() with stopped server error = %+v, want kind %q", loadErr, KindUnavailable)
	}
}
