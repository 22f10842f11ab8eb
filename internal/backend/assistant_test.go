package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/log"
)

// assistantServer fakes the hosted assistant API: it records request bodies
// and streams a fixed prefixed-line reply.
func assistantServer(t *testing.T, lines []string) (*httptest.Server, *[]assistantRequest) {
	t.Helper()
	var seen []assistantRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req assistantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		seen = append(seen, req)

		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))

	return srv, &seen
}

func newAssistant(t *testing.T, url, docsURL string) *Assistant {
	t.Helper()
	a, err := NewAssistant(Deps{
		Config: &config.Config{
			Project:          "docs",
			AssistantBaseURL: url,
			DocsBaseURL:      docsURL,
		},
		Logger: log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	return a
}

func TestAssistantAskRewritesLinks(t *testing.T) {
	srv, _ := assistantServer(t, []string{
		`0:"See the [install guide](/install)."`,
		`d:{"finishReason":"stop"}`,
	})
	defer srv.Close()

	a := newAssistant(t, srv.URL, "https://docs.example.com")
	answer, err := a.Ask(context.Background(), "how do I install?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	want := "See the [install guide](https://docs.example.com/install)."
	if answer.Text != want {
		t.Errorf("Text = %q, want %q", answer.Text, want)
	}
}

func TestAssistantKeepsHistoryAndThreadToken(t *testing.T) {
	srv, seen := assistantServer(t, []string{
		`8:[{"threadId":"thread_42"}]`,
		`0:"First answer."`,
		`d:{"finishReason":"stop"}`,
	})
	defer srv.Close()

	a := newAssistant(t, srv.URL, "")

	if _, err := a.Ask(context.Background(), "first question"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := a.Ask(context.Background(), "second question"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	reqs := *seen
	if len(reqs) != 2 {
		t.Fatalf("assistant saw %d requests, want 2", len(reqs))
	}

	if reqs[0].ThreadID != "" {
		t.Errorf("first request carried thread id %q, want none", reqs[0].ThreadID)
	}
	if reqs[1].ThreadID != "thread_42" {
		t.Errorf("second request thread id = %q, want %q", reqs[1].ThreadID, "thread_42")
	}

	// Second request replays the full ordered history plus the new turn.
	msgs := reqs[1].Messages
	if len(msgs) != 3 {
		t.Fatalf("second request carried %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "first question" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "First answer." {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
	if msgs[2].Role != "user" || msgs[2].Content != "second question" {
		t.Errorf("msgs[2] = %+v", msgs[2])
	}
}

func TestAssistantClearHistoryStartsFreshThread(t *testing.T) {
	srv, seen := assistantServer(t, []string{
		`8:[{"threadId":"thread_42"}]`,
		`0:"ok"`,
		`d:{"finishReason":"stop"}`,
	})
	defer srv.Close()

	a := newAssistant(t, srv.URL, "")

	if _, err := a.Ask(context.Background(), "first"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	a.ClearHistory()
	if _, err := a.Ask(context.Background(), "second"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	reqs := *seen
	last := reqs[len(reqs)-1]
	if last.ThreadID != "" {
		t.Errorf("post-clear request thread id = %q, want none", last.ThreadID)
	}
	if len(last.Messages) != 1 {
		t.Errorf("post-clear request carried %d messages, want 1", len(last.Messages))
	}
}

func TestAssistantFailedAskLeavesHistoryUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newAssistant(t, srv.URL, "")
	if _, err := a.Ask(context.Background(), "question"); err == nil {
		t.Fatal("Ask() against failing assistant succeeded")
	}
	if len(a.history) != 0 {
		t.Errorf("failed Ask left %d history turns, want 0", len(a.history))
	}
}

func TestAssistantRequiresBaseURL(t *testing.T) {
	_, err := NewAssistant(Deps{Config: &config.Config{}})
	if err == nil {
		t.Fatal("NewAssistant() without assistant_base_url succeeded")
	}
}
