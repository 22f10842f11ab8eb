package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/docent-ai/docent/internal/log"
)

// assistantMessage is one turn of the proxied conversation.
type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// assistantRequest is the body POSTed to the hosted assistant API.
type assistantRequest struct {
	Messages []assistantMessage `json:"messages"`
	ThreadID string             `json:"threadId,omitempty"`
	Project  string             `json:"project,omitempty"`
}

// Assistant proxies questions to a hosted assistant API. It keeps the
// ordered conversation history and the opaque thread token the service
// hands back, so follow-up questions land in the same thread.
type Assistant struct {
	baseURL string
	docsURL string
	project string
	client  *http.Client
	logger  log.Logger

	mu          sync.Mutex
	history     []assistantMessage
	threadToken string
}

// NewAssistant creates the hosted-assistant backend.
func NewAssistant(deps Deps) (*Assistant, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Config.AssistantBaseURL == "" {
		return nil, fmt.Errorf("assistant_base_url is not configured")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Assistant{
		baseURL: strings.TrimRight(deps.Config.AssistantBaseURL, "/"),
		docsURL: deps.Config.DocsBaseURL,
		project: deps.Config.Project,
		client:  &http.Client{},
		logger:  logger.With("component", "backend.assistant"),
	}, nil
}

var _ Backend = (*Assistant)(nil)

// Ask implements Backend. The question and the parsed reply are appended to
// the thread history only after the request succeeds, so a failed call can
// be retried without a phantom turn.
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	a.mu.Lock()
	reqBody := assistantRequest{
		Messages: append(append([]assistantMessage{}, a.history...),
			assistantMessage{Role: "user", Content: question}),
		ThreadID: a.threadToken,
		Project:  a.project,
	}
	a.mu.Unlock()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding assistant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building assistant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling assistant API: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant API returned status %d", resp.StatusCode)
	}

	reply, err := parseStream(resp.Body)
	if err != nil {
		return nil, err
	}

	text := rewriteRootLinks(reply.Text, a.docsURL)

	a.mu.Lock()
	a.history = append(a.history,
		assistantMessage{Role: "user", Content: question},
		assistantMessage{Role: "assistant", Content: reply.Text},
	)
	if reply.ThreadToken != "" {
		a.threadToken = reply.ThreadToken
	}
	a.mu.Unlock()

	return &Answer{Text: text}, nil
}

// ClearHistory implements Backend: the next Ask starts a fresh thread.
func (a *Assistant) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	a.threadToken = ""
}

// IsAvailable implements Backend. Any HTTP response counts as reachable;
// the chat endpoint may well reject a bare GET.
func (a *Assistant) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, a.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Close implements Backend.
func (a *Assistant) Close() error { return nil }
