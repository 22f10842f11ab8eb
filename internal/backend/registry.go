package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/docent-ai/docent/internal/config"
)

// LoadErrorKind classifies why a backend could not be loaded.
type LoadErrorKind string

const (
	// KindNotFound means no factory is registered for the tag.
	KindNotFound LoadErrorKind = "not_found"

	// KindUnavailable means the backend exists but its dependency is not
	// reachable (server not running, service down).
	KindUnavailable LoadErrorKind = "unavailable"

	// KindInitFailed means construction failed (bad config, connection
	// setup error).
	KindInitFailed LoadErrorKind = "init_failed"
)

// LoadError is a structured backend loading failure. Selecting an absent or
// broken variant is an expected condition, not a crash.
type LoadError struct {
	Kind       LoadErrorKind
	Backend    string
	Message    string
	Suggestion string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend %q: %s", e.Backend, e.Message)
	if e.Suggestion != "" {
		b.WriteString(" (")
		b.WriteString(e.Suggestion)
		b.WriteString(")")
	}
	return b.String()
}

// Factory constructs a backend from dependencies. Factories must be
// stateless; per-instance state lives in the constructed Backend.
type Factory func(deps Deps) (Backend, error)

// Registry maps backend tags to factories. It holds stateless factories
// only, never constructed backends: instances carry live resources (pools,
// sessions) that the caller owns and closes.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under a tag, replacing any existing one.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Load constructs the backend for a tag. Every call yields a fresh
// instance; the caller owns it and must Close it.
//
// The server variant is additionally probed for reachability: a constructed
// client for a process that is not running is useless, and reporting that at
// load time beats a connection error on the first question.
func (r *Registry) Load(ctx context.Context, tag string, deps Deps) (Backend, *LoadError) {
	r.mu.Lock()
	factory, ok := r.factories[tag]
	tags := r.tagsLocked()
	r.mu.Unlock()

	if !ok {
		return nil, &LoadError{
			Kind:       KindNotFound,
			Backend:    tag,
			Message:    "unknown backend",
			Suggestion: fmt.Sprintf("valid backends: %s", strings.Join(tags, ", ")),
		}
	}

	b, err := factory(deps)
	if err != nil {
		return nil, &LoadError{
			Kind:       KindInitFailed,
			Backend:    tag,
			Message:    err.Error(),
			Suggestion: suggestionFor(tag),
		}
	}

	if tag == config.BackendServer && !b.IsAvailable(ctx) {
		_ = b.Close()
		return nil, &LoadError{
			Kind:       KindUnavailable,
			Backend:    tag,
			Message:    "engine server is not responding",
			Suggestion: suggestionFor(tag),
		}
	}

	return b, nil
}

// tagsLocked returns sorted tags; caller holds r.mu.
func (r *Registry) tagsLocked() []string {
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// suggestionFor maps a tag to remediation text for init failures.
func suggestionFor(tag string) string {
	switch tag {
	case config.BackendEngine:
		return "check DATABASE_URL and provider API keys"
	case config.BackendAssistant:
		return "check assistant_base_url in the config file"
	case config.BackendServer:
		return "check server_url and that the server process is running"
	default:
		return ""
	}
}

// NewDefaultRegistry returns a registry with all built-in variants.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.BackendEngine, func(deps Deps) (Backend, error) {
		return NewEngine(deps)
	})
	r.Register(config.BackendAssistant, func(deps Deps) (Backend, error) {
		return NewAssistant(deps)
	})
	r.Register(config.BackendServer, func(deps Deps) (Backend, error) {
		return NewServer(deps)
	})
	return r
}
