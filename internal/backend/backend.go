// Package backend provides the answering variants behind one interface: an
// in-process engine, a hosted-assistant proxy, and a client for an external
// engine server. A registry of factories constructs them by tag.
package backend

import (
	"context"

	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/log"
)

// Answer is the outcome of one question, regardless of variant.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

// Backend answers documentation questions.
type Backend interface {
	// Ask answers one question. Implementations carry no deadline of
	// their own; callers bound ctx.
	Ask(ctx context.Context, question string) (*Answer, error)

	// ClearHistory resets any conversation state the variant keeps.
	ClearHistory()

	// IsAvailable probes readiness with a short internal timeout.
	IsAvailable(ctx context.Context) bool

	// Close releases held resources.
	Close() error
}

// Deps carries what factories need to construct a backend.
type Deps struct {
	Config *config.Config
	Logger log.Logger
}
