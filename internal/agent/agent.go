// Package agent runs the bounded tool-calling loop that turns a question
// into a grounded answer.
//
// The loop is explicit rather than delegated to the framework's multi-turn
// mode: each step issues one generation with tool requests returned to us,
// executes the requested tools, and feeds the outputs back. A hard step cap
// guarantees termination, and a final tools-disabled generation forces the
// model to answer with whatever context it has gathered.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/metrics"
)

// EmptyKnowledgeBaseMessage is returned without calling the model when the
// store holds no documents.
const EmptyKnowledgeBaseMessage = "The knowledge base is empty. Seed it with documentation before asking questions."

// systemPrompt instructs the model to ground answers in retrieved chunks.
const systemPrompt = `You are a documentation assistant. Answer questions using ONLY information
returned by the search_docs tool. Always search before answering. Cite the
source URLs of the passages you used. If the documentation does not cover the
question, say so plainly instead of guessing.`

// knowledgeChecker is the slice of knowledge.Store the agent depends on.
type knowledgeChecker interface {
	HasDocuments(ctx context.Context) (bool, error)
}

// Config holds agent dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	Store     knowledgeChecker
	Tools     []ai.Tool
	ModelName string // provider-qualified, e.g. "openai/gpt-4o-mini"
	MaxSteps  int
	Logger    log.Logger

	// RateLimiter throttles model calls. Nil installs a default of
	// 10 req/s with burst 30.
	RateLimiter *rate.Limiter
}

// Agent executes questions against the knowledge base.
//
// Agent is stateless across calls; conversation history is owned by the
// caller and passed into Ask.
type Agent struct {
	g        *genkit.Genkit
	store    knowledgeChecker
	toolRefs []ai.ToolRef
	model    string
	maxSteps int
	limiter  *rate.Limiter
	logger   log.Logger
}

// Response is the outcome of one question.
type Response struct {
	Text    string   // final answer text
	Sources []string // distinct source URLs cited by retrieved chunks, in first-seen order
	Steps   int      // tool invocations executed
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("knowledge store is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.MaxSteps < 1 {
		return nil, fmt.Errorf("max steps must be at least 1, got %d", cfg.MaxSteps)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	return &Agent{
		g:        cfg.Genkit,
		store:    cfg.Store,
		toolRefs: toolRefs,
		model:    cfg.ModelName,
		maxSteps: cfg.MaxSteps,
		limiter:  limiter,
		logger:   logger.With("component", "agent"),
	}, nil
}

// Ask answers a question, optionally continuing from prior history.
// The history slice is not modified.
func (a *Agent) Ask(ctx context.Context, question string, history []*ai.Message) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	// Refuse to burn a model call when there is nothing to retrieve.
	has, err := a.store.HasDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking knowledge base: %w", err)
	}
	if !has {
		a.logger.Info("knowledge base empty, short-circuiting", "question_length", len(question))
		return &Response{Text: EmptyKnowledgeBaseMessage}, nil
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	var sources []string
	seenSources := make(map[string]bool)

	// The cap bounds executed tool invocations, not loop turns: one turn
	// requesting several tools in parallel consumes several invocations.
	invocations := 0

	for invocations < a.maxSteps {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := genkit.Generate(ctx, a.g,
			ai.WithModelName(a.model),
			ai.WithSystem(systemPrompt),
			ai.WithMessages(messages...),
			ai.WithTools(a.toolRefs...),
			ai.WithReturnToolRequests(true),
		)
		if err != nil {
			return nil, rewriteCredentialError(err)
		}

		toolReqs := resp.ToolRequests()
		if len(toolReqs) == 0 {
			metrics.AgentStepsTotal.WithLabelValues("final_answer").Inc()
			a.logger.Debug("final answer produced", "invocations", invocations)
			return &Response{Text: resp.Text(), Sources: sources, Steps: invocations}, nil
		}

		metrics.AgentStepsTotal.WithLabelValues("tool_call").Inc()
		messages = append(messages, resp.Message)

		toolMsg, executed, stepSources := a.runTools(ctx, toolReqs, a.maxSteps-invocations)
		invocations += executed
		messages = append(messages, toolMsg)

		for _, src := range stepSources {
			if !seenSources[src] {
				seenSources[src] = true
				sources = append(sources, src)
			}
		}
	}

	// Step cap reached: force an answer from gathered context.
	metrics.AgentStepsTotal.WithLabelValues("cap_reached").Inc()
	a.logger.Info("step cap reached, forcing final answer", "max_steps", a.maxSteps)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.model),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return nil, rewriteCredentialError(err)
	}

	return &Response{Text: resp.Text(), Sources: sources, Steps: a.maxSteps}, nil
}

// runTools executes the tool requests from one model turn, up to budget
// invocations, and returns the tool role message, the number executed, and
// any source URLs surfaced by the outputs. Requests beyond the budget get a
// limit payload instead of executing.
//
// Tool failures become structured outputs for the model, never loop aborts;
// a dangling request with no response would invalidate the conversation.
func (a *Agent) runTools(ctx context.Context, reqs []*ai.ToolRequest, budget int) (*ai.Message, int, []string) {
	parts := make([]*ai.Part, 0, len(reqs))
	executed := 0
	var sources []string

	for _, req := range reqs {
		var output any
		if executed < budget {
			output = a.runTool(ctx, req)
			executed++
			sources = append(sources, extractSources(output)...)
		} else {
			a.logger.Info("tool invocation limit reached, skipping request", "tool", req.Name)
			output = map[string]any{
				"status": "error",
				"error": map[string]any{
					"code":    "ExecutionError",
					"message": "tool invocation limit reached, answer with the context gathered so far",
				},
			}
		}

		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}

	return &ai.Message{Role: ai.RoleTool, Content: parts}, executed, sources
}

// runTool executes a single tool request, converting every failure mode into
// a payload the model can read.
func (a *Agent) runTool(ctx context.Context, req *ai.ToolRequest) any {
	tool := genkit.LookupTool(a.g, req.Name)
	if tool == nil {
		a.logger.Warn("model requested unknown tool", "tool", req.Name)
		return map[string]any{
			"status": "error",
			"error": map[string]any{
				"code":    "ValidationError",
				"message": fmt.Sprintf("unknown tool %q", req.Name),
			},
		}
	}

	output, err := tool.RunRaw(ctx, req.Input)
	if err != nil {
		a.logger.Warn("tool execution failed", "tool", req.Name, "error", err)
		return map[string]any{
			"status": "error",
			"error": map[string]any{
				"code":    "ExecutionError",
				"message": err.Error(),
			},
		}
	}
	return output
}

// extractSources pulls source_url values out of a search_docs result payload.
// The payload shape varies by transport (struct vs map), so it goes through
// JSON once.
func extractSources(output any) []string {
	raw, err := json.Marshal(output)
	if err != nil {
		return nil
	}

	var parsed struct {
		Data struct {
			Results []struct {
				SourceURL string `json:"source_url"`
			} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}

	var sources []string
	for _, r := range parsed.Data.Results {
		if r.SourceURL != "" {
			sources = append(sources, r.SourceURL)
		}
	}
	return sources
}

// rewriteCredentialError maps provider authentication failures to an
// actionable message. Everything else passes through wrapped.
func rewriteCredentialError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	authMarkers := []string{"401", "unauthorized", "invalid api key", "api key", "permission_denied", "invalid_api_key"}
	for _, marker := range authMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("model provider rejected credentials: %s\n"+
				"Check OPENAI_API_KEY (or GEMINI_API_KEY for googleai) and retry", msg)
		}
	}

	return fmt.Errorf("generating answer: %w", err)
}
