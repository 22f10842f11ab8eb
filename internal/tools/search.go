package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/rag"
)

// SearchDocsName is the Genkit tool name for documentation search.
const SearchDocsName = "search_docs"

// MaxNumResults bounds how many chunks the model may request per call.
const MaxNumResults = 20

// SearchDocsInput defines input for the search_docs tool.
type SearchDocsInput struct {
	Query      string `json:"query" jsonschema_description:"The search query string"`
	NumResults int    `json:"num_results,omitempty" jsonschema_description:"Maximum chunks to return (1-20, default 10)"`
}

// retriever is the slice of rag.Retriever the tool depends on.
type retriever interface {
	Retrieve(ctx context.Context, query string, numDocs int) ([]knowledge.Result, error)
}

// Docs holds dependencies for the documentation search tool handler.
type Docs struct {
	retriever retriever
	logger    log.Logger
}

// NewDocs creates a Docs toolset.
func NewDocs(r retriever, logger log.Logger) (*Docs, error) {
	if r == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Docs{retriever: r, logger: logger.With("component", "tools")}, nil
}

// Register registers the search_docs tool with Genkit.
func Register(g *genkit.Genkit, d *Docs) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if d == nil {
		return nil, fmt.Errorf("Docs is required")
	}

	tool := genkit.DefineTool(g, SearchDocsName,
		"Search the documentation knowledge base for passages relevant to a query. "+
			"Returns: text chunks with source URLs, page titles, and relevance scores. "+
			"Use this to ground every answer in the documentation before responding. "+
			"Default num_results: 10. Maximum num_results: 20.",
		d.SearchDocs)

	return []ai.Tool{tool}, nil
}

// clampNumResults validates num_results and returns a value within [1, MaxNumResults].
func clampNumResults(n int) int {
	if n <= 0 {
		return rag.DefaultNumDocuments
	}
	if n > MaxNumResults {
		return MaxNumResults
	}
	return n
}

// SearchDocs executes the documentation search. Failures are returned as
// structured Results, never as Go errors, so the model can adjust its query.
func (d *Docs) SearchDocs(ctx *ai.ToolContext, input SearchDocsInput) (Result, error) {
	d.logger.Info("SearchDocs called", "query", input.Query, "num_results", input.NumResults)

	if input.Query == "" {
		return Result{
			Status:     StatusError,
			Suggestion: "Provide a non-empty query string.",
			Error: &Error{
				Code:    ErrCodeValidation,
				Message: "query is required",
			},
		}, nil
	}

	numResults := clampNumResults(input.NumResults)

	results, err := d.retriever.Retrieve(ctx, input.Query, numResults)
	if err != nil {
		d.logger.Warn("SearchDocs failed", "query", input.Query, "error", err)
		code := ErrCodeExecution
		suggestion := "Rephrase the query and try again."
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrCodeTimeout
			suggestion = "Retry with a shorter query; the knowledge base may be under load."
		}
		return Result{
			Status:     StatusError,
			Suggestion: suggestion,
			Error: &Error{
				Code:    code,
				Message: fmt.Sprintf("searching documentation: %v", err),
			},
		}, nil
	}

	if len(results) == 0 {
		return Result{
			Status:     StatusSuccess,
			Message:    "No matching documentation found.",
			Suggestion: "Try different keywords.",
			Data: map[string]any{
				"query":        input.Query,
				"result_count": 0,
			},
		}, nil
	}

	chunks := make([]map[string]any, 0, len(results))
	for _, res := range results {
		chunk := map[string]any{
			"name":    res.Document.Name,
			"content": res.Document.Content,
			"score":   res.Score,
		}
		if url := res.Document.Metadata[rag.MetaSourceURL]; url != "" {
			chunk["source_url"] = url
		}
		if title := res.Document.Metadata[rag.MetaTitle]; title != "" {
			chunk["title"] = title
		}
		chunks = append(chunks, chunk)
	}

	d.logger.Info("SearchDocs succeeded", "query", input.Query, "result_count", len(chunks))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        input.Query,
			"result_count": len(chunks),
			"results":      chunks,
		},
	}, nil
}
