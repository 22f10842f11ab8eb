package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docent-ai/docent/internal/agent"
	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/database"
	"github.com/docent-ai/docent/internal/embed"
	"github.com/docent-ai/docent/internal/knowledge"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/metrics"
	"github.com/docent-ai/docent/internal/rag"
	"github.com/docent-ai/docent/internal/tools"
)

// availabilityTimeout bounds the engine readiness probe.
const availabilityTimeout = 2 * time.Second

// Engine is the in-process backend: it owns the knowledge store, the
// retrieval pipeline, and the answering agent.
//
// Initialization is lazy: the first Ask or Seed migrates the schema, opens
// the pool, and wires the model stack. Construction itself is cheap so the
// registry can build an Engine without a database present.
type Engine struct {
	cfg    *config.Config
	logger log.Logger

	mu          sync.Mutex
	initialized bool
	initErr     error

	pool  *pgxpool.Pool
	store *knowledge.Store
	agent *agent.Agent
}

// NewEngine creates an uninitialized engine backend.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		cfg:    deps.Config,
		logger: logger.With("component", "backend.engine"),
	}, nil
}

// ensureInit performs one-time initialization. The first error is sticky:
// a broken environment fails fast on every subsequent call.
func (e *Engine) ensureInit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return e.initErr
	}
	e.initialized = true
	e.initErr = e.init(ctx)
	return e.initErr
}

func (e *Engine) init(ctx context.Context) error {
	metrics.Register()

	if err := database.Migrate(e.cfg.PostgresURL()); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	pool, err := database.Open(ctx, e.cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	g, provider, err := e.initModelStack(ctx)
	if err != nil {
		pool.Close()
		return err
	}

	store, err := knowledge.New(pool, provider, e.logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating knowledge store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		pool.Close()
		return err
	}

	retriever := rag.New(store, e.logger)

	docs, err := tools.NewDocs(retriever, e.logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating tools: %w", err)
	}
	registered, err := tools.Register(g, docs)
	if err != nil {
		pool.Close()
		return fmt.Errorf("registering tools: %w", err)
	}

	ag, err := agent.New(agent.Config{
		Genkit:    g,
		Store:     store,
		Tools:     registered,
		ModelName: e.cfg.FullModelName(),
		MaxSteps:  e.cfg.MaxSteps,
		Logger:    e.logger,
	})
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating agent: %w", err)
	}

	e.pool = pool
	e.store = store
	e.agent = ag

	e.logger.Info("engine initialized",
		"provider", e.cfg.Provider,
		"model", e.cfg.ModelName,
		"embedder", e.cfg.EmbedderModel)
	return nil
}

// initModelStack initializes Genkit with the configured provider plugin and
// builds the matching embedding provider.
func (e *Engine) initModelStack(ctx context.Context) (*genkit.Genkit, embed.Provider, error) {
	switch e.cfg.Provider {
	case config.ProviderGoogleAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with googleai provider")
		}
		embedder := googlegenai.GoogleAIEmbedder(g, e.cfg.EmbedderModel)
		provider := embed.NewGoogleAIProvider(embedder, e.cfg.EmbedderModel, e.cfg.EmbedderDimensions)
		return g, provider, nil

	default: // openai
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with openai provider")
		}
		provider := embed.NewOpenAIProvider(&embed.OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			Model:      e.cfg.EmbedderModel,
			Dimensions: e.cfg.EmbedderDimensions,
			Logger:     e.logger,
		})
		return g, provider, nil
	}
}

// Ask implements Backend.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}

	resp, err := e.agent.Ask(ctx, question, nil)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: resp.Text, Sources: resp.Sources}, nil
}

// Seed embeds and stores documentation chunks. With replace set, existing
// content is cleared first. Returns the number of chunks stored.
func (e *Engine) Seed(ctx context.Context, docs []knowledge.Document, replace bool) (int, error) {
	if err := e.ensureInit(ctx); err != nil {
		return 0, err
	}

	if replace {
		if err := e.store.Clear(ctx); err != nil {
			return 0, err
		}
	}

	ids, err := e.store.AddDocuments(ctx, docs)
	if err != nil {
		return 0, err
	}

	e.logger.Info("seeded knowledge base", "chunks", len(ids), "replaced", replace)
	return len(ids), nil
}

// ClearHistory implements Backend. The engine is stateless across calls;
// each Ask starts a fresh conversation, so there is nothing to clear.
func (e *Engine) ClearHistory() {}

// IsAvailable implements Backend.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	if err := e.ensureInit(probeCtx); err != nil {
		return false
	}
	return e.pool.Ping(probeCtx) == nil
}

// Close implements Backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
	return nil
}
