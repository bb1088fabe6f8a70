package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/mediblaze/mediblaze/db"
	"github.com/mediblaze/mediblaze/internal/agent"
	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/knowledge"
	"github.com/mediblaze/mediblaze/internal/observability"
	"github.com/mediblaze/mediblaze/internal/security"
	"github.com/mediblaze/mediblaze/internal/session"
	"github.com/mediblaze/mediblaze/internal/tools"
)

// RetrieverName is the Genkit name of the knowledge base retriever.
const RetrieverName = "medical-knowledge"

// defaultRetrieverTopK applies when a retrieve request carries no k option.
const defaultRetrieverTopK = 5

// Setup creates and initializes the application. On error, everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider must have the processor
	// registered before any span is created.
	a.otelCleanup = provideTracing(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool
	a.dbCleanup = dbCleanup

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = provideKnowledgeStore(pool, embedder, cfg, logger)
	a.Retriever = knowledge.DefineRetriever(g, a.Knowledge, RetrieverName, knowledge.SourceTypeDocument, defaultRetrieverTopK)

	a.SessionStore = session.New(session.NewQueries(pool), pool, logger)

	toolkit, refs, err := provideTools(g, a.Knowledge, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Toolkit = toolkit
	a.ToolRefs = refs

	ag, err := agent.New(agent.Config{
		Genkit:       g,
		Retriever:    a.Retriever,
		SessionStore: a.SessionStore,
		Logger:       logger,
		Tools:        refs,
		ModelName:    cfg.FullModelName(),
		MaxTurns:     cfg.MaxTurns,
		RAGTopK:      cfg.RAGTopK,
		HistoryLimit: cfg.MaxHistoryMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	flow, err := agent.InitFlow(g, ag)
	if err != nil {
		return nil, fmt.Errorf("initializing chat flow: %w", err)
	}
	a.Flow = flow

	return a, nil
}

// provideTracing sets up OTLP span export and returns a cleanup that
// flushes pending spans.
func provideTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without it", "error", err)
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	promptDir := cfg.PromptDir
	if promptDir == "" {
		promptDir = "prompts"
	}

	var g *genkit.Genkit
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx,
			genkit.WithPlugins(ollamaPlugin),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx,
			genkit.WithPlugins(&openai.OpenAI{}),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx,
			genkit.WithPlugins(&googlegenai.GoogleAI{}),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Keyed by server address, registered in provideGenkit.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		// Auto-registered in Init, looked up by model name.
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideKnowledgeStore creates the pgvector-backed knowledge store. Gemini
// embedders output 3072 dimensions by default and need truncation to the
// schema's width.
func provideKnowledgeStore(pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger *slog.Logger) *knowledge.Store {
	var opts []knowledge.StoreOption
	if cfg.Provider == "" || cfg.Provider == config.ProviderGemini {
		dim := int32(knowledge.VectorDimension)
		opts = append(opts, knowledge.WithEmbedOptions(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	}
	return knowledge.New(knowledge.NewQueries(pool), embedder, logger, opts...)
}

// provideTools builds the toolkit and registers every tool with Genkit.
func provideTools(g *genkit.Genkit, store *knowledge.Store, cfg *config.Config, logger *slog.Logger) (*tools.Toolkit, []ai.ToolRef, error) {
	toolkit, err := tools.NewToolkit(tools.ToolkitConfig{
		Store:     store,
		WebSearch: cfg.WebSearch,
		PageFetch: cfg.PageFetch,
		Validator: security.NewURL(),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating toolkit: %w", err)
	}

	refs, err := toolkit.Register(g)
	if err != nil {
		return nil, nil, fmt.Errorf("registering tools: %w", err)
	}
	logger.Info("tools registered", "count", len(refs))
	return toolkit, refs, nil
}
