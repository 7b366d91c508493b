package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/contextbuilder"
	"github.com/kindredloop/kindred/internal/agent/embeddings"
	"github.com/kindredloop/kindred/internal/agent/memory"
	"github.com/kindredloop/kindred/internal/agent/orchestrator"
	"github.com/kindredloop/kindred/internal/agent/router"
	"github.com/kindredloop/kindred/internal/agent/session"
	"github.com/kindredloop/kindred/internal/agent/skills"
	"github.com/kindredloop/kindred/internal/agent/strategy"
	"github.com/kindredloop/kindred/internal/config"
	"github.com/kindredloop/kindred/internal/db"
	"github.com/kindredloop/kindred/internal/engine"
	"github.com/kindredloop/kindred/internal/logging"
)

// runtime is the fully wired service: one database connection, one engine.
type runtime struct {
	cfg      *config.Config
	store    *db.Store
	sessions *session.Manager
	router   *router.Router
	engine   *engine.Engine
	strategy *strategy.Loader
	log      logging.Logger
}

// buildRuntime wires every component from the configuration.
func buildRuntime(ctx context.Context, cfg *config.Config, dbPath string) (*runtime, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if dbPath == "" {
		dbPath = cfg.DatabasePath()
	}

	store, err := db.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	provider, err := buildProvider(ctx, cfg.Providers)
	if err != nil {
		logging.For("cli").Warnf("completion provider unavailable, running rule-based: %v", err)
	}

	embedder := embeddings.NewService(store.DB(), nil)
	if p, err := buildEmbeddingProvider(cfg.Embeddings); err != nil {
		logging.For("cli").Warnf("embedding provider unavailable, metadata retrieval only: %v", err)
	} else if p != nil {
		embedder.SetProvider(p)
	}

	pool := agents.NewPool()
	companion := agents.NewCompanionAgent(agents.CompanionConfig{
		Name:        cfg.Bot.Name,
		Description: "the primary companion persona",
		Persona:     cfg.Bot.Persona,
		Provider:    provider,
		Keywords:    cfg.Bot.Keywords,
		Values:      cfg.Bot.Values,
	})
	if err := pool.Register(companion); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register companion agent: %w", err)
	}
	routerCfg := cfg.Router
	if routerCfg.FallbackAgent == "" {
		routerCfg.FallbackAgent = companion.Name()
	}
	rt := router.New(pool, routerCfg)

	registry := skills.NewRegistry()
	for _, s := range cfg.Skills {
		if err := registry.Register(s); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to register skill: %w", err)
		}
	}

	loader := strategy.NewLoader()
	if cfg.Strategy.ConfigPath != "" {
		if cfg.Strategy.Watch {
			err = loader.Watch(cfg.Strategy.ConfigPath)
		} else {
			err = loader.LoadFile(cfg.Strategy.ConfigPath)
		}
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load strategy config: %w", err)
		}
	}

	sessions := session.NewManager(store.DB())
	retriever := memory.New(store, embedder, provider, cfg.Memory)
	builder := contextbuilder.New(cfg.Context, provider)
	orch := orchestrator.New(provider, pool, rt, registry, cfg.Orch)

	engineCfg := cfg.Engine
	engineCfg.BotID = cfg.Bot.ID
	if engineCfg.Persona == "" {
		engineCfg.Persona = cfg.Bot.Persona
	}
	eng := engine.New(engineCfg, sessions, retriever, strategy.New(loader), builder, orch)

	return &runtime{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		router:   rt,
		engine:   eng,
		strategy: loader,
		log:      logging.For("cli"),
	}, nil
}

func (r *runtime) Close() {
	if err := r.strategy.Close(); err != nil {
		r.log.Errorf("failed to close strategy loader: %v", err)
	}
	if err := r.store.Close(); err != nil {
		r.log.Errorf("failed to close database: %v", err)
	}
}

// buildProvider creates the configured completion provider. A missing or
// misconfigured provider is not fatal; the engine degrades to fallbacks.
func buildProvider(ctx context.Context, cfg config.ProvidersConfig) (ai.Provider, error) {
	switch cfg.Default {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai api key not set")
		}
		return ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key not set")
		}
		return ai.NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini api key not set")
		}
		return ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "ollama":
		return ai.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model)
	case "":
		return nil, fmt.Errorf("no completion provider configured")
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Default)
	}
}

func buildEmbeddingProvider(cfg config.EmbeddingsConfig) (embeddings.Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key not set")
		}
		return embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "ollama":
		return embeddings.NewOllamaProvider(cfg.BaseURL, cfg.Model, 0)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
