package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harun/toolflow/internal/config"
	"github.com/harun/toolflow/internal/logger"
	"github.com/harun/toolflow/internal/observability"
	"github.com/harun/toolflow/internal/tracing"
	"github.com/harun/toolflow/pkg/coretools"
	"github.com/harun/toolflow/pkg/graph"
	"github.com/harun/toolflow/pkg/hooks"
	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/memory"
	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
)

// app holds everything a command needs: config, logging, the plugin registry with
// core and external tools, embedders and the chat model.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	logger    zerolog.Logger
	registry  *plugin.Registry
	runtime   *plugin.Runtime
	embedders *vectorstore.EmbedderRegistry
	model     llm.LanguageModel
	modules   *plugin.LoadResult
	hooks     *hooks.Manager

	mu      sync.Mutex
	caches  []*memory.CachedEmbedder
	metrics *http.Server
	traces  *os.File
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      lg,
		logger:   lg.Zerolog(),
		registry: plugin.NewRegistry(cfg.PluginDir),
	}

	a.hooks, err = buildHooks(cfg.Hooks, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.embedders = a.buildEmbedders()
	a.model = a.buildModel()

	err = coretools.RegisterCoreTools(a.registry, coretools.Options{
		Model:     a.model,
		Embedders: a.embedders,
		Workers:   cfg.Engine.Workers,
		Logger:    lg.Component("memory"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.runtime = plugin.NewRuntime(lg.Component("plugins"), a.registry)
	a.modules, err = a.runtime.Initialize()
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.serveMetrics()
	}
	if cfg.Tracing.Enabled {
		if err := a.startTracing(); err != nil {
			a.logger.Warn().Err(err).Msg("Tracing disabled")
		}
	}

	return a, nil
}

// buildEmbedders registers the OpenAI embedders, wrapped in the SQLite cache when enabled.
func (a *app) buildEmbedders() *vectorstore.EmbedderRegistry {
	base := vectorstore.NewEmbedderRegistry()
	llm.RegisterEmbedders(base, llm.OpenAIConfig{
		APIKey:        a.cfg.OpenAI.APIKey,
		BaseURL:       a.cfg.OpenAI.BaseURL,
		Model:         a.cfg.OpenAI.EmbeddingModel,
		AzureEndpoint: a.cfg.OpenAI.AzureEndpoint,
		APIVersion:    a.cfg.OpenAI.APIVersion,
	})
	if !a.cfg.Cache.Enabled {
		return base
	}

	cached := vectorstore.NewEmbedderRegistry()
	for _, name := range base.Names() {
		name := name
		cached.Register(name, a.cached(func() (vectorstore.Embedder, error) {
			return base.Resolve(name)
		}))
	}
	cached.SetDefault(a.cached(base.Default))
	return cached
}

func (a *app) cached(factory vectorstore.EmbedderFactory) vectorstore.EmbedderFactory {
	return func() (vectorstore.Embedder, error) {
		inner, err := factory()
		if err != nil {
			return nil, err
		}
		c, err := memory.NewCachedEmbedder(inner, a.cfg.Cache.Path, a.log.Component("cache"))
		if err != nil {
			a.logger.Warn().Err(err).Msg("Embedding cache unavailable, embedding without it")
			return inner, nil
		}
		a.mu.Lock()
		a.caches = append(a.caches, c)
		a.mu.Unlock()
		return c, nil
	}
}

// buildModel returns the configured chat model, or nil when its credentials are missing.
func (a *app) buildModel() llm.LanguageModel {
	cfg := a.cfg
	switch cfg.Provider {
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			break
		}
		return llm.NewAnthropicModel(llm.AnthropicConfig{
			APIKey:    cfg.Anthropic.APIKey,
			BaseURL:   cfg.Anthropic.BaseURL,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})
	default:
		if cfg.OpenAI.APIKey == "" {
			break
		}
		openAI := llm.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			APIVersion: cfg.OpenAI.APIVersion,
		}
		if cfg.Provider == "azure" {
			openAI.AzureEndpoint = cfg.OpenAI.AzureEndpoint
		}
		return llm.NewOpenAIModel(openAI)
	}

	a.logger.Debug().Str("provider", cfg.Provider).Msg("No API key configured, model-backed tools are unavailable")
	return nil
}

func (a *app) serveMetrics() {
	observability.EnsureRegistered()

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	a.metrics = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("Serving metrics")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

func buildHooks(entries []config.HookConfig, logger zerolog.Logger) (*hooks.Manager, error) {
	list := make([]hooks.Hook, 0, len(entries))
	for _, e := range entries {
		list = append(list, hooks.Hook{
			ID:      e.ID,
			Event:   e.Event,
			Script:  e.Script,
			Timeout: time.Duration(e.Timeout) * time.Second,
		})
	}
	m, err := hooks.NewManager(list, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid hooks: %w", err)
	}
	return m, nil
}

// trigger runs the hooks for event; hook failures are logged, never returned.
func (a *app) trigger(ctx context.Context, event string, data map[string]interface{}) {
	if err := a.hooks.Trigger(ctx, event, data); err != nil {
		a.logger.Warn().Err(err).Str("event", event).Msg("Hook failed")
	}
}

// startTracing exports tool spans to the configured JSON lines file.
func (a *app) startTracing() error {
	path := a.cfg.Tracing.File
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	if err := tracing.InitOpenTelemetry("toolflow", f); err != nil {
		f.Close()
		return err
	}
	a.traces = f
	a.logger.Debug().Str("file", path).Msg("Exporting spans")
	return nil
}

func (a *app) builder() *graph.Builder {
	return graph.NewBuilder(a.registry, a.log.Component("graph"))
}

// Close stops external modules and the metrics server, flushes spans and closes caches and the log file.
func (a *app) Close() {
	if a.runtime != nil {
		a.runtime.Shutdown()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}

	if a.traces != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to flush spans")
		}
		cancel()
		_ = a.traces.Close()
		a.traces = nil
	}

	a.mu.Lock()
	for _, c := range a.caches {
		if err := c.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close embedding cache")
		}
	}
	a.caches = nil
	a.mu.Unlock()

	_ = a.log.Close()
}
