package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/export"
	"github.com/sells-group/leadgen/internal/monitoring"
	"github.com/sells-group/leadgen/internal/pipeline"
	"github.com/sells-group/leadgen/internal/registry"
	"github.com/sells-group/leadgen/internal/store"
	anthropicpkg "github.com/sells-group/leadgen/pkg/anthropic"
	"github.com/sells-group/leadgen/pkg/instantly"
	"github.com/sells-group/leadgen/pkg/perplexity"
	"github.com/sells-group/leadgen/pkg/places"
)

// appEnv holds the initialized store, orchestrator, and supporting pieces
// shared by the generate/serve/export commands.
type appEnv struct {
	Store        store.Store
	Registry     *registry.Registry
	Orchestrator *pipeline.Orchestrator
	Metrics      *monitoring.Collector
	Exporter     *export.Exporter
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "leads.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store and every configured provider client, then
// builds the orchestrator. Unconfigured capabilities get nil clients; the
// pipeline skips the stages that need them. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var placesClient places.Client
	if cfg.Places.Key != "" {
		placesClient = places.NewClient(cfg.Places.Key,
			places.WithBaseURL(cfg.Places.BaseURL),
			places.WithRateLimit(cfg.Places.CallsPerSec),
		)
	} else {
		zap.L().Warn("LEADGEN_PLACES_KEY not set, lead collection unavailable")
	}

	var pplxClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		pplxClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Debug("LEADGEN_PERPLEXITY_KEY not set, research stage will be skipped")
	}

	var aiClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		aiClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("LEADGEN_ANTHROPIC_KEY not set, personalization falls back to templates")
	}

	var instantlyClient instantly.Client
	if cfg.Instantly.Key != "" {
		instantlyClient = instantly.NewClient(cfg.Instantly.Key,
			instantly.WithBaseURL(cfg.Instantly.BaseURL),
		)
	} else {
		zap.L().Debug("LEADGEN_INSTANTLY_KEY not set, campaign submission will be skipped")
	}

	var templates *pipeline.MessageTemplates
	if cfg.Pipeline.TemplatesPath != "" {
		templates, err = pipeline.LoadTemplates(cfg.Pipeline.TemplatesPath)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("message templates loaded",
			zap.String("path", cfg.Pipeline.TemplatesPath),
			zap.Int("count", len(templates.Templates)),
		)
	}

	reg := registry.New()
	metrics := monitoring.NewCollector()
	orch := pipeline.New(cfg, st, reg, placesClient, pplxClient, aiClient, instantlyClient, templates, metrics)

	return &appEnv{
		Store:        st,
		Registry:     reg,
		Orchestrator: orch,
		Metrics:      metrics,
		Exporter:     export.New(cfg.Export),
	}, nil
}
