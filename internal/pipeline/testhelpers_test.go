package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen/internal/config"
	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/monitoring"
	"github.com/sells-group/leadgen/internal/registry"
	"github.com/sells-group/leadgen/internal/store"
	"github.com/sells-group/leadgen/pkg/anthropic"
	"github.com/sells-group/leadgen/pkg/instantly"
	"github.com/sells-group/leadgen/pkg/perplexity"
	"github.com/sells-group/leadgen/pkg/places"
)

// testConfig returns a pipeline configuration tuned for fast tests: no
// retries, no inter-call delays, tight budgets.
func testConfig() *config.Config {
	return &config.Config{
		Places: config.PlacesConfig{Region: "us"},
		Pipeline: config.PipelineConfig{
			StageConcurrency:  4,
			MaxAttempts:       1,
			CallTimeout:       5 * time.Second,
			StageBudget:       time.Minute,
			EnableEnrichment:  true,
			EnableResearch:    true,
			EnablePersonalize: true,
			EnableSubmission:  false,
		},
	}
}

type testEnv struct {
	orch       *Orchestrator
	store      store.Store
	registry   *registry.Registry
	places     *mockPlacesClient
	perplexity *mockPerplexityClient
	anthropic  *mockAnthropicClient
	instantly  *mockInstantlyClient
}

// clients set to nil on env after newTestEnv are honored by rebuilding.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:      st,
		registry:   registry.New(),
		places:     new(mockPlacesClient),
		perplexity: new(mockPerplexityClient),
		anthropic:  new(mockAnthropicClient),
		instantly:  new(mockInstantlyClient),
	}
	env.orch = New(cfg, st, env.registry,
		env.places, env.perplexity, env.anthropic, env.instantly,
		nil, monitoring.NewCollector())
	return env
}

// rebuild swaps clients (possibly nil) on the orchestrator.
func (e *testEnv) rebuild(cfg *config.Config, usePlaces, usePerplexity, useAnthropic, useInstantly bool) {
	var (
		p  = clientOrNil(e.places, usePlaces)
		px = perplexityOrNil(e.perplexity, usePerplexity)
		a  = anthropicOrNil(e.anthropic, useAnthropic)
		i  = instantlyOrNil(e.instantly, useInstantly)
	)
	e.orch = New(cfg, e.store, e.registry, p, px, a, i, nil, monitoring.NewCollector())
}

func (e *testEnv) waitForRun(t *testing.T, runID string) *model.PipelineRun {
	t.Helper()
	var run *model.PipelineRun
	require.Eventually(t, func() bool {
		r, err := e.registry.Get(runID)
		if err != nil {
			return false
		}
		if !r.Status.Terminal() {
			return false
		}
		run = r
		return true
	}, 5*time.Second, 10*time.Millisecond, "run did not reach a terminal state")
	return run
}

// Typed nil helpers: a nil concrete pointer inside a non-nil interface would
// defeat the orchestrator's availability checks.

func clientOrNil(m *mockPlacesClient, use bool) places.Client {
	if use {
		return m
	}
	return nil
}

func perplexityOrNil(m *mockPerplexityClient, use bool) perplexity.Client {
	if use {
		return m
	}
	return nil
}

func anthropicOrNil(m *mockAnthropicClient, use bool) anthropic.Client {
	if use {
		return m
	}
	return nil
}

func instantlyOrNil(m *mockInstantlyClient, use bool) instantly.Client {
	if use {
		return m
	}
	return nil
}
