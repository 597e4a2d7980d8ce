// Package registry tracks in-flight and recently finished pipeline runs.
// Runs are kept in memory: they describe process-local goroutines, so there
// is nothing meaningful to resume from disk after a restart. Durable outcomes
// live in the store's stage history.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/model"
)

type entry struct {
	mu     sync.Mutex
	run    model.PipelineRun
	cancel context.CancelFunc
}

// Registry is a concurrency-safe map of pipeline runs keyed by run ID.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*entry
}

func New() *Registry {
	return &Registry{runs: make(map[string]*entry)}
}

// Create registers a new pending run for the campaign and returns its ID.
// The cancel func is invoked when the run is deleted while still active.
func (r *Registry) Create(campaignID string, cancel context.CancelFunc) string {
	id := uuid.New().String()
	e := &entry{
		run: model.PipelineRun{
			ID:         id,
			CampaignID: campaignID,
			Status:     model.RunStatusPending,
			CreatedAt:  time.Now().UTC(),
		},
		cancel: cancel,
	}

	r.mu.Lock()
	r.runs[id] = e
	r.mu.Unlock()

	zap.L().Info("registry: run created",
		zap.String("run_id", id),
		zap.String("campaign_id", campaignID),
	)
	return id
}

// Update applies a partial mutation to one run atomically. Once a run has
// reached a terminal status, further terminal transitions are ignored so the
// first outcome wins.
func (r *Registry) Update(runID string, u model.RunUpdate) error {
	e, ok := r.lookup(runID)
	if !ok {
		return eris.Wrapf(model.ErrNotFound, "run %s", runID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if u.Status != nil {
		if e.run.Status.Terminal() {
			zap.L().Debug("registry: ignoring status change on terminal run",
				zap.String("run_id", runID),
				zap.String("status", string(*u.Status)),
			)
			return nil
		}
		e.run.Status = *u.Status
	}
	if u.Progress != nil && *u.Progress > e.run.Progress {
		e.run.Progress = *u.Progress
	}
	if u.CurrentStep != nil {
		e.run.CurrentStep = *u.CurrentStep
	}
	if u.TotalLeads != nil {
		e.run.TotalLeads = *u.TotalLeads
	}
	if u.ProcessedLeads != nil {
		e.run.ProcessedLeads = *u.ProcessedLeads
	}
	if u.Results != nil {
		e.run.Results = u.Results
	}
	if u.ErrorMessage != nil {
		e.run.ErrorMessage = *u.ErrorMessage
	}
	if u.StartedAt != nil {
		e.run.StartedAt = u.StartedAt
	}
	if u.CompletedAt != nil {
		e.run.CompletedAt = u.CompletedAt
	}
	return nil
}

// Get returns a snapshot of one run.
func (r *Registry) Get(runID string) (*model.PipelineRun, error) {
	e, ok := r.lookup(runID)
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "run %s", runID)
	}
	e.mu.Lock()
	snapshot := e.run
	e.mu.Unlock()
	return &snapshot, nil
}

// List returns snapshots of all known runs, most recent first.
func (r *Registry) List() []model.PipelineRun {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.runs))
	for _, e := range r.runs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	runs := make([]model.PipelineRun, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		runs = append(runs, e.run)
		e.mu.Unlock()
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// Delete removes a run. An active run is cancelled first; its goroutine will
// observe the context and stop, but the entry is gone immediately, so later
// lookups report not found.
func (r *Registry) Delete(runID string) error {
	r.mu.Lock()
	e, ok := r.runs[runID]
	if ok {
		delete(r.runs, runID)
	}
	r.mu.Unlock()

	if !ok {
		return eris.Wrapf(model.ErrNotFound, "run %s", runID)
	}

	e.mu.Lock()
	active := !e.run.Status.Terminal()
	cancel := e.cancel
	e.mu.Unlock()

	if active && cancel != nil {
		cancel()
		zap.L().Info("registry: cancelled active run", zap.String("run_id", runID))
	}
	return nil
}

func (r *Registry) lookup(runID string) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.runs[runID]
	r.mu.RUnlock()
	return e, ok
}
