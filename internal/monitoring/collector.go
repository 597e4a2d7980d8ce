// Package monitoring collects run and stage counters for the metrics
// endpoint. Counters are process-local; durable history lives in the store.
package monitoring

import (
	"sync"
	"time"
)

// StageCounter tallies one stage's activity since process start.
type StageCounter struct {
	Runs        int `json:"runs"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	LeadsOK     int `json:"leads_processed"`
	LeadsFailed int `json:"leads_failed"`
}

// Snapshot is a point-in-time view of pipeline activity.
type Snapshot struct {
	RunsStarted    int     `json:"runs_started"`
	RunsActive     int     `json:"runs_active"`
	RunsCompleted  int     `json:"runs_completed"`
	RunsFailed     int     `json:"runs_failed"`
	RunsCancelled  int     `json:"runs_cancelled"`
	AvgRunSeconds  float64 `json:"avg_run_seconds"`
	RunFailureRate float64 `json:"run_failure_rate"`

	Stages map[string]StageCounter `json:"stages"`

	UptimeSeconds float64   `json:"uptime_seconds"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector accumulates pipeline counters. All methods are safe for
// concurrent use by stage workers.
type Collector struct {
	mu sync.Mutex

	started, completed, failed, cancelled int
	totalRunSeconds                       float64
	stages                                map[string]StageCounter

	startedAt time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		stages:    make(map[string]StageCounter),
		startedAt: time.Now(),
	}
}

// RunStarted records a new pipeline run.
func (c *Collector) RunStarted() {
	c.mu.Lock()
	c.started++
	c.mu.Unlock()
}

// RunFinished records a run outcome and its duration.
func (c *Collector) RunFinished(status string, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case "completed":
		c.completed++
		c.totalRunSeconds += seconds
	case "failed":
		c.failed++
		c.totalRunSeconds += seconds
	case "cancelled":
		c.cancelled++
	}
}

// StageFinished records one stage execution.
func (c *Collector) StageFinished(stage, status string, processed, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc := c.stages[stage]
	sc.Runs++
	switch status {
	case "completed":
		sc.Completed++
	case "failed":
		sc.Failed++
	case "skipped":
		sc.Skipped++
	}
	sc.LeadsOK += processed - failed
	sc.LeadsFailed += failed
	c.stages[stage] = sc
}

// Snapshot returns current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		RunsStarted:   c.started,
		RunsCompleted: c.completed,
		RunsFailed:    c.failed,
		RunsCancelled: c.cancelled,
		RunsActive:    c.started - c.completed - c.failed - c.cancelled,
		Stages:        make(map[string]StageCounter, len(c.stages)),
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
		CollectedAt:   time.Now().UTC(),
	}
	finished := c.completed + c.failed
	if finished > 0 {
		snap.AvgRunSeconds = c.totalRunSeconds / float64(finished)
		snap.RunFailureRate = float64(c.failed) / float64(finished)
	}
	for k, v := range c.stages {
		snap.Stages[k] = v
	}
	return snap
}
