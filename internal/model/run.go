package model

import "time"

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Stage identifies one transformation step applied to leads.
type Stage string

const (
	StageCollect     Stage = "collection"
	StageValidate    Stage = "validation"
	StageEnrich      Stage = "linkedin_enrichment"
	StageResearch    Stage = "research"
	StagePersonalize Stage = "personalization"
	StageSubmit      Stage = "campaign_submission"
)

// PipelineRun is the execution record for one campaign's processing,
// polled by clients while the run is in flight.
type PipelineRun struct {
	ID             string     `json:"run_id"`
	CampaignID     string     `json:"campaign_id"`
	Status         RunStatus  `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStep    string     `json:"current_step,omitempty"`
	TotalLeads     int        `json:"total_leads"`
	ProcessedLeads int        `json:"processed_leads"`
	Results        *RunResult `json:"results,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunUpdate holds a partial run mutation applied atomically by the registry.
type RunUpdate struct {
	Status         *RunStatus
	Progress       *int
	CurrentStep    *string
	TotalLeads     *int
	ProcessedLeads *int
	Results        *RunResult
	ErrorMessage   *string
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// RunResult summarizes a completed run.
type RunResult struct {
	CampaignID        string         `json:"campaign_id"`
	TotalLeads        int            `json:"total_leads"`
	ValidatedLeads    int            `json:"validated_leads"`
	EnrichedLeads     int            `json:"enriched_leads"`
	ResearchedLeads   int            `json:"researched_leads"`
	PersonalizedLeads int            `json:"personalized_leads"`
	SubmittedLeads    int            `json:"submitted_leads"`
	ExecutionSeconds  float64        `json:"execution_time"`
	Stages            []StageSummary `json:"stages"`
}

// StageStatus is the recorded outcome of one stage execution.
type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageSummary is what a stage worker returns to the orchestrator.
type StageSummary struct {
	Stage     Stage       `json:"stage"`
	Status    StageStatus `json:"status"`
	Processed int         `json:"processed"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	SkipNote  string      `json:"skip_note,omitempty"`
	Duration  float64     `json:"duration_seconds"`
}

// StageRun is a durable stage-history row, one per stage execution.
type StageRun struct {
	ID           int64       `json:"id"`
	CampaignID   string      `json:"campaign_id"`
	Stage        Stage       `json:"stage"`
	Status       StageStatus `json:"status"`
	Processed    int         `json:"processed_count"`
	Succeeded    int         `json:"success_count"`
	Failed       int         `json:"error_count"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Duration     float64     `json:"duration_seconds"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}
