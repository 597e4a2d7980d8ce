package model

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusCreated   CampaignStatus = "created"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Campaign represents one lead-generation request and its resulting lead set.
type Campaign struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Query     string         `json:"query"`
	Location  string         `json:"location"`
	MaxLeads  int            `json:"max_leads"`
	FromEmail string         `json:"from_email,omitempty"`
	Status    CampaignStatus `json:"status"`

	// Denormalized counters, updated as stages complete.
	TotalLeads        int `json:"total_leads"`
	ValidatedLeads    int `json:"validated_leads"`
	EnrichedLeads     int `json:"enriched_leads"`
	PersonalizedLeads int `json:"personalized_leads"`

	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// CampaignUpdate holds a partial campaign mutation. Nil fields are left untouched.
type CampaignUpdate struct {
	Status            *CampaignStatus
	TotalLeads        *int
	ValidatedLeads    *int
	EnrichedLeads     *int
	PersonalizedLeads *int
	ErrorMessage      *string
	CompletedAt       *time.Time
}

// CampaignStats aggregates lead and stage-history counts for one campaign.
type CampaignStats struct {
	Campaign          Campaign       `json:"campaign"`
	LeadsByStatus     map[string]int `json:"leads_by_status"`
	ValidEmails       int            `json:"valid_emails"`
	ValidPhones       int            `json:"valid_phones"`
	EnrichedLeads     int            `json:"enriched_leads"`
	ResearchedLeads   int            `json:"researched_leads"`
	PersonalizedLeads int            `json:"personalized_leads"`
	StageRuns         []StageRun     `json:"stage_runs"`
}
