// Package store persists campaigns, leads, and stage history. It is the
// single source of truth for pipeline results: no stage is considered
// complete until its lead mutations are durable here.
package store

import (
	"context"
	"time"

	"github.com/sells-group/leadgen/internal/model"
)

// Store defines the persistence interface for the lead pipeline.
//
// Lead writes are per-row upserts keyed by (campaign_id, place_id), so
// collector re-runs merge fields instead of duplicating rows. Concurrent
// stage workers write different leads within one campaign; implementations
// must guarantee row-level atomicity, never table-level locking.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error)
	UpdateCampaign(ctx context.Context, campaignID string, u model.CampaignUpdate) error
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, limit int) ([]model.Campaign, error)
	DeleteCampaignsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Leads
	InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) (int, error)
	UpdateLead(ctx context.Context, leadID string, u model.LeadUpdate) error
	GetLeadsByCampaign(ctx context.Context, campaignID string, status model.LeadStatus) ([]model.Lead, error)

	// Stage history
	RecordStageRun(ctx context.Context, sr model.StageRun) error
	GetStageRuns(ctx context.Context, campaignID string) ([]model.StageRun, error)

	// Aggregates
	GetCampaignStats(ctx context.Context, campaignID string) (*model.CampaignStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
