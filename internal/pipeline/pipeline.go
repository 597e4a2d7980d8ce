// Package pipeline orchestrates the lead-generation stages: collection,
// validation, LinkedIn enrichment, research, personalization, and campaign
// submission. One Orchestrator serves all campaigns; each Start call spawns
// a background run tracked in the registry.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/config"
	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/monitoring"
	"github.com/sells-group/leadgen/internal/registry"
	"github.com/sells-group/leadgen/internal/resilience"
	"github.com/sells-group/leadgen/internal/store"
	"github.com/sells-group/leadgen/pkg/anthropic"
	"github.com/sells-group/leadgen/pkg/instantly"
	"github.com/sells-group/leadgen/pkg/perplexity"
	"github.com/sells-group/leadgen/pkg/places"
)

// Orchestrator wires stages to provider clients and the store.
// Optional clients may be nil; their stages are then skipped as unavailable.
type Orchestrator struct {
	cfg        *config.Config
	store      store.Store
	registry   *registry.Registry
	places     places.Client
	perplexity perplexity.Client
	anthropic  anthropic.Client
	instantly  instantly.Client
	templates  *MessageTemplates
	breakers   *resilience.ServiceBreakers
	metrics    *monitoring.Collector
}

// New creates an Orchestrator with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	reg *registry.Registry,
	placesClient places.Client,
	pplxClient perplexity.Client,
	aiClient anthropic.Client,
	instantlyClient instantly.Client,
	templates *MessageTemplates,
	metrics *monitoring.Collector,
) *Orchestrator {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      st,
		registry:   reg,
		places:     placesClient,
		perplexity: pplxClient,
		anthropic:  aiClient,
		instantly:  instantlyClient,
		templates:  templates,
		breakers:   resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		metrics:    metrics,
	}
}

// Breakers exposes circuit-breaker states for the metrics endpoint.
func (o *Orchestrator) Breakers() *resilience.ServiceBreakers { return o.breakers }

// GenerateRequest describes one lead-generation run. The Include options
// let a caller switch optional stages off per request; nil means enabled.
type GenerateRequest struct {
	Query                  string
	Location               string
	MaxLeads               int
	CampaignName           string
	FromEmail              string
	IncludeResearch        *bool
	IncludePersonalization *bool
}

func (r GenerateRequest) researchWanted() bool {
	return r.IncludeResearch == nil || *r.IncludeResearch
}

func (r GenerateRequest) personalizationWanted() bool {
	return r.IncludePersonalization == nil || *r.IncludePersonalization
}

// Start validates the request, creates the campaign, registers a run, and
// launches the pipeline in the background. It returns the run ID immediately.
func (o *Orchestrator) Start(ctx context.Context, req GenerateRequest) (string, error) {
	if o.places == nil {
		return "", eris.Wrap(model.ErrNotConfigured, "pipeline: places API key missing")
	}
	if req.MaxLeads <= 0 {
		req.MaxLeads = 20
	}
	if req.CampaignName == "" {
		req.CampaignName = req.Query + " - " + req.Location
	}

	campaign, err := o.store.CreateCampaign(ctx, model.Campaign{
		Name:      req.CampaignName,
		Query:     req.Query,
		Location:  req.Location,
		MaxLeads:  req.MaxLeads,
		FromEmail: req.FromEmail,
	})
	if err != nil {
		return "", model.NewStoreError("create campaign", err)
	}

	// The run outlives the HTTP request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	runID := o.registry.Create(campaign.ID, cancel)

	if o.metrics != nil {
		o.metrics.RunStarted()
	}

	go o.run(runCtx, runID, campaign, req)
	return runID, nil
}

// run drives every stage for one campaign and records the terminal outcome
// exactly once.
func (o *Orchestrator) run(ctx context.Context, runID string, campaign *model.Campaign, req GenerateRequest) {
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("campaign_id", campaign.ID),
	)
	log.Info("pipeline: run starting",
		zap.String("query", req.Query),
		zap.String("location", req.Location),
		zap.Int("max_leads", req.MaxLeads),
	)

	start := time.Now()
	running := model.RunStatusRunning
	o.updateRun(runID, model.RunUpdate{Status: &running, StartedAt: &start})
	o.updateCampaignStatus(ctx, campaign.ID, model.CampaignStatusRunning, "")

	result := &model.RunResult{CampaignID: campaign.ID}
	var summaries []model.StageSummary

	fail := func(err error) {
		log.Error("pipeline: run failed", zap.Error(err))
		o.finishRun(ctx, runID, campaign.ID, result, summaries, start, err)
	}

	exec := &runExec{
		Orchestrator:       o,
		runID:              runID,
		includeResearch:    req.researchWanted(),
		includePersonalize: req.personalizationWanted(),
	}
	for _, stage := range exec.plan() {
		if ctx.Err() != nil {
			o.cancelRun(ctx, runID, campaign.ID, log)
			return
		}

		o.setStep(runID, stage.Stage)
		summary, err := o.executeStage(ctx, stage, campaign, result)
		if err != nil && model.IsCapabilityUnavailable(err) && optionalStage(stage.Stage) {
			// The provider is down across the board; the run goes on
			// without this stage.
			log.Warn("pipeline: stage capability unavailable, skipping",
				zap.String("stage", string(stage.Stage)),
				zap.Error(err),
			)
			summary.Status = model.StageStatusSkipped
			summary.SkipNote = skipUnavailable
			err = nil
		}
		summaries = append(summaries, summary)
		o.recordStage(ctx, campaign.ID, summary, err)
		o.advanceProgress(runID, stage.Stage)

		if err != nil {
			if ctx.Err() != nil {
				o.cancelRun(ctx, runID, campaign.ID, log)
				return
			}
			fail(err)
			return
		}
	}

	o.finishRun(ctx, runID, campaign.ID, result, summaries, start, nil)
	log.Info("pipeline: run complete",
		zap.Int("total_leads", result.TotalLeads),
		zap.Int("validated", result.ValidatedLeads),
		zap.Int("personalized", result.PersonalizedLeads),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// executeStage runs one stage inside its wall-clock budget. A skipped stage
// returns a summary with the reason; a fatal error aborts the run.
func (o *Orchestrator) executeStage(ctx context.Context, stage stagePlan, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	if stage.Skip != "" {
		zap.L().Info("pipeline: stage skipped",
			zap.String("stage", string(stage.Stage)),
			zap.String("reason", stage.Skip),
		)
		return model.StageSummary{
			Stage:    stage.Stage,
			Status:   model.StageStatusSkipped,
			SkipNote: stage.Skip,
		}, nil
	}

	budget := o.cfg.Pipeline.StageBudget
	if budget <= 0 {
		budget = 10 * time.Minute
	}
	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	stageStart := time.Now()
	summary, err := stage.Run(stageCtx, campaign, result)
	summary.Stage = stage.Stage
	summary.Duration = time.Since(stageStart).Seconds()

	if err != nil {
		// A blown budget fails the stage, not the whole service.
		if stageCtx.Err() != nil && ctx.Err() == nil {
			err = eris.Wrapf(err, "pipeline: stage %s exceeded budget %s", stage.Stage, budget)
		}
		summary.Status = model.StageStatusFailed
		return summary, err
	}

	summary.Status = model.StageStatusCompleted
	return summary, nil
}

func (o *Orchestrator) recordStage(ctx context.Context, campaignID string, s model.StageSummary, stageErr error) {
	sr := model.StageRun{
		CampaignID: campaignID,
		Stage:      s.Stage,
		Status:     s.Status,
		Processed:  s.Processed,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Duration:   s.Duration,
	}
	if stageErr != nil {
		sr.ErrorMessage = stageErr.Error()
	} else if s.SkipNote != "" {
		sr.ErrorMessage = s.SkipNote
	}
	if err := o.store.RecordStageRun(ctx, sr); err != nil {
		zap.L().Warn("pipeline: failed to record stage run",
			zap.String("campaign_id", campaignID),
			zap.String("stage", string(s.Stage)),
			zap.Error(err),
		)
	}
	if o.metrics != nil {
		o.metrics.StageFinished(string(s.Stage), string(s.Status), s.Processed, s.Failed)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, runID, campaignID string, result *model.RunResult, summaries []model.StageSummary, start time.Time, runErr error) {
	result.Stages = summaries
	result.ExecutionSeconds = time.Since(start).Seconds()

	now := time.Now().UTC()
	done := 100

	if runErr != nil {
		failed := model.RunStatusFailed
		msg := runErr.Error()
		o.updateRun(runID, model.RunUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
			Results:      result,
			CompletedAt:  &now,
		})
		o.updateCampaignStatus(ctx, campaignID, model.CampaignStatusFailed, msg)
		if o.metrics != nil {
			o.metrics.RunFinished("failed", result.ExecutionSeconds)
		}
		return
	}

	completed := model.RunStatusCompleted
	o.updateRun(runID, model.RunUpdate{
		Status:      &completed,
		Progress:    &done,
		Results:     result,
		CompletedAt: &now,
	})

	o.updateCampaignCounters(ctx, campaignID, result)
	if o.metrics != nil {
		o.metrics.RunFinished("completed", result.ExecutionSeconds)
	}
}

func (o *Orchestrator) cancelRun(ctx context.Context, runID, campaignID string, log *zap.Logger) {
	log.Info("pipeline: run cancelled")
	cancelled := model.RunStatusCancelled
	now := time.Now().UTC()
	o.updateRun(runID, model.RunUpdate{Status: &cancelled, CompletedAt: &now})

	// The run context is gone; use a short-lived one for the final write.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.updateCampaignStatus(writeCtx, campaignID, model.CampaignStatusFailed, "run cancelled")
	if o.metrics != nil {
		o.metrics.RunFinished("cancelled", 0)
	}
}

// updateRun pushes a registry update; a missing run (deleted mid-flight) is
// not an error worth surfacing.
func (o *Orchestrator) updateRun(runID string, u model.RunUpdate) {
	if err := o.registry.Update(runID, u); err != nil && !model.IsNotFound(err) {
		zap.L().Warn("pipeline: run update failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (o *Orchestrator) setStep(runID string, stage model.Stage) {
	step := stepLabel(stage)
	o.updateRun(runID, model.RunUpdate{CurrentStep: &step})
}

func (o *Orchestrator) advanceProgress(runID string, stage model.Stage) {
	p := progressAfter(stage)
	o.updateRun(runID, model.RunUpdate{Progress: &p})
}

func (o *Orchestrator) updateCampaignStatus(ctx context.Context, campaignID string, status model.CampaignStatus, errMsg string) {
	u := model.CampaignUpdate{Status: &status}
	if errMsg != "" {
		u.ErrorMessage = &errMsg
	}
	if status == model.CampaignStatusCompleted || status == model.CampaignStatusFailed {
		now := time.Now().UTC()
		u.CompletedAt = &now
	}
	if err := o.store.UpdateCampaign(ctx, campaignID, u); err != nil {
		zap.L().Warn("pipeline: campaign status update failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) updateCampaignCounters(ctx context.Context, campaignID string, result *model.RunResult) {
	status := model.CampaignStatusCompleted
	now := time.Now().UTC()
	if err := o.store.UpdateCampaign(ctx, campaignID, model.CampaignUpdate{
		Status:            &status,
		TotalLeads:        &result.TotalLeads,
		ValidatedLeads:    &result.ValidatedLeads,
		EnrichedLeads:     &result.EnrichedLeads,
		PersonalizedLeads: &result.PersonalizedLeads,
		CompletedAt:       &now,
	}); err != nil {
		zap.L().Warn("pipeline: campaign counter update failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}
}
