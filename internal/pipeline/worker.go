package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/resilience"
)

// runExec binds the orchestrator to a single run so stage workers can push
// per-lead progress into the registry. The include flags carry the request's
// per-run stage options into the plan.
type runExec struct {
	*Orchestrator
	runID              string
	includeResearch    bool
	includePersonalize bool
}

// leadFunc processes one lead. Returning a StoreError aborts the whole
// stage; any other error fails just that lead.
type leadFunc func(ctx context.Context, lead *model.Lead) error

// forEachLead fans leads out over a bounded worker pool. Each lead gets the
// configured retry budget with a per-attempt call timeout; launches are
// spaced by minDelay so provider rate limits hold even at full concurrency.
func (ex *runExec) forEachLead(ctx context.Context, stage model.Stage, leads []model.Lead, minDelay time.Duration, fn leadFunc) (model.StageSummary, error) {
	summary := model.StageSummary{Stage: stage}
	if len(leads) == 0 {
		return summary, nil
	}

	concurrency := ex.cfg.Pipeline.StageConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	var limiter *rate.Limiter
	if minDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(minDelay), 1)
	}

	retryCfg := resilience.ForAttempts(ex.cfg.Pipeline.MaxAttempts, 0)
	retryCfg.OnRetry = resilience.RetryLogger("pipeline", string(stage))

	var mu sync.Mutex
	processed, succeeded, failed, rejected := 0, 0, 0, 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	launched := 0
	for i := range leads {
		lead := &leads[i] // distinct index per goroutine; stages may mutate it

		if limiter != nil {
			if err := limiter.Wait(gCtx); err != nil {
				break
			}
		}
		if gCtx.Err() != nil {
			break
		}

		launched++
		g.Go(func() error {
			err := resilience.Do(gCtx, retryCfg, func(ctx context.Context) error {
				callCtx := ctx
				if timeout := ex.cfg.Pipeline.CallTimeout; timeout > 0 {
					var cancel context.CancelFunc
					callCtx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				return fn(callCtx, lead)
			})

			mu.Lock()
			processed++
			done := processed
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, resilience.ErrCircuitOpen):
				rejected++
			default:
				failed++
			}
			mu.Unlock()

			ex.updateRun(ex.runID, model.RunUpdate{ProcessedLeads: &done})

			if err == nil {
				return nil
			}
			// Store failures are fatal for the stage; anything else is
			// isolated to this lead.
			if model.IsStoreError(err) {
				return err
			}
			if errors.Is(err, resilience.ErrCircuitOpen) {
				// Service-wide outage, not a bad lead. Leave the lead at
				// its current status so a later run can pick it up.
				return nil
			}
			if gCtx.Err() == context.Canceled {
				// Run cancelled: leave the lead for a future run.
				return nil
			}
			// The group context may already be dead (blown stage budget);
			// the failure record must still land.
			ex.markLeadFailed(context.WithoutCancel(gCtx), stage, lead.ID, err)
			return nil
		})
	}

	err := g.Wait()

	// A blown budget fails the leads it never scheduled instead of leaving
	// them stranded mid-stage. Cancellation leaves them untouched.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && launched < len(leads) {
		writeCtx := context.WithoutCancel(ctx)
		budgetErr := eris.Errorf("pipeline: %s ran out of time before this lead was scheduled", stage)
		for i := launched; i < len(leads); i++ {
			processed++
			failed++
			ex.markLeadFailed(writeCtx, stage, leads[i].ID, budgetErr)
		}
	}

	summary.Processed = processed
	summary.Succeeded = succeeded
	summary.Failed = failed + rejected

	// Every call bounced off an open breaker: the capability is down, not
	// the leads. The orchestrator downgrades this to a skipped stage.
	if err == nil && processed > 0 && rejected == processed {
		err = eris.Wrapf(model.ErrCapabilityUnavailable, "pipeline: %s provider rejected all calls", stage)
	}
	return summary, err
}

// markLeadFailed records a per-lead processing failure without stopping the
// stage. The lead keeps its data; only status and the error note change.
func (ex *runExec) markLeadFailed(ctx context.Context, stage model.Stage, leadID string, cause error) {
	zap.L().Warn("pipeline: lead failed",
		zap.String("stage", string(stage)),
		zap.String("lead_id", leadID),
		zap.String("class", resilience.ClassifyError(cause)),
		zap.Error(cause),
	)

	failedStatus := model.LeadStatusFailed
	note := fmt.Sprintf("%s: %s", stage, cause.Error())
	if err := ex.store.UpdateLead(ctx, leadID, model.LeadUpdate{
		Status:     &failedStatus,
		StageError: &note,
	}); err != nil {
		zap.L().Warn("pipeline: failed to record lead failure",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
}

// stageCandidates filters leads that are ready for a stage: not failed and
// at least minStatus along the lifecycle. Leads already past the stage are
// included so re-runs stay idempotent; the monotonic store guard makes the
// repeat write a no-op.
func stageCandidates(leads []model.Lead, minStatus model.LeadStatus) []model.Lead {
	var out []model.Lead
	for _, l := range leads {
		if l.Status == model.LeadStatusFailed {
			continue
		}
		if l.Status.Advances(minStatus) {
			// still earlier in the lifecycle than required
			continue
		}
		out = append(out, l)
	}
	return out
}
