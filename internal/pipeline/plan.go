package pipeline

import (
	"context"

	"github.com/sells-group/leadgen/internal/model"
)

// stagePlan binds one stage to its executor. A non-empty Skip reason short-
// circuits execution and is recorded in the stage history.
type stagePlan struct {
	Stage model.Stage
	Skip  string
	Run   func(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error)
}

const (
	skipDisabled    = "disabled by configuration"
	skipByRequest   = "disabled by request"
	skipUnavailable = "capability not configured"
)

// plan assembles the stage sequence for a run. Collection and validation
// always execute; the remaining stages depend on configuration, the
// request's options, and which provider clients were wired in.
func (ex *runExec) plan() []stagePlan {
	pc := ex.cfg.Pipeline

	plans := []stagePlan{
		{Stage: model.StageCollect, Run: ex.collectStage},
		{Stage: model.StageValidate, Run: ex.validateStage},
	}

	enrich := stagePlan{Stage: model.StageEnrich, Run: ex.enrichStage}
	if !pc.EnableEnrichment {
		enrich.Skip = skipDisabled
	}
	plans = append(plans, enrich)

	research := stagePlan{Stage: model.StageResearch, Run: ex.researchStage}
	switch {
	case !pc.EnableResearch:
		research.Skip = skipDisabled
	case !ex.includeResearch:
		research.Skip = skipByRequest
	case ex.perplexity == nil:
		research.Skip = skipUnavailable
	}
	plans = append(plans, research)

	personalize := stagePlan{Stage: model.StagePersonalize, Run: ex.personalizeStage}
	switch {
	case !pc.EnablePersonalize:
		personalize.Skip = skipDisabled
	case !ex.includePersonalize:
		personalize.Skip = skipByRequest
	}
	plans = append(plans, personalize)

	submit := stagePlan{Stage: model.StageSubmit, Run: ex.submitStage}
	switch {
	case !pc.EnableSubmission:
		submit.Skip = skipDisabled
	case ex.instantly == nil:
		submit.Skip = skipUnavailable
	}
	plans = append(plans, submit)

	return plans
}

// optionalStage reports whether the run can continue when the stage's
// provider is wholly unavailable. Collection and validation cannot be
// skipped; nothing downstream makes sense without them.
func optionalStage(stage model.Stage) bool {
	switch stage {
	case model.StageCollect, model.StageValidate:
		return false
	default:
		return true
	}
}

// stepLabel is the human-readable progress label clients poll for.
func stepLabel(stage model.Stage) string {
	switch stage {
	case model.StageCollect:
		return "Collecting leads from places directory"
	case model.StageValidate:
		return "Validating contact information"
	case model.StageEnrich:
		return "Inferring LinkedIn profiles"
	case model.StageResearch:
		return "Researching companies"
	case model.StagePersonalize:
		return "Personalizing outreach messages"
	case model.StageSubmit:
		return "Submitting leads to campaign"
	default:
		return string(stage)
	}
}

// progressAfter maps stage completion to overall run progress. Submission
// stops at 95; the terminal update owns 100.
func progressAfter(stage model.Stage) int {
	switch stage {
	case model.StageCollect:
		return 20
	case model.StageValidate:
		return 40
	case model.StageEnrich:
		return 55
	case model.StageResearch:
		return 75
	case model.StagePersonalize:
		return 90
	case model.StageSubmit:
		return 95
	default:
		return 0
	}
}
