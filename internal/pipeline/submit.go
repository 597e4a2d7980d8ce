package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/resilience"
	"github.com/sells-group/leadgen/pkg/instantly"
)

// submitStage pushes personalized leads with a deliverable email into an
// outreach campaign. Creating the remote campaign is fatal on failure;
// individual lead submissions are isolated as usual.
func (ex *runExec) submitStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	all, err := ex.store.GetLeadsByCampaign(ctx, campaign.ID, "")
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("load leads for submission", err)
	}

	var leads []model.Lead
	for _, l := range stageCandidates(all, model.LeadStatusPersonalized) {
		if l.EmailValid == model.TriValid && l.MessagePersonalized {
			leads = append(leads, l)
		}
	}
	if len(leads) == 0 {
		zap.L().Info("pipeline: no submittable leads",
			zap.String("campaign_id", campaign.ID),
		)
		return model.StageSummary{}, nil
	}

	fromEmail := campaign.FromEmail
	if fromEmail == "" {
		fromEmail = ex.cfg.Instantly.FromEmail
	}
	if fromEmail == "" {
		return model.StageSummary{}, eris.Wrap(model.ErrNotConfigured, "pipeline: submission needs a from email")
	}

	breaker := ex.breakers.Get("instantly")
	retryCfg := resilience.ForAttempts(ex.cfg.Pipeline.MaxAttempts, 0)

	remote, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*instantly.Campaign, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*instantly.Campaign, error) {
			return ex.instantly.CreateCampaign(ctx, instantly.CreateCampaignRequest{
				Name:      campaign.Name,
				FromEmail: fromEmail,
			})
		})
	})
	if err != nil {
		return model.StageSummary{}, eris.Wrap(err, "pipeline: create outreach campaign")
	}

	summary, err := ex.forEachLead(ctx, model.StageSubmit, leads, 0, func(ctx context.Context, lead *model.Lead) error {
		submission := instantly.Lead{
			CampaignID:   remote.ID,
			Email:        lead.Email,
			CompanyName:  lead.Name,
			Website:      lead.Website,
			Phone:        lead.Phone,
			Personalized: lead.PersonalizedMessage.Body,
			CustomFields: map[string]string{
				"subject": lead.PersonalizedMessage.Subject,
				"city":    lead.City,
				"state":   lead.State,
			},
		}
		if err := breaker.Execute(ctx, func(ctx context.Context) error {
			return ex.instantly.AddLead(ctx, submission)
		}); err != nil {
			return err
		}

		status := model.LeadStatusSubmitted
		if err := ex.store.UpdateLead(ctx, lead.ID, model.LeadUpdate{Status: &status}); err != nil {
			return model.NewStoreError("update lead submission", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	if summary.Succeeded > 0 {
		if err := ex.instantly.ActivateCampaign(ctx, remote.ID); err != nil {
			zap.L().Warn("pipeline: campaign activation failed",
				zap.String("remote_campaign_id", remote.ID),
				zap.Error(err),
			)
		}
	}

	result.SubmittedLeads = summary.Succeeded
	zap.L().Info("pipeline: leads submitted",
		zap.String("campaign_id", campaign.ID),
		zap.String("remote_campaign_id", remote.ID),
		zap.Int("submitted", summary.Succeeded),
		zap.String("from_email", strings.ToLower(fromEmail)),
	)
	return summary, nil
}
