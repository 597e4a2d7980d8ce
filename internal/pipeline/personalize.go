package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/resilience"
	"github.com/sells-group/leadgen/pkg/anthropic"
)

const personalizeSystemPrompt = `You write short, warm B2B cold-outreach emails for local
businesses. Use the research brief when one is provided. Keep the body under
120 words, no placeholders, no sign-off name. Respond in exactly this format:

SUBJECT: <subject line>
BODY:
<email body>`

// personalizeStage writes an outreach message for each eligible lead. With
// an AI client it generates a bespoke message and falls back to the template
// pool on failure; without one, templates carry the whole stage.
func (ex *runExec) personalizeStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	all, err := ex.store.GetLeadsByCampaign(ctx, campaign.ID, "")
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("load leads for personalization", err)
	}

	leads := stageCandidates(all, model.LeadStatusValidated)
	if ex.cfg.Pipeline.PersonalizeRequiresResearch {
		var researched []model.Lead
		for _, l := range leads {
			if l.ResearchCompleted {
				researched = append(researched, l)
			}
		}
		leads = researched
	}

	breaker := ex.breakers.Get("anthropic")

	summary, err := ex.forEachLead(ctx, model.StagePersonalize, leads, ex.cfg.Pipeline.PersonalizeDelay, func(ctx context.Context, lead *model.Lead) error {
		msg := ex.personalizeLead(ctx, breaker, lead)
		msg.CreatedAt = time.Now().UTC()

		status := model.LeadStatusPersonalized
		if err := ex.store.UpdateLead(ctx, lead.ID, model.LeadUpdate{
			Status:              &status,
			MessagePersonalized: true,
			PersonalizedMessage: msg,
		}); err != nil {
			return model.NewStoreError("update lead personalization", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	result.PersonalizedLeads = summary.Succeeded
	return summary, nil
}

// personalizeLead tries AI generation first and degrades to a template. The
// stage never loses a lead to a flaky model response.
func (ex *runExec) personalizeLead(ctx context.Context, breaker *resilience.CircuitBreaker, lead *model.Lead) *model.PersonalizedMessage {
	if ex.anthropic != nil {
		msg, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*model.PersonalizedMessage, error) {
			return ex.generateMessage(ctx, lead)
		})
		if err == nil {
			return msg
		}
		zap.L().Warn("pipeline: AI personalization failed, using template",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}

	msg, err := ex.templates.Render(lead)
	if err != nil {
		// The default pool always renders; a broken custom pool degrades
		// to a minimal generic message.
		zap.L().Warn("pipeline: template render failed", zap.Error(err))
		return &model.PersonalizedMessage{
			Subject:      "Quick question about " + lead.Name,
			Body:         "Hi,\n\nI'd love to connect about " + lead.Name + ". Do you have 15 minutes this week?\n",
			TemplateUsed: "fallback",
		}
	}
	return msg
}

func (ex *runExec) generateMessage(ctx context.Context, lead *model.Lead) (*model.PersonalizedMessage, error) {
	temp := 0.7
	resp, err := ex.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       ex.cfg.Anthropic.Model,
		MaxTokens:   int64(ex.cfg.Anthropic.MaxTokens),
		System:      personalizeSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: personalizePrompt(lead)},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "personalization")

	subject, body, ok := parseGeneratedMessage(resp.Text())
	if !ok {
		return nil, eris.New("pipeline: malformed personalization response")
	}
	return &model.PersonalizedMessage{
		Subject:      subject,
		Body:         body,
		TemplateUsed: "ai",
	}, nil
}

func personalizePrompt(lead *model.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", lead.Name)
	if lead.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", humanizeCategory(lead.Category))
	}
	if loc := joinNonEmpty(", ", lead.City, lead.State); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if rd := lead.ResearchData; rd != nil {
		fmt.Fprintf(&b, "\nResearch brief:\n%s\n", rd.Overview)
		if rd.IndustryInsights != "" {
			fmt.Fprintf(&b, "Industry: %s\n", rd.IndustryInsights)
		}
		if len(rd.KeyChallenges) > 0 {
			fmt.Fprintf(&b, "Challenges: %s\n", strings.Join(rd.KeyChallenges, "; "))
		}
	}
	return b.String()
}

func parseGeneratedMessage(text string) (subject, body string, ok bool) {
	text = strings.TrimSpace(text)
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "SUBJECT:") {
		return "", "", false
	}
	subject = strings.TrimSpace(strings.TrimPrefix(lines[0], "SUBJECT:"))

	rest := strings.TrimSpace(lines[1])
	rest = strings.TrimPrefix(rest, "BODY:")
	body = strings.TrimSpace(rest)
	if subject == "" || body == "" {
		return "", "", false
	}
	return subject, body, true
}
