package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/resilience"
)

const researchSystemPrompt = `You are a B2B sales researcher. Given a local business,
write a concise research brief. Respond in exactly this format:

OVERVIEW: <2-3 sentences about the company>
INDUSTRY: <1-2 sentences of industry context>
CHALLENGES: <semicolon-separated list of likely business challenges>
NEWS: <semicolon-separated list of notable recent developments, or "none">`

// researchStage asks the research provider for a brief on each lead that
// survived validation. Research runs even when enrichment was skipped.
func (ex *runExec) researchStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	all, err := ex.store.GetLeadsByCampaign(ctx, campaign.ID, "")
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("load leads for research", err)
	}
	leads := stageCandidates(all, model.LeadStatusValidated)

	breaker := ex.breakers.Get("perplexity")

	summary, err := ex.forEachLead(ctx, model.StageResearch, leads, ex.cfg.Pipeline.ResearchDelay, func(ctx context.Context, lead *model.Lead) error {
		answer, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (string, error) {
			return ex.perplexity.Ask(ctx, researchSystemPrompt, researchPrompt(lead))
		})
		if err != nil {
			return err
		}

		data := parseResearchAnswer(answer)
		status := model.LeadStatusResearched
		if err := ex.store.UpdateLead(ctx, lead.ID, model.LeadUpdate{
			Status:            &status,
			ResearchCompleted: true,
			ResearchData:      data,
		}); err != nil {
			return model.NewStoreError("update lead research", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	result.ResearchedLeads = summary.Succeeded
	return summary, nil
}

func researchPrompt(lead *model.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", lead.Name)
	if lead.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", humanizeCategory(lead.Category))
	}
	if loc := joinNonEmpty(", ", lead.City, lead.State); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if lead.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", lead.Website)
	}
	if lead.Rating > 0 {
		fmt.Fprintf(&b, "Rating: %.1f (%d reviews)\n", lead.Rating, lead.ReviewsCount)
	}
	return b.String()
}

// parseResearchAnswer extracts the labeled sections from the model's answer.
// A malformed answer degrades to the raw text as the overview rather than
// failing the lead.
func parseResearchAnswer(answer string) *model.ResearchData {
	data := &model.ResearchData{
		Confidence:   0.8,
		ResearchedAt: time.Now().UTC(),
	}

	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "OVERVIEW:"):
			data.Overview = strings.TrimSpace(strings.TrimPrefix(line, "OVERVIEW:"))
		case strings.HasPrefix(line, "INDUSTRY:"):
			data.IndustryInsights = strings.TrimSpace(strings.TrimPrefix(line, "INDUSTRY:"))
		case strings.HasPrefix(line, "CHALLENGES:"):
			data.KeyChallenges = splitList(strings.TrimPrefix(line, "CHALLENGES:"))
		case strings.HasPrefix(line, "NEWS:"):
			news := strings.TrimSpace(strings.TrimPrefix(line, "NEWS:"))
			if !strings.EqualFold(news, "none") {
				data.RecentNews = splitList(news)
			}
		}
	}

	if data.Overview == "" {
		data.Overview = strings.TrimSpace(answer)
		data.Confidence = 0.5
	}
	return data
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
