package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/leadgen/internal/model"
)

// enrichStage infers a LinkedIn company profile for each validated lead.
// The inference is heuristic (no LinkedIn API access): a company slug plus a
// confidence score derived from how much corroborating data the lead has.
func (ex *runExec) enrichStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	all, err := ex.store.GetLeadsByCampaign(ctx, campaign.ID, "")
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("load leads for enrichment", err)
	}
	leads := stageCandidates(all, model.LeadStatusValidated)

	summary, err := ex.forEachLead(ctx, model.StageEnrich, leads, 0, func(ctx context.Context, lead *model.Lead) error {
		profile := inferLinkedInProfile(lead)

		status := model.LeadStatusEnriched
		if err := ex.store.UpdateLead(ctx, lead.ID, model.LeadUpdate{
			Status:           &status,
			LinkedInEnriched: true,
			LinkedInProfile:  profile,
		}); err != nil {
			return model.NewStoreError("update lead enrichment", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	result.EnrichedLeads = summary.Succeeded
	return summary, nil
}

var (
	legalSuffixes = regexp.MustCompile(`(?i)[,\s]+(llc|inc|corp|co|ltd|llp|pllc|pc|pa)\.?$`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)
)

// companySlug turns "Acme Dental, LLC" into "acme-dental".
func companySlug(name string) string {
	s := legalSuffixes.ReplaceAllString(strings.TrimSpace(name), "")
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// inferLinkedInProfile builds the profile payload. Confidence starts low and
// grows with each signal that the business is real and findable.
func inferLinkedInProfile(lead *model.Lead) *model.LinkedInProfile {
	confidence := 0.45
	if lead.Website != "" {
		confidence += 0.20
	}
	if lead.Category != "" {
		confidence += 0.15
	}
	if lead.PhoneValid == model.TriValid {
		confidence += 0.10
	}
	if lead.ReviewsCount >= 10 {
		confidence += 0.05
	}

	profile := &model.LinkedInProfile{
		Inferred:    true,
		CompanyName: lead.Name,
		Industry:    humanizeCategory(lead.Category),
		Location:    joinNonEmpty(", ", lead.City, lead.State),
		Confidence:  min(confidence, 0.95),
	}
	if slug := companySlug(lead.Name); slug != "" {
		profile.ProfileURL = "https://www.linkedin.com/company/" + slug
	}
	return profile
}

// humanizeCategory converts a places primary type like "dental_clinic" into
// "Dental Clinic".
func humanizeCategory(category string) string {
	if category == "" {
		return ""
	}
	words := strings.Split(strings.ReplaceAll(category, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
