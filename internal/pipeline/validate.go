package pipeline

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/leadgen/internal/model"
)

var fieldValidator = validator.New()

// disposableDomains are throwaway email providers that never convert.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"throwaway.email":   true,
}

// validateStage checks each collected lead's contact channels and records a
// tri-state verdict per channel. Leads with no usable channel at all are
// failed; everything else advances to validated.
func (ex *runExec) validateStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	leads, err := ex.store.GetLeadsByCampaign(ctx, campaign.ID, model.LeadStatusCollected)
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("load collected leads", err)
	}

	checker := &contactChecker{
		http:   &http.Client{Timeout: 5 * time.Second},
		region: strings.ToUpper(ex.cfg.Places.Region),
	}

	summary, err := ex.forEachLead(ctx, model.StageValidate, leads, ex.cfg.Pipeline.ValidationDelay, func(ctx context.Context, lead *model.Lead) error {
		verdict := checker.check(ctx, lead)

		update := model.LeadUpdate{
			EmailValid:   &verdict.email,
			PhoneValid:   &verdict.phone,
			CompanyValid: &verdict.company,
		}
		status := model.LeadStatusValidated
		if !verdict.usable() {
			status = model.LeadStatusFailed
			note := "validation: no usable contact channel"
			update.StageError = &note
		}
		update.Status = &status

		if err := ex.store.UpdateLead(ctx, lead.ID, update); err != nil {
			return model.NewStoreError("update lead validation", err)
		}
		if status == model.LeadStatusValidated {
			lead.Status = model.LeadStatusValidated
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	// Succeeded counts leads that actually advanced, not just processed.
	validated := 0
	for _, l := range leads {
		if l.Status == model.LeadStatusValidated {
			validated++
		}
	}
	summary.Succeeded = validated
	summary.Failed = summary.Processed - validated
	result.ValidatedLeads = validated
	return summary, nil
}

type verdict struct {
	email   model.TriState
	phone   model.TriState
	company model.TriState
}

// usable reports whether any outreach channel survived validation.
func (v verdict) usable() bool {
	return v.email.Bool() || v.phone.Bool() || v.company.Bool()
}

type contactChecker struct {
	http   *http.Client
	region string
}

func (c *contactChecker) check(ctx context.Context, lead *model.Lead) verdict {
	return verdict{
		email:   c.checkEmail(lead.Email),
		phone:   c.checkPhone(lead.Phone),
		company: c.checkCompany(ctx, lead),
	}
}

// checkEmail is format validation plus a disposable-domain denylist. A lead
// with no email on record has no usable email channel, so the verdict is
// invalid, not unknown.
func (c *contactChecker) checkEmail(email string) model.TriState {
	if email == "" {
		return model.TriInvalid
	}
	if err := fieldValidator.Var(email, "email"); err != nil {
		return model.TriInvalid
	}
	at := strings.LastIndex(email, "@")
	if disposableDomains[strings.ToLower(email[at+1:])] {
		return model.TriInvalid
	}
	return model.TriValid
}

// checkPhone parses against the configured region and requires a number
// that is possible and valid there.
func (c *contactChecker) checkPhone(phone string) model.TriState {
	if phone == "" {
		return model.TriInvalid
	}
	region := c.region
	if region == "" {
		region = "US"
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return model.TriInvalid
	}
	return model.TriValid
}

// checkCompany verifies the business has a name and, when a website is on
// record, that the site answers. A dead website invalidates the company; a
// missing one leaves the verdict on the name alone.
func (c *contactChecker) checkCompany(ctx context.Context, lead *model.Lead) model.TriState {
	if strings.TrimSpace(lead.Name) == "" {
		return model.TriInvalid
	}
	if lead.Website == "" {
		return model.TriValid
	}
	if _, err := url.ParseRequestURI(lead.Website); err != nil {
		return model.TriInvalid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, lead.Website, nil)
	if err != nil {
		return model.TriInvalid
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// Unreachable now is not proof the business is gone.
		return model.TriUnknown
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return model.TriValid
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusForbidden {
		// Some sites reject HEAD or bot traffic outright.
		return model.TriValid
	}
	return model.TriInvalid
}
