package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/resilience"
	"github.com/sells-group/leadgen/pkg/places"
)

// collectStage pulls businesses from the places directory and upserts them
// as collected leads. A collection failure is fatal: nothing downstream can
// run without leads.
func (ex *runExec) collectStage(ctx context.Context, campaign *model.Campaign, result *model.RunResult) (model.StageSummary, error) {
	query := campaign.Query
	if campaign.Location != "" {
		query = fmt.Sprintf("%s in %s", campaign.Query, campaign.Location)
	}

	retryCfg := resilience.ForAttempts(ex.cfg.Pipeline.MaxAttempts, ex.cfg.Pipeline.PlacesDelay)
	retryCfg.OnRetry = resilience.RetryLogger("places", "search")

	breaker := ex.breakers.Get("places")
	found, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]places.Place, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]places.Place, error) {
			return ex.places.SearchAll(ctx, query, campaign.MaxLeads)
		})
	})
	if err != nil {
		return model.StageSummary{}, eris.Wrap(err, "pipeline: collect leads")
	}
	if len(found) == 0 {
		return model.StageSummary{}, eris.Errorf("pipeline: no results for %q", query)
	}

	leads := make([]model.Lead, 0, len(found))
	for _, p := range found {
		leads = append(leads, placeToLead(p))
	}

	n, err := ex.store.InsertLeads(ctx, campaign.ID, leads)
	if err != nil {
		return model.StageSummary{}, model.NewStoreError("insert leads", err)
	}

	zap.L().Info("pipeline: leads collected",
		zap.String("campaign_id", campaign.ID),
		zap.String("query", query),
		zap.Int("count", n),
	)

	result.TotalLeads = n
	ex.updateRun(ex.runID, model.RunUpdate{TotalLeads: &n})

	return model.StageSummary{Processed: n, Succeeded: n}, nil
}

// placeToLead maps a directory place onto a lead row, preferring structured
// address components over the formatted string.
func placeToLead(p places.Place) model.Lead {
	return model.Lead{
		PlaceID:      p.ID,
		Name:         p.DisplayName.Text,
		Address:      p.FormattedAddress,
		City:         p.Component("locality", false),
		State:        p.Component("administrative_area_level_1", true),
		PostalCode:   p.Component("postal_code", false),
		Country:      p.Component("country", true),
		Phone:        p.NationalPhoneNumber,
		Website:      p.WebsiteURI,
		Category:     p.PrimaryType,
		Rating:       p.Rating,
		ReviewsCount: p.UserRatingCount,
		Latitude:     p.Location.Latitude,
		Longitude:    p.Location.Longitude,
		Status:       model.LeadStatusCollected,
	}
}
