package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCampaign(t *testing.T, s Store) *model.Campaign {
	t.Helper()
	c, err := s.CreateCampaign(context.Background(), model.Campaign{
		Name:     "dentists-austin",
		Query:    "dentists",
		Location: "Austin, TX",
		MaxLeads: 25,
	})
	require.NoError(t, err)
	return c
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

// storeTestSuite runs the behavior contract shared by all Store backends.
func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("campaign lifecycle", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)

		assert.NotEmpty(t, c.ID)
		assert.Equal(t, model.CampaignStatusCreated, c.Status)

		got, err := s.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "dentists-austin", got.Name)
		assert.Equal(t, 25, got.MaxLeads)

		status := model.CampaignStatusRunning
		total := 12
		require.NoError(t, s.UpdateCampaign(ctx, c.ID, model.CampaignUpdate{
			Status:     &status,
			TotalLeads: &total,
		}))

		got, err = s.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignStatusRunning, got.Status)
		assert.Equal(t, 12, got.TotalLeads)
		assert.Nil(t, got.CompletedAt)

		done := model.CampaignStatusCompleted
		now := time.Now().UTC()
		require.NoError(t, s.UpdateCampaign(ctx, c.ID, model.CampaignUpdate{
			Status:      &done,
			CompletedAt: &now,
		}))
		got, err = s.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("campaign not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetCampaign(ctx, "missing")
		assert.True(t, model.IsNotFound(err))

		status := model.CampaignStatusFailed
		err = s.UpdateCampaign(ctx, "missing", model.CampaignUpdate{Status: &status})
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("list campaigns most recent first", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			_, err := s.CreateCampaign(ctx, model.Campaign{
				Name: "c", Query: "q", Location: "l", MaxLeads: 10,
			})
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
		}

		campaigns, err := s.ListCampaigns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, campaigns, 2)
		assert.True(t, !campaigns[0].CreatedAt.Before(campaigns[1].CreatedAt))
	})

	t.Run("insert leads is idempotent per place", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)

		leads := []model.Lead{
			{PlaceID: "place-1", Name: "Acme Dental", Phone: "+1 512 555 0101"},
			{PlaceID: "place-2", Name: "Bright Smiles", Website: "https://brightsmiles.example"},
		}
		n, err := s.InsertLeads(ctx, c.ID, leads)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Re-collecting merges fields without duplicating rows.
		leads[0].Email = "front@acmedental.example"
		_, err = s.InsertLeads(ctx, c.ID, leads)
		require.NoError(t, err)

		got, err := s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		byPlace := map[string]model.Lead{}
		for _, l := range got {
			byPlace[l.PlaceID] = l
		}
		assert.Equal(t, "front@acmedental.example", byPlace["place-1"].Email)
		assert.Equal(t, model.LeadStatusCollected, byPlace["place-1"].Status)
		assert.Equal(t, model.TriUnknown, byPlace["place-1"].EmailValid)
	})

	t.Run("recollection preserves pipeline state", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)

		_, err := s.InsertLeads(ctx, c.ID, []model.Lead{{PlaceID: "p1", Name: "Acme"}})
		require.NoError(t, err)
		got, err := s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		leadID := got[0].ID

		validated := model.LeadStatusValidated
		valid := model.TriValid
		require.NoError(t, s.UpdateLead(ctx, leadID, model.LeadUpdate{
			Status:     &validated,
			EmailValid: &valid,
		}))

		_, err = s.InsertLeads(ctx, c.ID, []model.Lead{{PlaceID: "p1", Name: "Acme Updated"}})
		require.NoError(t, err)

		got, err = s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Acme Updated", got[0].Name)
		assert.Equal(t, model.LeadStatusValidated, got[0].Status)
		assert.Equal(t, model.TriValid, got[0].EmailValid)
	})

	t.Run("lead status never regresses", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)
		_, err := s.InsertLeads(ctx, c.ID, []model.Lead{{PlaceID: "p1", Name: "Acme"}})
		require.NoError(t, err)
		got, err := s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		leadID := got[0].ID

		researched := model.LeadStatusResearched
		require.NoError(t, s.UpdateLead(ctx, leadID, model.LeadUpdate{Status: &researched}))

		// A regressive status write is dropped but the rest of the update lands.
		validated := model.LeadStatusValidated
		valid := model.TriValid
		require.NoError(t, s.UpdateLead(ctx, leadID, model.LeadUpdate{
			Status:     &validated,
			PhoneValid: &valid,
		}))

		got, err = s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.LeadStatusResearched, got[0].Status)
		assert.Equal(t, model.TriValid, got[0].PhoneValid)

		// Failed is reachable from anywhere.
		failed := model.LeadStatusFailed
		require.NoError(t, s.UpdateLead(ctx, leadID, model.LeadUpdate{Status: &failed}))
		got, err = s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.LeadStatusFailed, got[0].Status)
	})

	t.Run("lead payloads round-trip", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)
		_, err := s.InsertLeads(ctx, c.ID, []model.Lead{{PlaceID: "p1", Name: "Acme"}})
		require.NoError(t, err)
		got, err := s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		leadID := got[0].ID

		enriched := model.LeadStatusEnriched
		require.NoError(t, s.UpdateLead(ctx, leadID, model.LeadUpdate{
			Status:           &enriched,
			LinkedInEnriched: true,
			LinkedInProfile: &model.LinkedInProfile{
				Inferred:    true,
				CompanyName: "Acme",
				Industry:    "Dental Care",
				Location:    "Austin, TX",
				Confidence:  0.7,
			},
		}))

		got, err = s.GetLeadsByCampaign(ctx, c.ID, model.LeadStatusEnriched)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].LinkedInEnriched)
		require.NotNil(t, got[0].LinkedInProfile)
		assert.Equal(t, "Dental Care", got[0].LinkedInProfile.Industry)
		assert.InDelta(t, 0.7, got[0].LinkedInProfile.Confidence, 1e-9)
		assert.Nil(t, got[0].ResearchData)
	})

	t.Run("update missing lead", func(t *testing.T) {
		s := newStore(t)
		failed := model.LeadStatusFailed
		err := s.UpdateLead(ctx, "missing", model.LeadUpdate{Status: &failed})
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("stage runs and stats", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)
		_, err := s.InsertLeads(ctx, c.ID, []model.Lead{
			{PlaceID: "p1", Name: "Acme"},
			{PlaceID: "p2", Name: "Beta"},
		})
		require.NoError(t, err)

		got, err := s.GetLeadsByCampaign(ctx, c.ID, "")
		require.NoError(t, err)
		validated := model.LeadStatusValidated
		valid := model.TriValid
		require.NoError(t, s.UpdateLead(ctx, got[0].ID, model.LeadUpdate{
			Status:     &validated,
			EmailValid: &valid,
		}))

		require.NoError(t, s.RecordStageRun(ctx, model.StageRun{
			CampaignID: c.ID,
			Stage:      model.StageValidate,
			Status:     model.StageStatusCompleted,
			Processed:  2,
			Succeeded:  1,
			Failed:     1,
			Duration:   0.42,
		}))

		stats, err := s.GetCampaignStats(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.LeadsByStatus["validated"])
		assert.Equal(t, 1, stats.LeadsByStatus["collected"])
		assert.Equal(t, 1, stats.ValidEmails)
		assert.Equal(t, 0, stats.ValidPhones)
		require.Len(t, stats.StageRuns, 1)
		assert.Equal(t, model.StageValidate, stats.StageRuns[0].Stage)
		assert.Equal(t, 1, stats.StageRuns[0].Failed)
		assert.NotNil(t, stats.StageRuns[0].CompletedAt)
	})

	t.Run("delete campaigns before cutoff", func(t *testing.T) {
		s := newStore(t)
		c := seedCampaign(t, s)
		_, err := s.InsertLeads(ctx, c.ID, []model.Lead{{PlaceID: "p1", Name: "Acme"}})
		require.NoError(t, err)

		// A cutoff in the past removes nothing.
		n, err := s.DeleteCampaignsBefore(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = s.DeleteCampaignsBefore(ctx, time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.GetCampaign(ctx, c.ID)
		assert.True(t, model.IsNotFound(err))
	})
}
