package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen/internal/config"
	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/pkg/anthropic"
	"github.com/sells-group/leadgen/pkg/places"
)

var testPlaces = []places.Place{
	{
		ID:                  "place-1",
		DisplayName:         places.DisplayName{Text: "Acme Dental"},
		FormattedAddress:    "123 Main St, Austin, TX 78701, USA",
		NationalPhoneNumber: "(650) 253-0000",
		Rating:              4.6,
		UserRatingCount:     88,
		PrimaryType:         "dental_clinic",
		AddressComponents: []places.AddressComponent{
			{LongText: "Austin", ShortText: "Austin", Types: []string{"locality"}},
			{LongText: "Texas", ShortText: "TX", Types: []string{"administrative_area_level_1"}},
		},
	},
	{
		ID:               "place-2",
		DisplayName:      places.DisplayName{Text: "Bright Smiles"},
		FormattedAddress: "456 Oak Ave, Austin, TX 78702, USA",
		Rating:           4.1,
		UserRatingCount:  31,
		PrimaryType:      "dentist",
	},
}

const researchAnswer = `OVERVIEW: Acme Dental is a family dental practice in Austin.
INDUSTRY: Dental care is a stable local-services market.
CHALLENGES: patient acquisition; online reputation
NEWS: none`

func aiMessage(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Model:   "claude-haiku-4-5-20251001",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestRunHappyPath(t *testing.T) {
	env := newTestEnv(t, nil)

	env.places.On("SearchAll", mock.Anything, "dentists in Austin, TX", 10).
		Return(testPlaces, nil).Once()
	env.perplexity.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(researchAnswer, nil).Times(2)
	env.anthropic.On("CreateMessage", mock.Anything, mock.Anything).
		Return(aiMessage("SUBJECT: Quick question\nBODY:\nHi Acme team, loved the reviews."), nil).Times(2)

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query:    "dentists",
		Location: "Austin, TX",
		MaxLeads: 10,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 100, run.Progress)
	require.NotNil(t, run.Results)
	assert.Equal(t, 2, run.Results.TotalLeads)
	assert.Equal(t, 2, run.Results.ValidatedLeads)
	assert.Equal(t, 2, run.Results.EnrichedLeads)
	assert.Equal(t, 2, run.Results.ResearchedLeads)
	assert.Equal(t, 2, run.Results.PersonalizedLeads)
	assert.Zero(t, run.Results.SubmittedLeads)

	// Submission is disabled by default, so the plan records it as skipped.
	var submit *model.StageSummary
	for i := range run.Results.Stages {
		if run.Results.Stages[i].Stage == model.StageSubmit {
			submit = &run.Results.Stages[i]
		}
	}
	require.NotNil(t, submit)
	assert.Equal(t, model.StageStatusSkipped, submit.Status)

	// Leads landed at personalized with full payloads.
	leads, err := env.store.GetLeadsByCampaign(context.Background(), run.CampaignID, model.LeadStatusPersonalized)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	for _, l := range leads {
		// A completed run leaves no verdict undecided.
		assert.NotEqual(t, model.TriUnknown, l.EmailValid)
		assert.NotEqual(t, model.TriUnknown, l.PhoneValid)
		assert.NotEqual(t, model.TriUnknown, l.CompanyValid)
		assert.True(t, l.LinkedInEnriched)
		assert.True(t, l.ResearchCompleted)
		assert.True(t, l.MessagePersonalized)
		require.NotNil(t, l.PersonalizedMessage)
		assert.Equal(t, "ai", l.PersonalizedMessage.TemplateUsed)
		require.NotNil(t, l.ResearchData)
		assert.Contains(t, l.ResearchData.Overview, "family dental practice")
	}

	// Campaign counters were rolled up.
	campaign, err := env.store.GetCampaign(context.Background(), run.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, campaign.Status)
	assert.Equal(t, 2, campaign.TotalLeads)
	assert.Equal(t, 2, campaign.PersonalizedLeads)
	assert.NotNil(t, campaign.CompletedAt)

	// Stage history was recorded for every stage in the plan.
	stageRuns, err := env.store.GetStageRuns(context.Background(), run.CampaignID)
	require.NoError(t, err)
	assert.Len(t, stageRuns, 6)

	env.places.AssertExpectations(t)
	env.perplexity.AssertExpectations(t)
	env.anthropic.AssertExpectations(t)
}

func TestStartWithoutPlacesClient(t *testing.T) {
	env := newTestEnv(t, nil)
	env.rebuild(testConfig(), false, true, true, true)

	_, err := env.orch.Start(context.Background(), GenerateRequest{Query: "q", Location: "l"})
	assert.True(t, model.IsNotConfigured(err))
}

func TestRunFailsWhenCollectionFails(t *testing.T) {
	env := newTestEnv(t, nil)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.New("quota exhausted")).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "plumbers", Location: "Denver, CO", MaxLeads: 5,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "quota exhausted")

	campaign, err := env.store.GetCampaign(context.Background(), run.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusFailed, campaign.Status)
}

func TestResearchSkippedWithoutClient(t *testing.T) {
	env := newTestEnv(t, nil)
	env.rebuild(testConfig(), true, false, true, false)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()
	env.anthropic.On("CreateMessage", mock.Anything, mock.Anything).
		Return(aiMessage("SUBJECT: Hello\nBODY:\nShort note."), nil).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 5,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)

	var research *model.StageSummary
	for i := range run.Results.Stages {
		if run.Results.Stages[i].Stage == model.StageResearch {
			research = &run.Results.Stages[i]
		}
	}
	require.NotNil(t, research)
	assert.Equal(t, model.StageStatusSkipped, research.Status)
	assert.Equal(t, skipUnavailable, research.SkipNote)

	// Personalization still ran: it does not require research by default.
	assert.Equal(t, 1, run.Results.PersonalizedLeads)
	assert.Zero(t, run.Results.ResearchedLeads)
}

func TestRequestCanDisableResearch(t *testing.T) {
	env := newTestEnv(t, nil)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()
	env.anthropic.On("CreateMessage", mock.Anything, mock.Anything).
		Return(aiMessage("SUBJECT: Hello\nBODY:\nShort note."), nil).Once()

	// The research client is wired in, but this request opts out.
	off := false
	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query:           "dentists",
		Location:        "Austin, TX",
		MaxLeads:        5,
		IncludeResearch: &off,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)

	var research *model.StageSummary
	for i := range run.Results.Stages {
		if run.Results.Stages[i].Stage == model.StageResearch {
			research = &run.Results.Stages[i]
		}
	}
	require.NotNil(t, research)
	assert.Equal(t, model.StageStatusSkipped, research.Status)
	assert.Equal(t, skipByRequest, research.SkipNote)

	leads, err := env.store.GetLeadsByCampaign(context.Background(), run.CampaignID, "")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.False(t, leads[0].ResearchCompleted)

	// Personalization was not opted out and still ran.
	assert.Equal(t, 1, run.Results.PersonalizedLeads)
	env.perplexity.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCanDisablePersonalization(t *testing.T) {
	env := newTestEnv(t, nil)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()
	env.perplexity.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(researchAnswer, nil).Once()

	off := false
	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query:                  "dentists",
		Location:               "Austin, TX",
		MaxLeads:               5,
		IncludePersonalization: &off,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Results.ResearchedLeads)
	assert.Zero(t, run.Results.PersonalizedLeads)

	var personalize *model.StageSummary
	for i := range run.Results.Stages {
		if run.Results.Stages[i].Stage == model.StagePersonalize {
			personalize = &run.Results.Stages[i]
		}
	}
	require.NotNil(t, personalize)
	assert.Equal(t, model.StageStatusSkipped, personalize.Status)
	assert.Equal(t, skipByRequest, personalize.SkipNote)

	env.anthropic.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDisabledStagesAreSkipped(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Pipeline.EnableEnrichment = false
		cfg.Pipeline.EnableResearch = false
		cfg.Pipeline.EnablePersonalize = false
	})

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 5,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)

	leads, err := env.store.GetLeadsByCampaign(context.Background(), run.CampaignID, "")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, model.LeadStatusValidated, leads[0].Status)
	assert.False(t, leads[0].LinkedInEnriched)

	env.perplexity.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
	env.anthropic.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestPerLeadFailureIsolation(t *testing.T) {
	env := newTestEnv(t, nil)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces, nil).Once()
	// Research fails permanently for one lead and succeeds for the other.
	env.perplexity.On("Ask", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Acme Dental")
	})).Return(researchAnswer, nil).Once()
	env.perplexity.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return("", eris.New("content policy rejection")).Once()
	env.anthropic.On("CreateMessage", mock.Anything, mock.Anything).
		Return(aiMessage("SUBJECT: Hi\nBODY:\nHello."), nil).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 10,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status, "one bad lead must not fail the run")
	assert.Equal(t, 1, run.Results.ResearchedLeads)
	assert.Equal(t, 1, run.Results.PersonalizedLeads)

	leads, err := env.store.GetLeadsByCampaign(context.Background(), run.CampaignID, "")
	require.NoError(t, err)
	byPlace := map[string]model.Lead{}
	for _, l := range leads {
		byPlace[l.PlaceID] = l
	}
	assert.Equal(t, model.LeadStatusPersonalized, byPlace["place-1"].Status)
	assert.Equal(t, model.LeadStatusFailed, byPlace["place-2"].Status)
	assert.Contains(t, byPlace["place-2"].StageError, "research")
}

func TestPersonalizeCanBeGatedOnResearch(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Pipeline.PersonalizeRequiresResearch = true
	})
	env.rebuild(env.orch.cfg, true, false, true, false)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 5,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)

	// No research happened, so nothing was eligible for personalization.
	assert.Zero(t, run.Results.PersonalizedLeads)
	env.anthropic.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestTemplateFallbackWithoutAI(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Pipeline.EnableResearch = false
	})
	env.rebuild(env.orch.cfg, true, false, false, false)

	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(testPlaces[:1], nil).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 5,
	})
	require.NoError(t, err)

	run := env.waitForRun(t, runID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)

	leads, err := env.store.GetLeadsByCampaign(context.Background(), run.CampaignID, model.LeadStatusPersonalized)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.NotNil(t, leads[0].PersonalizedMessage)
	assert.NotEqual(t, "ai", leads[0].PersonalizedMessage.TemplateUsed)
	assert.Contains(t, leads[0].PersonalizedMessage.Body, "Acme Dental")
}

func TestCancelledRunRecordsCancelledStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	env.places.On("SearchAll", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			ctx := args.Get(0).(context.Context)
			select {
			case <-ctx.Done():
			case <-release:
			}
		}).
		Return(nil, context.Canceled).Once()

	runID, err := env.orch.Start(context.Background(), GenerateRequest{
		Query: "dentists", Location: "Austin, TX", MaxLeads: 5,
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, env.registry.Delete(runID))
	close(release)

	// The registry entry is gone; the goroutine's late updates go nowhere.
	_, err = env.registry.Get(runID)
	assert.True(t, model.IsNotFound(err))
}
