package instantly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen/internal/resilience"
)

func TestCreateCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body CreateCampaignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dentists-austin", body.Name)
		assert.Equal(t, "sales@example.com", body.FromEmail)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Campaign{ID: "cam-1", Name: body.Name, Status: "draft"})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	campaign, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{
		Name:      "dentists-austin",
		FromEmail: "sales@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cam-1", campaign.ID)
}

func TestAddLead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads", r.URL.Path)

		var body Lead
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cam-1", body.CampaignID)
		assert.Equal(t, "front@acme.example", body.Email)

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	err := client.AddLead(context.Background(), Lead{
		CampaignID:  "cam-1",
		Email:       "front@acme.example",
		CompanyName: "Acme Dental",
	})
	require.NoError(t, err)
}

func TestActivateCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/cam-1/activate", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, client.ActivateCampaign(context.Background(), "cam-1"))
}

func TestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	err := client.AddLead(context.Background(), Lead{Email: "x@example.com"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "invalid email"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	err := client.AddLead(context.Background(), Lead{Email: "not-an-email"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
