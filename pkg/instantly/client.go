// Package instantly wraps the Instantly API used to submit personalized
// leads into outreach campaigns.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen/internal/resilience"
)

const defaultBaseURL = "https://api.instantly.ai/api/v2"

// Client performs Instantly campaign operations.
type Client interface {
	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*Campaign, error)
	AddLead(ctx context.Context, lead Lead) error
	ActivateCampaign(ctx context.Context, campaignID string) error
}

// CreateCampaignRequest is the body for POST /campaigns.
type CreateCampaignRequest struct {
	Name      string   `json:"name"`
	FromEmail string   `json:"from_email,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
	Bodies    []string `json:"bodies,omitempty"`
}

// Campaign is an Instantly campaign.
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Lead is one contact pushed into a campaign.
type Lead struct {
	CampaignID   string            `json:"campaign"`
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name,omitempty"`
	CompanyName  string            `json:"company_name,omitempty"`
	Website      string            `json:"website,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	CustomFields map[string]string `json:"custom_variables,omitempty"`
	Personalized string            `json:"personalization,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Instantly API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*Campaign, error) {
	var campaign Campaign
	if err := c.post(ctx, "/campaigns", req, &campaign); err != nil {
		return nil, eris.Wrap(err, "instantly: create campaign")
	}
	return &campaign, nil
}

func (c *httpClient) AddLead(ctx context.Context, lead Lead) error {
	if err := c.post(ctx, "/leads", lead, nil); err != nil {
		return eris.Wrapf(err, "instantly: add lead %s", lead.Email)
	}
	return nil
}

func (c *httpClient) ActivateCampaign(ctx context.Context, campaignID string) error {
	path := fmt.Sprintf("/campaigns/%s/activate", campaignID)
	if err := c.post(ctx, path, struct{}{}, nil); err != nil {
		return eris.Wrapf(err, "instantly: activate campaign %s", campaignID)
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "unmarshal response")
		}
	}
	return nil
}
