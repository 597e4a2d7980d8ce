// Package places wraps the Google Places API (New) text search used to
// collect business leads.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen/internal/resilience"
)

const (
	defaultBaseURL  = "https://places.googleapis.com/v1"
	defaultPageSize = 20 // API maximum per page
)

// fieldMask lists every place field the collector consumes. Billing is per
// field, so keep this in sync with what actually gets stored.
const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.addressComponents,places.nationalPhoneNumber,places.websiteUri," +
	"places.rating,places.userRatingCount,places.location,places.primaryType," +
	"nextPageToken"

// Client performs Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
	SearchAll(ctx context.Context, query string, maxResults int) ([]Place, error)
}

// TextSearchRequest is the body for POST /places:searchText.
type TextSearchRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// TextSearchResponse is one page of search results.
type TextSearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Place is a business returned by the API.
type Place struct {
	ID                  string             `json:"id"`
	DisplayName         DisplayName        `json:"displayName"`
	FormattedAddress    string             `json:"formattedAddress"`
	AddressComponents   []AddressComponent `json:"addressComponents,omitempty"`
	NationalPhoneNumber string             `json:"nationalPhoneNumber,omitempty"`
	WebsiteURI          string             `json:"websiteUri,omitempty"`
	Rating              float64            `json:"rating,omitempty"`
	UserRatingCount     int                `json:"userRatingCount,omitempty"`
	Location            LatLng             `json:"location"`
	PrimaryType         string             `json:"primaryType,omitempty"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// AddressComponent is one structured piece of the address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// LatLng is a geographic coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Component returns the first address component matching the given type,
// short form when short is true.
func (p Place) Component(typ string, short bool) string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				if short {
					return c.ShortText
				}
				return c.LongText
			}
		}
	}
	return ""
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

// WithRateLimit caps outbound request rate in calls per second.
func WithRateLimit(callsPerSec float64) Option {
	return func(c *httpClient) {
		if callsPerSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(callsPerSec), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "places: rate limit wait")
		}
	}

	if req.PageSize <= 0 || req.PageSize > defaultPageSize {
		req.PageSize = defaultPageSize
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}
	return &result, nil
}

// SearchAll pages through text search results until maxResults places are
// collected or the API runs out of pages.
func (c *httpClient) SearchAll(ctx context.Context, query string, maxResults int) ([]Place, error) {
	if maxResults <= 0 {
		maxResults = defaultPageSize
	}

	var all []Place
	pageToken := ""
	for len(all) < maxResults {
		resp, err := c.TextSearch(ctx, TextSearchRequest{
			TextQuery: query,
			PageToken: pageToken,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Places...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all, nil
}
