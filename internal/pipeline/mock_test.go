package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadgen/pkg/anthropic"
	"github.com/sells-group/leadgen/pkg/instantly"
	"github.com/sells-group/leadgen/pkg/perplexity"
	"github.com/sells-group/leadgen/pkg/places"
)

// --- Places mock ---

type mockPlacesClient struct {
	mock.Mock
}

func (m *mockPlacesClient) TextSearch(ctx context.Context, req places.TextSearchRequest) (*places.TextSearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*places.TextSearchResponse), args.Error(1)
}

func (m *mockPlacesClient) SearchAll(ctx context.Context, query string, maxResults int) ([]places.Place, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]places.Place), args.Error(1)
}

// --- Perplexity mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

func (m *mockPerplexityClient) Ask(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// --- Anthropic mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Instantly mock ---

type mockInstantlyClient struct {
	mock.Mock
}

func (m *mockInstantlyClient) CreateCampaign(ctx context.Context, req instantly.CreateCampaignRequest) (*instantly.Campaign, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instantly.Campaign), args.Error(1)
}

func (m *mockInstantlyClient) AddLead(ctx context.Context, lead instantly.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *mockInstantlyClient) ActivateCampaign(ctx context.Context, campaignID string) error {
	args := m.Called(ctx, campaignID)
	return args.Error(0)
}
