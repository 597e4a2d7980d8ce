package config

// Status reports which external capabilities are configured and what the
// system is ready to do with them.
type Status struct {
	GooglePlacesAPI bool     `json:"google_places_api"`
	PerplexityAPI   bool     `json:"perplexity_api"`
	AnthropicAPI    bool     `json:"anthropic_api"`
	InstantlyAPI    bool     `json:"instantly_api"`
	Database        bool     `json:"database"`
	MissingConfigs  []string `json:"missing_configs"`

	ReadyForScraping  bool `json:"ready_for_scraping"`
	ReadyForPipeline  bool `json:"ready_for_pipeline"`
	ReadyForCampaigns bool `json:"ready_for_campaigns"`
}

// CheckStatus computes capability readiness from the loaded configuration.
// The database flag reflects whether a store backend is configured, which is
// always true for the sqlite default.
func (c *Config) CheckStatus() Status {
	s := Status{
		GooglePlacesAPI: c.Places.Key != "",
		PerplexityAPI:   c.Perplexity.Key != "",
		AnthropicAPI:    c.Anthropic.Key != "",
		InstantlyAPI:    c.Instantly.Key != "",
		Database:        c.Store.Driver == "sqlite" || c.Store.DatabaseURL != "",
		MissingConfigs:  []string{},
	}

	if !s.GooglePlacesAPI {
		s.MissingConfigs = append(s.MissingConfigs, "LEADGEN_PLACES_KEY")
	}
	if c.Pipeline.EnableResearch && !s.PerplexityAPI {
		s.MissingConfigs = append(s.MissingConfigs, "LEADGEN_PERPLEXITY_KEY")
	}
	if c.Pipeline.EnablePersonalize && !s.AnthropicAPI {
		s.MissingConfigs = append(s.MissingConfigs, "LEADGEN_ANTHROPIC_KEY")
	}
	if c.Pipeline.EnableSubmission {
		if !s.InstantlyAPI {
			s.MissingConfigs = append(s.MissingConfigs, "LEADGEN_INSTANTLY_KEY")
		}
		if c.Instantly.FromEmail == "" {
			s.MissingConfigs = append(s.MissingConfigs, "LEADGEN_INSTANTLY_FROM_EMAIL")
		}
	}

	s.ReadyForScraping = s.GooglePlacesAPI && s.Database
	s.ReadyForPipeline = s.ReadyForScraping && s.PerplexityAPI && s.AnthropicAPI
	s.ReadyForCampaigns = s.ReadyForPipeline && s.InstantlyAPI && c.Instantly.FromEmail != ""

	return s
}
