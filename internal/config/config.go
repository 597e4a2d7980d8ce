package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Instantly  InstantlyConfig  `yaml:"instantly" mapstructure:"instantly"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Language    string  `yaml:"language" mapstructure:"language"`
	Region      string  `yaml:"region" mapstructure:"region"`
	CallsPerSec float64 `yaml:"calls_per_sec" mapstructure:"calls_per_sec"`
}

// PerplexityConfig holds Perplexity API settings for the research stage.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for message personalization.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// InstantlyConfig holds campaign platform settings.
type InstantlyConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
}

// PipelineConfig configures stage execution behavior.
type PipelineConfig struct {
	StageConcurrency  int           `yaml:"stage_concurrency" mapstructure:"stage_concurrency"`
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	CallTimeout       time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	StageBudget       time.Duration `yaml:"stage_budget" mapstructure:"stage_budget"`
	EnableEnrichment  bool          `yaml:"enable_enrichment" mapstructure:"enable_enrichment"`
	EnableResearch    bool          `yaml:"enable_research" mapstructure:"enable_research"`
	EnablePersonalize bool          `yaml:"enable_personalization" mapstructure:"enable_personalization"`
	EnableSubmission  bool          `yaml:"enable_submission" mapstructure:"enable_submission"`

	// PersonalizeRequiresResearch gates personalization on a completed
	// research payload instead of validation alone.
	PersonalizeRequiresResearch bool `yaml:"personalize_requires_research" mapstructure:"personalize_requires_research"`

	// TemplatesPath points at a YAML template pool for message fallbacks.
	// Empty means the built-in pool.
	TemplatesPath string `yaml:"templates_path" mapstructure:"templates_path"`

	// Per-capability minimum inter-call delays (rate-limit floors).
	PlacesDelay      time.Duration `yaml:"places_delay" mapstructure:"places_delay"`
	ValidationDelay  time.Duration `yaml:"validation_delay" mapstructure:"validation_delay"`
	ResearchDelay    time.Duration `yaml:"research_delay" mapstructure:"research_delay"`
	PersonalizeDelay time.Duration `yaml:"personalize_delay" mapstructure:"personalize_delay"`
}

// ExportConfig configures lead export output.
type ExportConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	Format    string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "leads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.language", "en")
	v.SetDefault("places.region", "us")
	v.SetDefault("places.calls_per_sec", 10)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("instantly.base_url", "https://api.instantly.ai/api/v2")
	v.SetDefault("pipeline.stage_concurrency", 10)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.call_timeout", 30*time.Second)
	v.SetDefault("pipeline.stage_budget", 10*time.Minute)
	v.SetDefault("pipeline.enable_enrichment", true)
	v.SetDefault("pipeline.enable_research", true)
	v.SetDefault("pipeline.enable_personalization", true)
	v.SetDefault("pipeline.enable_submission", false)
	v.SetDefault("pipeline.personalize_requires_research", false)
	v.SetDefault("pipeline.places_delay", 100*time.Millisecond)
	v.SetDefault("pipeline.validation_delay", 100*time.Millisecond)
	v.SetDefault("pipeline.research_delay", time.Second)
	v.SetDefault("pipeline.personalize_delay", time.Second)
	v.SetDefault("export.directory", "data")
	v.SetDefault("export.format", "csv")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
