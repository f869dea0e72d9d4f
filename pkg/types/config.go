// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by every source client.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "landscape-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of extra attempts after an HTTP 429.
	// Zero means a single attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SourceConfig holds the settings for one external data source.
type SourceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// BaseURL overrides the public API endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxResults caps the number of records fetched per run.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// PageSize is the per-request page size, clamped to the source maximum.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// APIKey is optional for every source; it raises rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RateLimit is the maximum request rate per second (0 = unlimited).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// TrialsConfig adds the active-status filter to the trials source.
type TrialsConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`

	// ActiveOnly keeps only recruiting, active, or enrolling studies.
	ActiveOnly bool `json:"active_only" yaml:"active_only" mapstructure:"active_only"`
}

// LiteratureConfig adds publication-year filtering to the literature source.
type LiteratureConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`

	// SinceYear restricts results to articles published in or after this
	// year (0 = no restriction).
	SinceYear int `json:"since_year" yaml:"since_year" mapstructure:"since_year"`
}

// RegulatoryConfig selects which openFDA datasets are queried.
type RegulatoryConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoints lists the datasets to query: label, event, enforcement.
	Endpoints []string `json:"endpoints" yaml:"endpoints" mapstructure:"endpoints"`
}

// SourcesConfig groups the configuration of all three sources.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Trials     TrialsConfig     `json:"trials" yaml:"trials" mapstructure:"trials"`
	Literature LiteratureConfig `json:"literature" yaml:"literature" mapstructure:"literature"`
	Regulatory RegulatoryConfig `json:"regulatory" yaml:"regulatory" mapstructure:"regulatory"`
}

// AIConfig holds settings for stages that call a generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API. When empty the
	// pipeline uses only the local fallback generators.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds the summary response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig holds settings for the pipeline runner.
type PipelineConfig struct {
	// AnalysisCap is the maximum number of records sent to per-record
	// analysis in one run (default 10).
	AnalysisCap int `json:"analysis_cap" yaml:"analysis_cap" mapstructure:"analysis_cap"`
}

// OutputConfig holds settings for the file result sink.
type OutputConfig struct {
	// Dir is the directory artifacts are written to (default "output").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// HTML also renders the Markdown summary to HTML.
	HTML bool `json:"html" yaml:"html" mapstructure:"html"`

	// ArchivePath is the SQLite database run archive. Empty disables it.
	ArchivePath string `json:"archive_path" yaml:"archive_path" mapstructure:"archive_path"`
}

// ProgressBackend selects where run progress is stored.
type ProgressBackend string

const (
	ProgressMemory ProgressBackend = "memory"
	ProgressRedis  ProgressBackend = "redis"
)

// ServerConfig holds settings for the HTTP front end.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Retention is how long finished run state stays pollable (default 1h).
	Retention time.Duration `json:"retention" yaml:"retention" mapstructure:"retention"`

	ProgressBackend ProgressBackend `json:"progress_backend" yaml:"progress_backend" mapstructure:"progress_backend"`
	RedisAddr       string          `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword   string          `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB         int             `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// Config is the full application configuration.
type Config struct {
	Sources  SourcesConfig  `json:"sources" yaml:"sources" mapstructure:"sources"`
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Output   OutputConfig   `json:"output" yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "landscape-engine/0.1",
			},
			Trials: TrialsConfig{
				SourceConfig: SourceConfig{
					Enabled:    true,
					BaseURL:    "https://clinicaltrials.gov/api/v2",
					MaxResults: 100,
					PageSize:   100,
				},
				ActiveOnly: true,
			},
			Literature: LiteratureConfig{
				SourceConfig: SourceConfig{
					Enabled:    true,
					BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
					MaxResults: 50,
					PageSize:   50,
					RateLimit:  3,
				},
				SinceYear: 2020,
			},
			Regulatory: RegulatoryConfig{
				SourceConfig: SourceConfig{
					Enabled:    true,
					BaseURL:    "https://api.fda.gov",
					MaxResults: 100,
					PageSize:   100,
				},
				Endpoints: []string{"label", "event", "enforcement"},
			},
		},
		AI: AIConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4000,
		},
		Pipeline: PipelineConfig{AnalysisCap: 10},
		Output:   OutputConfig{Dir: "output"},
		Server: ServerConfig{
			Addr:            ":8080",
			Retention:       time.Hour,
			ProgressBackend: ProgressMemory,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate returns a configuration error for settings that would make a
// run impossible.
func (c Config) Validate() error {
	enabled := 0
	for _, s := range []struct {
		name string
		cfg  SourceConfig
	}{
		{"trials", c.Sources.Trials.SourceConfig},
		{"literature", c.Sources.Literature.SourceConfig},
		{"regulatory", c.Sources.Regulatory.SourceConfig},
	} {
		if !s.cfg.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(s.cfg.BaseURL) == "" {
			return ConfigError("sources.%s.base_url is required", s.name)
		}
		if s.cfg.MaxResults <= 0 {
			return ConfigError("sources.%s.max_results must be positive, got %d", s.name, s.cfg.MaxResults)
		}
	}
	if enabled == 0 {
		return ConfigError("no sources enabled")
	}
	if c.Sources.Timeout <= 0 {
		return ConfigError("sources.timeout must be positive")
	}
	for _, ep := range c.Sources.Regulatory.Endpoints {
		switch ep {
		case "label", "event", "enforcement":
		default:
			return ConfigError("sources.regulatory.endpoints: unknown endpoint %q", ep)
		}
	}
	if c.Pipeline.AnalysisCap < 1 {
		return ConfigError("pipeline.analysis_cap must be at least 1, got %d", c.Pipeline.AnalysisCap)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return ConfigError("output.dir is required")
	}
	switch c.Server.ProgressBackend {
	case ProgressMemory:
	case ProgressRedis:
		if c.Server.RedisAddr == "" {
			return ConfigError("server.redis_addr is required for the redis progress backend")
		}
	default:
		return ConfigError("server.progress_backend: unknown backend %q", c.Server.ProgressBackend)
	}
	return nil
}
