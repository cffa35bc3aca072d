package config

import (
	"fmt"
	"strings"
)

// Config holds the full application configuration.
//
// Values are resolved in order: defaults, config file (itguru-config.json or
// .yaml), then ITGURU_* environment variables and the explicit aliases bound
// in Manager.
type Config struct {
	// Completion endpoint (OpenAI-compatible, OpenRouter by default).
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" json:"openrouter_api_key" yaml:"openrouter_api_key"`
	BaseURL          string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	DefaultModel     string `mapstructure:"default_model" json:"default_model" yaml:"default_model"`
	MaxTokens        int    `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`

	// Web search endpoint.
	ExaAPIKey    string `mapstructure:"exa_api_key" json:"exa_api_key" yaml:"exa_api_key"`
	ExaStartDate string `mapstructure:"exa_start_date" json:"exa_start_date" yaml:"exa_start_date"`
	ExaStartDays int    `mapstructure:"exa_start_days" json:"exa_start_days" yaml:"exa_start_days"`

	// Context aggregation.
	MaxResults            int `mapstructure:"max_results" json:"max_results" yaml:"max_results"`
	ContextTimeoutSeconds int `mapstructure:"context_timeout_seconds" json:"context_timeout_seconds" yaml:"context_timeout_seconds"`

	// Scope policy.
	EnforceITScope      bool   `mapstructure:"enforce_it_scope" json:"enforce_it_scope" yaml:"enforce_it_scope"`
	AllowITCareerTopics bool   `mapstructure:"allow_it_career_topics" json:"allow_it_career_topics" yaml:"allow_it_career_topics"`
	ScopeLLMCheck       bool   `mapstructure:"scope_llm_check" json:"scope_llm_check" yaml:"scope_llm_check"`
	ScopeLLMModel       string `mapstructure:"scope_llm_model" json:"scope_llm_model" yaml:"scope_llm_model"`
	OutOfScopeMessage   string `mapstructure:"out_of_scope_message" json:"out_of_scope_message" yaml:"out_of_scope_message"`

	// Rendering toggles. Artifacts are always recorded; these only hide them.
	HideSources bool `mapstructure:"hide_sources" json:"hide_sources" yaml:"hide_sources"`
	HideIntent  bool `mapstructure:"hide_intent" json:"hide_intent" yaml:"hide_intent"`

	// Sources markdown URL allow-list. Empty means permit all.
	URLAllowlist []string `mapstructure:"url_allowlist" json:"url_allowlist,omitempty" yaml:"url_allowlist,omitempty"`

	// Optional scope/domain policy override file (YAML).
	PolicyFile string `mapstructure:"policy_file" json:"policy_file,omitempty" yaml:"policy_file,omitempty"`
}

// NewDefaultConfig returns the configuration used when no file or environment
// overrides are present.
func NewDefaultConfig() *Config {
	return &Config{
		BaseURL:               "https://openrouter.ai/api/v1",
		DefaultModel:          "meta-llama/llama-3.1-8b-instruct:free",
		MaxTokens:             4000,
		Temperature:           0.7,
		ExaStartDate:          "2024-01-01",
		MaxResults:            3,
		ContextTimeoutSeconds: 8,
		EnforceITScope:        true,
		AllowITCareerTopics:   true,
		ScopeLLMCheck:         false,
		OutOfScopeMessage:     DefaultOutOfScopeMessage,
	}
}

// DefaultOutOfScopeMessage is yielded as the sole answer fragment when the
// scope guard refuses a query and no override is configured.
const DefaultOutOfScopeMessage = "Sorry, I'm focused on IT infrastructure, cybersecurity, cloud, DevOps, and IT careers. Please rephrase your question within this scope."

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.ContextTimeoutSeconds <= 0 {
		return fmt.Errorf("context_timeout_seconds must be positive, got %d", c.ContextTimeoutSeconds)
	}
	if c.ExaStartDays < 0 {
		return fmt.Errorf("exa_start_days must not be negative, got %d", c.ExaStartDays)
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	return nil
}

// ScopeLLMModelOrDefault returns the model to use for the ambiguous-scope
// check, falling back to the default completion model.
func (c *Config) ScopeLLMModelOrDefault() string {
	if strings.TrimSpace(c.ScopeLLMModel) != "" {
		return c.ScopeLLMModel
	}
	return c.DefaultModel
}
