package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

// envAliases maps legacy flat environment variable names onto config keys so
// deployments configured for the original app keep working without an
// ITGURU_ prefix.
var envAliases = map[string]string{
	"openrouter_api_key":     "OPENROUTER_API_KEY",
	"exa_api_key":            "EXA_API_KEY",
	"default_model":          "OPENROUTER_MODEL",
	"exa_start_date":         "EXA_START_DATE",
	"exa_start_days":         "EXA_START_DAYS",
	"out_of_scope_message":   "OUT_OF_SCOPE_MESSAGE",
	"enforce_it_scope":       "ENFORCE_IT_SCOPE",
	"allow_it_career_topics": "ALLOW_IT_CAREER_TOPICS",
	"scope_llm_check":        "SCOPE_LLM_CHECK",
}

// Manager handles configuration loading and persistence via viper.
type Manager struct {
	v      *viper.Viper
	config *Config
	logger logging.Logger
}

// NewManager loads configuration from itguru-config.{json,yaml} (searched in
// $HOME then the working directory), layered over defaults and under
// environment overrides. A missing config file is not an error.
func NewManager(logger logging.Logger) (*Manager, error) {
	logger = logging.OrNop(logger)

	v := viper.New()
	v.SetConfigName("itguru-config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("ITGURU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		// BindEnv checks ITGURU_<KEY> first, then the bare legacy name.
		if err := v.BindEnv(key, "ITGURU_"+alias, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	defaults := NewDefaultConfig()
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("default_model", defaults.DefaultModel)
	v.SetDefault("max_tokens", defaults.MaxTokens)
	v.SetDefault("temperature", defaults.Temperature)
	v.SetDefault("exa_start_date", defaults.ExaStartDate)
	v.SetDefault("max_results", defaults.MaxResults)
	v.SetDefault("context_timeout_seconds", defaults.ContextTimeoutSeconds)
	v.SetDefault("enforce_it_scope", defaults.EnforceITScope)
	v.SetDefault("allow_it_career_topics", defaults.AllowITCareerTopics)
	v.SetDefault("scope_llm_check", defaults.ScopeLLMCheck)
	v.SetDefault("out_of_scope_message", defaults.OutOfScopeMessage)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errorsAs(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Debug("No config file found, using defaults and environment")
	} else {
		logger.Info("Loaded configuration from %s", v.ConfigFileUsed())
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{v: v, config: config, logger: logger}, nil
}

// Config returns the loaded configuration.
func (m *Manager) Config() *Config {
	return m.config
}

// Set updates a single key in memory. Call Save to persist it.
func (m *Manager) Set(key string, value any) error {
	m.v.Set(key, value)
	updated := &Config{}
	if err := m.v.Unmarshal(updated); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	m.config = updated
	return nil
}

// Save writes the current configuration to the config file, creating
// $HOME/itguru-config.json if no file was loaded.
func (m *Manager) Save() error {
	if m.v.ConfigFileUsed() != "" {
		return m.v.WriteConfig()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	path := filepath.Join(home, "itguru-config.json")
	return m.v.WriteConfigAs(path)
}

// errorsAs is a tiny indirection so the viper sentinel check reads cleanly.
func errorsAs(err error, target *viper.ConfigFileNotFoundError) bool {
	if err == nil {
		return false
	}
	if notFound, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = notFound
		return true
	}
	return false
}
