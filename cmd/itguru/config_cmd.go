package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfigOnly(); err != nil {
				return err
			}
			a.showConfig()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and persist it.

Examples:
  itguru config set default_model google/gemini-2.5-flash-lite
  itguru config set enforce_it_scope true
  itguru config set exa_start_days 30`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfigOnly(); err != nil {
				return err
			}
			if err := a.configMgr.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := a.configMgr.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Println(styleSuccess(fmt.Sprintf("%s = %s", args[0], args[1])))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "apikey <api-key>",
		Short: "Set the OpenRouter API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfigOnly(); err != nil {
				return err
			}
			if err := a.configMgr.Set("openrouter_api_key", args[0]); err != nil {
				return err
			}
			if err := a.configMgr.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Println(styleSuccess("API key saved"))
			return nil
		},
	})

	return cmd
}

func (a *app) showConfig() {
	cfg := a.cfg
	fmt.Println(bold("Completion"))
	fmt.Printf("  base_url:         %s\n", cfg.BaseURL)
	fmt.Printf("  default_model:    %s\n", cfg.DefaultModel)
	fmt.Printf("  api_key:          %s\n", observability.SanitizeAPIKey(cfg.OpenRouterAPIKey))
	fmt.Printf("  max_tokens:       %d\n", cfg.MaxTokens)
	fmt.Printf("  temperature:      %.2f\n", cfg.Temperature)

	fmt.Println(bold("Web search"))
	fmt.Printf("  exa_api_key:      %s\n", observability.SanitizeAPIKey(cfg.ExaAPIKey))
	fmt.Printf("  exa_start_date:   %s\n", cfg.ExaStartDate)
	fmt.Printf("  exa_start_days:   %d\n", cfg.ExaStartDays)

	fmt.Println(bold("Pipeline"))
	fmt.Printf("  max_results:      %d\n", cfg.MaxResults)
	fmt.Printf("  context_timeout:  %ds\n", cfg.ContextTimeoutSeconds)

	fmt.Println(bold("Scope"))
	fmt.Printf("  enforce:          %t\n", cfg.EnforceITScope)
	fmt.Printf("  career_topics:    %t\n", cfg.AllowITCareerTopics)
	fmt.Printf("  llm_check:        %t\n", cfg.ScopeLLMCheck)

	fmt.Println(bold("Rendering"))
	fmt.Printf("  hide_sources:     %t\n", cfg.HideSources)
	fmt.Printf("  hide_intent:      %t\n", cfg.HideIntent)
}
