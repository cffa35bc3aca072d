package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/catalog"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/config"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/intent"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/orchestrator"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/router"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/security"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

const version = "1.0.0"

// app holds the wired pipeline shared by the subcommands.
type app struct {
	configMgr    *config.Manager
	cfg          *config.Config
	logger       logging.Logger
	metrics      *observability.MetricsCollector
	tracer       *observability.TracerProvider
	factory      *llm.Factory
	clientConfig llm.Config
	orchestrator *orchestrator.Orchestrator
	catalog      *catalog.Service

	verbose   bool
	debug     bool
	modelFlag string
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "itguru",
		Short: "🛡️ IT assistant grounded in live documentation",
		Long: fmt.Sprintf(`%s

%s answers IT infrastructure, cybersecurity, cloud, and DevOps questions,
grounding every answer in Microsoft Learn, AWS documentation, or live web
search before asking the model.

%s
  itguru ask "how do I rotate IAM access keys"
  itguru chat                      # Interactive REPL
  itguru serve                     # HTTP API
  itguru models                    # Pick a model
  itguru config show`,
			bold("IT Guru "+version),
			bold("IT Guru"),
			bold("EXAMPLES:")),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q, try 'itguru ask' or 'itguru chat'", args[0])
			}
			if !isTTY() {
				return cmd.Help()
			}
			if err := a.initialize(); err != nil {
				return err
			}
			return a.runChat()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Debug mode")
	rootCmd.PersistentFlags().StringVarP(&a.modelFlag, "model", "m", "", "Override the configured model")

	rootCmd.AddCommand(newAskCommand(a))
	rootCmd.AddCommand(newChatCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newModelsCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// initializeConfigOnly loads configuration without wiring the pipeline, for
// commands that only read or edit settings.
func (a *app) initializeConfigOnly() error {
	if a.configMgr != nil {
		return nil
	}
	a.logger = logging.NewComponentLogger("cli")
	manager, err := config.NewManager(a.logger)
	if err != nil {
		return err
	}
	a.configMgr = manager
	a.cfg = manager.Config()
	if a.modelFlag != "" {
		a.cfg.DefaultModel = a.modelFlag
	}
	return nil
}

// initialize wires the full answer pipeline from configuration.
func (a *app) initialize() error {
	if a.orchestrator != nil {
		return nil
	}
	if err := a.initializeConfigOnly(); err != nil {
		return err
	}
	cfg := a.cfg

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	obsConfig, err := observability.LoadConfig("")
	if err != nil {
		return fmt.Errorf("load observability config: %w", err)
	}
	if a.debug {
		obsConfig.Logging.Level = "debug"
	}
	// The scrape server is started by `serve`, not here.
	obsConfig.Metrics.PrometheusPort = 0
	metrics, err := observability.NewMetricsCollector(obsConfig.Metrics)
	if err != nil {
		a.logger.Warn("metrics disabled: %v", err)
	}
	a.metrics = metrics

	tracer, err := observability.NewTracerProvider(obsConfig.Tracing)
	if err != nil {
		a.logger.Warn("tracing disabled: %v", err)
	}
	a.tracer = tracer

	a.factory = llm.NewFactory()
	a.clientConfig = llm.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.BaseURL,
	}

	// Helper clients (classification, query enhancement, scope check) share
	// the default model. Missing API key degrades them to keyword fallbacks.
	var helperClient llm.Client
	if cfg.OpenRouterAPIKey != "" {
		helperClient, err = a.factory.GetClient(cfg.DefaultModel, a.clientConfig)
		if err != nil {
			return fmt.Errorf("create completion client: %w", err)
		}
	}

	guardOpts := security.GuardOptions{
		Policy:            policy.Scope,
		Enforce:           cfg.EnforceITScope,
		AllowCareerTopics: cfg.AllowITCareerTopics,
		LLMCheck:          cfg.ScopeLLMCheck,
		Logger:            a.logger,
	}
	if cfg.ScopeLLMCheck && cfg.OpenRouterAPIKey != "" {
		scopeClient, err := a.factory.GetClient(cfg.ScopeLLMModelOrDefault(), a.clientConfig)
		if err != nil {
			return fmt.Errorf("create scope-check client: %w", err)
		}
		guardOpts.Checker = intent.NewLLMScopeChecker(scopeClient)
	}
	guard := security.NewGuard(guardOpts)

	classifier := intent.NewClassifier(guard, helperClient, a.logger)

	exaOpts := []sources.ExaOption{
		sources.WithExaRecency(cfg.ExaStartDate, cfg.ExaStartDays),
		sources.WithExaMetrics(metrics),
	}
	if helperClient != nil {
		exaOpts = append(exaOpts, sources.WithExaEnhancer(helperClient))
	}

	dispatch := map[intent.Route]sources.Source{
		intent.RouteMicrosoftDocs: sources.NewMicrosoftLearnSource(a.logger, sources.WithMicrosoftMetrics(metrics)),
		intent.RouteAWSDocs:       sources.NewAWSDocsSource(a.logger, sources.WithAWSMetrics(metrics)),
		intent.RouteWebSearch:     sources.NewExaSource(cfg.ExaAPIKey, policy.Domain, a.logger, exaOpts...),
	}

	contextRouter := router.New(router.Options{
		Classifier:        classifier,
		Dispatch:          dispatch,
		MaxResults:        cfg.MaxResults,
		OutOfScopeMessage: cfg.OutOfScopeMessage,
		Logger:            a.logger,
		Metrics:           metrics,
	})

	a.orchestrator = orchestrator.New(orchestrator.Options{
		Router:         contextRouter,
		Clients:        a.factory,
		ClientConfig:   a.clientConfig,
		DefaultModel:   cfg.DefaultModel,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		URLAllowlist:   cfg.URLAllowlist,
		ContextTimeout: time.Duration(cfg.ContextTimeoutSeconds) * time.Second,
		Logger:         a.logger,
		Metrics:        metrics,
	})

	a.catalog = catalog.NewService(a.logger)
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("itguru %s\n", version)
		},
	}
}
