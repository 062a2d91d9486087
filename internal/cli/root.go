// Package cli provides the command-line interface for the assistant.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sunnmoony/aistock-assistant-sun/internal/agents"
	"github.com/sunnmoony/aistock-assistant-sun/internal/backtest"
	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/datasource"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/notify"
	"github.com/sunnmoony/aistock-assistant-sun/internal/pipeline"
	"github.com/sunnmoony/aistock-assistant-sun/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2025-08-01"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.DataStore
	Data       *datasource.Manager
	Dispatcher *notify.Dispatcher
	Runner     *pipeline.Runner
}

// NewRootCmd creates the root command and wires the application.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if st, err := store.NewSQLiteStore(cfg.Storage.DBPath); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = st
		logger.Debug().Msg("SQLite store initialized")
	}

	if data, err := datasource.NewManagerFromConfig(cfg, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize data sources")
	} else {
		app.Data = data
	}

	llm := agents.NewOpenAIClient(cfg.Agents)
	if llm == nil {
		logger.Debug().Msg("No LLM key configured, agents run rule-based")
	}

	var llmClient agents.LLMClient
	if llm != nil {
		llmClient = llm
	}
	coordinator := agents.NewCoordinator(
		agents.DefaultAgents(llmClient, logger),
		func(role models.AgentRole) float64 { return cfg.AgentWeight(string(role)) },
		cfg.Run.AgentTimeout,
		logger,
	)

	if channels, err := notify.BuildChannels(cfg.Notification); err != nil {
		logger.Warn().Err(err).Msg("Failed to build notification channels")
	} else if dispatcher, err := notify.NewDispatcher(channels, app.Store, cfg.Notification, logger); err != nil {
		logger.Warn().Err(err).Msg("Notification disabled")
	} else {
		app.Dispatcher = dispatcher
	}

	var evaluator *backtest.Evaluator
	if app.Store != nil && app.Data != nil {
		evaluator = backtest.NewEvaluator(app.Store, app.Data, cfg.Backtest, logger)
	}

	if app.Store != nil && app.Data != nil {
		app.Runner = pipeline.NewRunner(cfg, app.Store, app.Data, coordinator, app.Dispatcher, evaluator, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "assistant",
		Short: "AI stock assistant - multi-agent A-share analysis with reliable delivery",
		Long: `AI Stock Assistant analyzes a watchlist of A-share equities through four
independent AI perspectives, scores past recommendations against realized
prices, and delivers reports to WeChat, Feishu, Telegram, or email.

Use 'assistant help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/aistock-assistant/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newNotifyCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newProvidersCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("AI Stock Assistant v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Data Sources")
	for _, p := range cfg.DataSources {
		output.Printf("  %-10s enabled=%v priority=%d retries=%d\n", p.Name, p.Enabled, p.Priority, p.MaxRetries)
	}
	output.Println()

	output.Bold("Agents")
	output.Printf("  Model:    %s\n", cfg.Agents.Model)
	output.Printf("  Endpoint: %s\n", cfg.Agents.BaseURL)
	output.Printf("  Timeout:  %s\n", cfg.Agents.Timeout)
	if cfg.Agents.APIKey != "" {
		output.Printf("  API key:  %s\n", logging.MaskSecret(cfg.Agents.APIKey))
	}
	output.Println()

	output.Bold("Backtest")
	output.Printf("  Window:  %d days  Min age: %d days  Limit: %d\n",
		cfg.Backtest.EvalWindowDays, cfg.Backtest.MinAgeDays, cfg.Backtest.Limit)
	output.Println()

	output.Bold("Notification")
	output.Printf("  Mode: %s  Retries: %d\n", cfg.Notification.Mode, cfg.Notification.MaxRetries)
	for _, name := range cfg.EnabledChannels() {
		output.Printf("  channel: %s\n", name)
	}
}
