package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/scheduler"
	"github.com/sunnmoony/aistock-assistant-sun/pkg/utils"
)

func newRunCmd(app *App) *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "run [symbols...]",
		Short: "Analyze symbols and dispatch recommendations",
		Long: `Run the full pipeline for the given symbols, or for the stored watchlist
when none are given. With --daemon the run and backtest cycles repeat on
their configured cron schedules until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Runner == nil {
				return fmt.Errorf("pipeline unavailable: store or data sources failed to initialize")
			}
			if daemon {
				return runDaemon(app)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := app.Runner.Run(ctx, args)
			if err != nil {
				return err
			}
			return printSummary(NewOutput(cmd), summary)
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false, "keep running on the configured schedules")
	return cmd
}

// runDaemon registers the analysis and backtest jobs and blocks until a
// shutdown signal arrives.
func runDaemon(app *App) error {
	sched := scheduler.New(app.Logger)

	err := sched.Add(app.Config.Run.Schedule, "analysis", func(ctx context.Context) {
		if _, err := app.Runner.Run(ctx, nil); err != nil {
			app.Logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("bad run schedule: %w", err)
	}

	if app.Config.Backtest.Enabled {
		err = sched.Add(app.Config.Run.BacktestSchedule, "backtest", func(ctx context.Context) {
			if _, err := app.Runner.Backtest(ctx); err != nil {
				app.Logger.Error().Err(err).Msg("Scheduled backtest failed")
			}
		})
		if err != nil {
			return fmt.Errorf("bad backtest schedule: %w", err)
		}
	}

	sched.Start()
	defer sched.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	app.Logger.Info().Msg("Shutting down")
	return nil
}

func printSummary(output *Output, summary *models.RunSummary) error {
	if output.IsJSON() {
		return output.JSON(summary)
	}

	output.Bold("Run finished in %s", summary.FinishedAt.Sub(summary.StartedAt).Round(10*time.Millisecond))
	output.Printf("Symbols: %d requested, %d succeeded, %d failed\n",
		summary.SymbolsRequested, summary.SymbolsSucceeded, summary.SymbolsFailed)
	if summary.MessagesSent+summary.MessagesFailed > 0 {
		output.Printf("Messages: %d sent, %d failed\n", summary.MessagesSent, summary.MessagesFailed)
	}
	output.Println()

	if len(summary.Recommendations) > 0 {
		table := NewTable(output, "SYMBOL", "DIRECTION", "CONFIDENCE", "PRICE", "TARGET", "STOP", "SOURCE")
		for _, rec := range summary.Recommendations {
			table.AddRow(
				rec.Symbol,
				output.Stance(string(rec.Direction)),
				utils.FormatConfidence(rec.Confidence),
				fmt.Sprintf("%.2f", rec.Price),
				levelOrDash(rec.Target),
				levelOrDash(rec.StopLoss),
				rec.Source,
			)
		}
		table.Render()
	}

	for symbol, msg := range summary.Errors {
		output.Warning("%s: %s", symbol, msg)
	}
	return nil
}

func levelOrDash(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
