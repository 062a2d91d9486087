package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBacktestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Score matured recommendations against realized prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Runner == nil {
				return fmt.Errorf("backtest unavailable: store or data sources failed to initialize")
			}

			result, err := app.Runner.Backtest(cmd.Context())
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(result)
			}

			if result.Scored+result.Deferred+result.Failed == 0 {
				output.Info("No recommendations ready for evaluation")
				return nil
			}
			output.Success("Scored %d recommendation(s)", result.Scored)
			if result.Deferred > 0 {
				output.Dim("Deferred %d (not yet matured)", result.Deferred)
			}
			if result.Failed > 0 {
				output.Warning("Failed %d", result.Failed)
			}
			return nil
		},
	}
}
