package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <recommendation-id>...",
		Short: "Re-send stored recommendations to the configured channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Runner == nil {
				return fmt.Errorf("notify unavailable: store or data sources failed to initialize")
			}
			output := NewOutput(cmd)

			summary, err := app.Runner.Notify(cmd.Context(), args)
			if summary != nil {
				for id, msg := range summary.Errors {
					output.Warning("%s: %s", id, msg)
				}
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}
			output.Success("Sent %d message(s), %d failed", summary.MessagesSent, summary.MessagesFailed)
			return nil
		},
	}
}
