package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvidersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show data provider health and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Data == nil {
				return fmt.Errorf("data sources unavailable")
			}

			statuses := app.Data.Status(cmd.Context())
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(statuses)
			}

			table := NewTable(output, "PROVIDER", "PRIORITY", "CIRCUIT", "OK", "FAIL", "AVG LATENCY", "HEALTHY")
			for _, st := range statuses {
				healthy := output.ColoredString(ColorRed, "no")
				if st.Healthy {
					healthy = output.ColoredString(ColorGreen, "yes")
				}
				table.AddRow(
					st.Name,
					fmt.Sprintf("%d", st.Priority),
					st.CircuitState,
					fmt.Sprintf("%d", st.Successes),
					fmt.Sprintf("%d", st.Failures),
					st.AvgLatency.String(),
					healthy,
				)
			}
			table.Render()

			for _, st := range statuses {
				if st.LastError != "" {
					output.Dim("%s last error: %s", st.Name, st.LastError)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <provider>",
		Short: "Reset a provider's circuit breaker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Data == nil {
				return fmt.Errorf("data sources unavailable")
			}
			if !app.Data.ResetBreaker(args[0]) {
				return fmt.Errorf("unknown provider: %s", args[0])
			}
			NewOutput(cmd).Success("Circuit breaker reset for %s", args[0])
			return nil
		},
	})

	return cmd
}
