package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the stored watchlist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol> [name]",
		Short: "Add a symbol to the watchlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			if err := app.Store.AddWatch(cmd.Context(), args[0], name); err != nil {
				return err
			}
			NewOutput(cmd).Success("Added %s to watchlist", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol>",
		Short: "Remove a symbol from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			if err := app.Store.RemoveWatch(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewOutput(cmd).Success("Removed %s from watchlist", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			items, err := app.Store.ListWatchlist(cmd.Context())
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(items)
			}
			if len(items) == 0 {
				output.Info("Watchlist is empty")
				return nil
			}
			table := NewTable(output, "SYMBOL", "NAME", "ADDED")
			for _, item := range items {
				table.AddRow(item.Symbol, item.Name, item.AddedAt.Format("2006-01-02"))
			}
			table.Render()
			return nil
		},
	})

	return cmd
}
