package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/estibot/internal/cli/formatter"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/spf13/cobra"
)

// topTemplates is how many of the most used templates stats lists.
const topTemplates = 3

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals across your estimates and templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			st, err := userStats(ctx, app, owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStats(st))
			return nil
		},
	}
}

func userStats(ctx context.Context, app *App, owner string) (domain.UserStats, error) {
	estimates, err := app.Estimates.List(ctx, owner)
	if err != nil {
		return domain.UserStats{}, err
	}
	templates, err := app.Templates.List(ctx, owner)
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.ComputeUserStats(estimates, templates, topTemplates), nil
}
