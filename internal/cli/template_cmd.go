package cli

import (
	"fmt"

	"github.com/alexanderramin/estibot/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl"},
		Short:   "Browse and apply work templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(app),
		newTemplateShowCmd(app),
		newTemplateUseCmd(app),
		newTemplateDeleteCmd(app),
	)

	return cmd
}

func newTemplateListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active templates by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			templates, err := app.Templates.List(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTemplateList(templates))
			return nil
		},
	}
}

func newTemplateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show TEMPLATE",
		Short: "Show template details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			t, err := resolveTemplate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTemplate(t))
			return nil
		},
	}
}

func newTemplateUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use TEMPLATE ESTIMATE",
		Short: "Add an item built from a template to an estimate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			t, err := resolveTemplate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[1])
			if err != nil {
				return err
			}
			item, err := app.Engine.InstantiateFromTemplate(ctx, owner, est.ID, t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %q (%s, %s)\n",
				item.Name, est.Title, formatter.Hours(item.Duration), formatter.Money(item.Cost))
			return nil
		},
	}
}

func newTemplateDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TEMPLATE",
		Short: "Hide a template; items created from it are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			t, err := resolveTemplate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			if err := app.Templates.SoftDelete(ctx, t.ID, owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %q\n", t.Name)
			return nil
		},
	}
}
