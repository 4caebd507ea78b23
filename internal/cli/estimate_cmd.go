package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexanderramin/estibot/internal/cli/formatter"
	"github.com/alexanderramin/estibot/internal/importer"
	"github.com/alexanderramin/estibot/internal/report"
	"github.com/alexanderramin/estibot/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newEstimateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "estimate",
		Aliases: []string{"est"},
		Short:   "Browse, export and edit estimates",
	}

	cmd.AddCommand(
		newEstimateListCmd(app),
		newEstimateShowCmd(app),
		newEstimateReportCmd(app),
		newEstimateAnalyzeCmd(app),
		newEstimateEditCmd(app),
		newEstimateDeleteCmd(app),
		newEstimateImportCmd(app),
	)

	return cmd
}

func newEstimateListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your estimates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			estimates, err := app.Estimates.List(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatEstimateList(estimates, app.now()))
			return nil
		},
	}
}

func newEstimateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ESTIMATE",
		Short: "Show an estimate with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			items, err := app.Estimates.ListItems(ctx, est.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatEstimate(est, items))
			return nil
		},
	}
}

// addFormatFlag registers the shared --format flag.
func addFormatFlag(fs *pflag.FlagSet, target *string) {
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	fs.StringVarP(target, "format", "f", string(report.FormatText), "Report format ("+strings.Join(names, ", ")+")")
}

func newEstimateReportCmd(app *App) *cobra.Command {
	var formatName, output string

	cmd := &cobra.Command{
		Use:   "report ESTIMATE",
		Short: "Export an estimate as text, markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			items, err := app.Estimates.ListItems(ctx, est.ID)
			if err != nil {
				return err
			}

			data, err := report.Render(est, items, est.Totals(), format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "auto" {
				output = "estimate-" + est.DisplayID() + format.Extension()
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
			return nil
		},
	}

	addFormatFlag(cmd.Flags(), &formatName)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout (\"auto\" picks a name)")
	return cmd
}

func newEstimateAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze ESTIMATE",
		Short: "Ask the assistant to review an estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			analysis, err := app.Engine.Analyze(ctx, owner, est.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatAnalysis(analysis))
			return nil
		},
	}
}

func newEstimateEditCmd(app *App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit ESTIMATE",
		Short: "Change an estimate's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}

			newTitle, newDesc := est.Title, est.Description
			if cmd.Flags().Changed("title") {
				newTitle = validate.SanitizeText(title)
				if rej := validate.TextLength(newTitle, 3, 200); rej != nil {
					return fmt.Errorf("title: %w", rej)
				}
			}
			if cmd.Flags().Changed("description") {
				newDesc = validate.SanitizeText(description)
				if rej := validate.TextLength(newDesc, 0, 1000); rej != nil {
					return fmt.Errorf("description: %w", rej)
				}
			}

			updated, err := app.Estimates.Update(ctx, est.ID, owner, newTitle, newDesc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated estimate %q\n", updated.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title (3-200 characters)")
	cmd.Flags().StringVar(&description, "description", "", "New description (empty clears it)")
	return cmd
}

func newEstimateDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ESTIMATE",
		Short: "Delete an estimate and all its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			est, err := resolveEstimate(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Delete %q and its %d item(s)? [y/N] ", est.Title, est.ItemCount)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Kept.")
				return nil
			}
			if err := app.Estimates.Delete(ctx, est.ID, owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted estimate %q\n", est.Title)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newEstimateImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create an estimate from a JSON file",
		Long: `Create an estimate from a JSON file of the form

  {"estimate": {"title": "..."},
   "items": [{"name": "...", "hours": 8, "cost": 16000},
             {"name": "...", "template": "Security audit"}]}

Items naming a template take its default hours and cost unless given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			schema, err := importer.LoadImportSchema(args[0])
			if err != nil {
				return err
			}
			owner, err := app.owner(ctx)
			if err != nil {
				return err
			}
			templates, err := app.Templates.List(ctx, owner)
			if err != nil {
				return err
			}

			res, err := importer.Import(ctx, app.Estimates, owner, schema, templates)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %q with %d item(s)\n", res.Estimate.Title, res.Added)
			for _, f := range res.Failed {
				fmt.Fprintf(w, "  %s %s: %v\n", formatter.StyleRed.Render("✖"), f.Name, f.Err)
			}
			fmt.Fprint(w, formatter.FormatTotals(res.Estimate.Totals()))
			return nil
		},
	}
}
