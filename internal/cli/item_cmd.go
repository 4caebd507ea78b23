package cli

import (
	"fmt"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/validate"
	"github.com/spf13/cobra"
)

func newItemCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Edit, reorder or remove estimate items",
	}

	cmd.AddCommand(
		newItemEditCmd(app),
		newItemMoveCmd(app),
		newItemDeleteCmd(app),
	)

	return cmd
}

func newItemEditCmd(app *App) *cobra.Command {
	var name, description, hours, cost string

	cmd := &cobra.Command{
		Use:   "edit ESTIMATE ITEM",
		Short: "Change an item's fields",
		Args:  cobra.ExactArgs(2),
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
			item, err := resolveItem(ctx, app, est.ID, args[1])
			if err != nil {
				return err
			}

			next := domain.NewItem{
				Name:        item.Name,
				Description: item.Description,
				Duration:    item.Duration,
				Cost:        item.Cost,
				TemplateID:  item.TemplateID,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				next.Name = validate.SanitizeText(name)
				if rej := validate.TextLength(next.Name, 3, 200); rej != nil {
					return fmt.Errorf("name: %w", rej)
				}
			}
			if flags.Changed("description") {
				next.Description = validate.SanitizeText(description)
				if rej := validate.TextLength(next.Description, 0, 1000); rej != nil {
					return fmt.Errorf("description: %w", rej)
				}
			}
			if flags.Changed("hours") {
				v, rej := validate.Duration(hours)
				if rej != nil {
					return fmt.Errorf("hours: %w", rej)
				}
				next.Duration = v
			}
			if flags.Changed("cost") {
				v, rej := validate.Cost(cost)
				if rej != nil {
					return fmt.Errorf("cost: %w", rej)
				}
				next.Cost = v
			}

			updated, err := app.Estimates.UpdateItem(ctx, item.ID, next)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated item %q\n", updated.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name (3-200 characters)")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&hours, "hours", "", "New duration in hours")
	cmd.Flags().StringVar(&cost, "cost", "", "New cost")
	return cmd
}

func newItemMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move ESTIMATE ITEM POSITION",
		Short: "Move an item to a new 1-based position",
		Args:  cobra.ExactArgs(3),
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
			item, err := resolveItem(ctx, app, est.ID, args[1])
			if err != nil {
				return err
			}
			var pos int
			if _, err := fmt.Sscanf(args[2], "%d", &pos); err != nil || pos < 1 {
				return fmt.Errorf("position must be a positive number, got %q", args[2])
			}
			if err := app.Estimates.MoveItem(ctx, item.ID, pos); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to position %d\n", item.Name, pos)
			return nil
		},
	}
}

func newItemDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ESTIMATE ITEM",
		Short: "Remove an item from an estimate",
		Args:  cobra.ExactArgs(2),
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
			item, err := resolveItem(ctx, app, est.ID, args[1])
			if err != nil {
				return err
			}
			if err := app.Estimates.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", item.Name)
			return nil
		},
	}
}
