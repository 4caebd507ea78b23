package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
)

// resolveEstimate finds one of the owner's estimates by list position
// (1-based, as printed by "estimate list"), full ID or unique ID prefix.
func resolveEstimate(ctx context.Context, app *App, ownerID, input string) (*domain.Estimate, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("estimate is required")
	}

	estimates, err := app.Estimates.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(estimates) {
			return nil, fmt.Errorf("no estimate #%d (you have %d)", n, len(estimates))
		}
		return estimates[n-1], nil
	}

	var matches []*domain.Estimate
	for _, e := range estimates {
		if e.ID == input {
			return e, nil
		}
		if strings.HasPrefix(e.ID, input) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("estimate not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("estimate ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveTemplate finds one of the owner's active templates by full ID,
// unique ID prefix or exact name (case-insensitive).
func resolveTemplate(ctx context.Context, app *App, ownerID, input string) (*domain.WorkTemplate, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("template is required")
	}

	templates, err := app.Templates.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var matches []*domain.WorkTemplate
	for _, t := range templates {
		if t.ID == input || strings.EqualFold(t.Name, input) {
			return t, nil
		}
		if strings.HasPrefix(t.ID, input) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("template not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("template ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveItem returns the item at 1-based position pos within the estimate.
func resolveItem(ctx context.Context, app *App, estimateID, pos string) (*domain.EstimateItem, error) {
	n, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil {
		return nil, fmt.Errorf("item number expected, got %q", pos)
	}
	items, err := app.Estimates.ListItems(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(items) {
		return nil, fmt.Errorf("no item #%d (estimate has %d)", n, len(items))
	}
	return items[n-1], nil
}
