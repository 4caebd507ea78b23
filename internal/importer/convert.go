package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/validate"
)

// Convert turns a validated ImportSchema into items ready for AddItems.
// Call ValidateImportSchema first; Convert assumes the schema is valid.
// Explicit hours and cost win over the referenced template's defaults.
func Convert(schema *ImportSchema, templates []*domain.WorkTemplate) ([]domain.NewItem, error) {
	byName := templatesByName(templates)

	items := make([]domain.NewItem, 0, len(schema.Items))
	for i, it := range schema.Items {
		var (
			tpl               *domain.WorkTemplate
			defHours, defCost *float64
		)
		if it.Template != "" {
			tpl = byName[strings.ToLower(strings.TrimSpace(it.Template))]
			if tpl == nil {
				return nil, fmt.Errorf("items[%d]: template %q not found", i, it.Template)
			}
			defHours, defCost = &tpl.DefaultDuration, &tpl.DefaultCost
		}

		item := domain.NewItem{
			Name:        validate.SanitizeText(it.Name),
			Description: validate.SanitizeText(it.Description),
			Duration:    domain.Float64FromPtrWithDefault(0, it.Hours, defHours),
			Cost:        domain.Float64FromPtrWithDefault(0, it.Cost, defCost),
		}
		if tpl != nil {
			item.Description = domain.CoalesceStr(item.Description, tpl.Description)
			item.TemplateID = domain.StrPtrOrNil(tpl.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

// Target is the slice of the estimate service an import writes through.
type Target interface {
	Create(ctx context.Context, ownerID, title, description string) (*domain.Estimate, error)
	AddItems(ctx context.Context, estimateID string, items []domain.NewItem) (*domain.BatchResult, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Estimate, error)
}

// Result reports what an import stored.
type Result struct {
	Estimate *domain.Estimate
	Added    int
	Failed   []domain.ItemFailure
}

// Import validates schema, creates the estimate and adds its items. A schema
// with validation errors writes nothing and returns them joined.
func Import(ctx context.Context, target Target, ownerID string, schema *ImportSchema, templates []*domain.WorkTemplate) (*Result, error) {
	if errs := ValidateImportSchema(schema, templates); len(errs) > 0 {
		return nil, fmt.Errorf("invalid import file:\n%w", errors.Join(errs...))
	}
	items, err := Convert(schema, templates)
	if err != nil {
		return nil, err
	}

	est, err := target.Create(ctx, ownerID,
		validate.SanitizeText(schema.Estimate.Title),
		validate.SanitizeText(schema.Estimate.Description))
	if err != nil {
		return nil, fmt.Errorf("creating estimate: %w", err)
	}

	res := &Result{Estimate: est}
	if len(items) > 0 {
		batch, err := target.AddItems(ctx, est.ID, items)
		if batch != nil {
			res.Added, res.Failed = len(batch.Added), batch.Failed
		}
		if err != nil {
			return res, fmt.Errorf("adding items: %w", err)
		}
	}

	if fresh, err := target.Get(ctx, est.ID, ownerID); err == nil {
		res.Estimate = fresh
	}
	return res, nil
}
