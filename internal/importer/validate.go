package importer

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/validate"
)

// MaxItems caps how many items one import file may carry.
const MaxItems = 500

// ValidateImportSchema checks the schema against the same limits the
// conversation flows enforce. templates are the owner's active templates;
// item template references are matched by name, case-insensitively.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema, templates []*domain.WorkTemplate) []error {
	var errs []error

	title := validate.SanitizeText(schema.Estimate.Title)
	if rej := validate.TextLength(title, 3, 200); rej != nil {
		errs = append(errs, fmt.Errorf("estimate.title: %s", rej.Message))
	}
	if rej := validate.TextLength(validate.SanitizeText(schema.Estimate.Description), 0, 1000); rej != nil {
		errs = append(errs, fmt.Errorf("estimate.description: %s", rej.Message))
	}

	if len(schema.Items) > MaxItems {
		errs = append(errs, fmt.Errorf("items: %d items exceed the limit of %d", len(schema.Items), MaxItems))
		return errs
	}

	byName := templatesByName(templates)
	for i, it := range schema.Items {
		errs = append(errs, validateItem(fmt.Sprintf("items[%d]", i), it, byName)...)
	}
	return errs
}

func validateItem(prefix string, it ItemImport, byName map[string]*domain.WorkTemplate) []error {
	var errs []error

	if rej := validate.TextLength(validate.SanitizeText(it.Name), 3, 200); rej != nil {
		errs = append(errs, fmt.Errorf("%s.name: %s", prefix, rej.Message))
	}
	if rej := validate.TextLength(validate.SanitizeText(it.Description), 0, 1000); rej != nil {
		errs = append(errs, fmt.Errorf("%s.description: %s", prefix, rej.Message))
	}

	var tpl *domain.WorkTemplate
	if it.Template != "" {
		tpl = byName[strings.ToLower(strings.TrimSpace(it.Template))]
		if tpl == nil {
			errs = append(errs, fmt.Errorf("%s.template: no active template named %q", prefix, it.Template))
		}
	}

	switch {
	case it.Hours != nil:
		if rej := validate.DurationValue(*it.Hours); rej != nil {
			errs = append(errs, fmt.Errorf("%s.hours: %s", prefix, rej.Message))
		}
	case it.Template == "":
		errs = append(errs, fmt.Errorf("%s.hours is required without a template", prefix))
	}
	switch {
	case it.Cost != nil:
		if rej := validate.CostValue(*it.Cost); rej != nil {
			errs = append(errs, fmt.Errorf("%s.cost: %s", prefix, rej.Message))
		}
	case it.Template == "":
		errs = append(errs, fmt.Errorf("%s.cost is required without a template", prefix))
	}

	return errs
}

func templatesByName(templates []*domain.WorkTemplate) map[string]*domain.WorkTemplate {
	out := make(map[string]*domain.WorkTemplate, len(templates))
	for _, t := range templates {
		if t.IsActive {
			out[strings.ToLower(t.Name)] = t
		}
	}
	return out
}
