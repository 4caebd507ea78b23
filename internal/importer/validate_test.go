package importer

import (
	"strings"
	"testing"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrFloat(f float64) *float64 { return &f }

func validMinimalSchema() *ImportSchema {
	return &ImportSchema{
		Estimate: EstimateImport{Title: "Landing page"},
		Items: []ItemImport{
			{Name: "Layout", Hours: ptrFloat(8), Cost: ptrFloat(16000)},
		},
	}
}

func auditTemplate() *domain.WorkTemplate {
	return &domain.WorkTemplate{
		ID:              "tpl-1",
		Name:            "Security audit",
		Description:     "OWASP checklist",
		DefaultDuration: 12,
		DefaultCost:     30000,
		IsActive:        true,
	}
}

func TestValidateImportSchema_ValidMinimal(t *testing.T) {
	errs := ValidateImportSchema(validMinimalSchema(), nil)
	assert.Empty(t, errs)
}

func TestValidateImportSchema_TemplateSuppliesAmounts(t *testing.T) {
	schema := validMinimalSchema()
	schema.Items = append(schema.Items, ItemImport{Name: "Audit", Template: "SECURITY AUDIT"})

	errs := ValidateImportSchema(schema, []*domain.WorkTemplate{auditTemplate()})
	assert.Empty(t, errs)
}

func TestValidateImportSchema_CollectsAllErrors(t *testing.T) {
	schema := &ImportSchema{
		Estimate: EstimateImport{Title: "ab"},
		Items: []ItemImport{
			{Name: "OK item", Hours: ptrFloat(0), Cost: ptrFloat(-1)},
			{Name: "x"},
			{Name: "Unknown tpl", Template: "nope"},
		},
	}

	errs := ValidateImportSchema(schema, nil)
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	joined := strings.Join(msgs, "\n")

	assert.Contains(t, joined, "estimate.title")
	assert.Contains(t, joined, "items[0].hours")
	assert.Contains(t, joined, "items[0].cost")
	assert.Contains(t, joined, "items[1].name")
	assert.Contains(t, joined, "items[1].hours is required")
	assert.Contains(t, joined, "items[1].cost is required")
	assert.Contains(t, joined, `items[2].template: no active template named "nope"`)
}

func TestValidateImportSchema_InactiveTemplateIgnored(t *testing.T) {
	tpl := auditTemplate()
	tpl.IsActive = false
	schema := validMinimalSchema()
	schema.Items = []ItemImport{{Name: "Audit", Template: "Security audit"}}

	errs := ValidateImportSchema(schema, []*domain.WorkTemplate{tpl})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no active template")
}

func TestValidateImportSchema_TooManyItems(t *testing.T) {
	schema := validMinimalSchema()
	schema.Items = make([]ItemImport, MaxItems+1)

	errs := ValidateImportSchema(schema, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "exceed the limit")
}

func TestParseImportSchema(t *testing.T) {
	schema, err := ParseImportSchema([]byte(`{
		"estimate": {"title": "Shop", "description": "Mugs"},
		"items": [{"name": "Catalog", "hours": 24, "cost": 60000}, {"name": "Audit", "template": "Security audit"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Shop", schema.Estimate.Title)
	require.Len(t, schema.Items, 2)
	assert.Equal(t, 24.0, *schema.Items[0].Hours)
	assert.Nil(t, schema.Items[1].Hours)

	_, err = ParseImportSchema([]byte(`{"estimate": {"title": "Shop"}, "items": [{"name": "A", "hourz": 1}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hourz")
}
