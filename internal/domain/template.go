package domain

import "time"

// WorkTemplate is a reusable default used to instantiate estimate items.
// Templates are soft-deleted: IsActive=false hides them from listings while
// items created from them keep their TemplateID reference.
type WorkTemplate struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	Category        Category
	DefaultDuration float64
	DefaultCost     float64
	UsageCount      int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CategoryLabel returns the category for display, or a placeholder.
func (t *WorkTemplate) CategoryLabel() string {
	return CoalesceStr(string(t.Category), "Uncategorized")
}

// ToNewItem builds an item from the template defaults.
func (t *WorkTemplate) ToNewItem() NewItem {
	id := t.ID
	return NewItem{
		Name:        t.Name,
		Description: t.Description,
		Duration:    t.DefaultDuration,
		Cost:        t.DefaultCost,
		TemplateID:  &id,
	}
}

// NewTemplate carries the validated fields of a template about to be created.
type NewTemplate struct {
	Name            string
	Description     string
	Category        Category
	DefaultDuration float64
	DefaultCost     float64
}
