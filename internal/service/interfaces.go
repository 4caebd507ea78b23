package service

import (
	"context"

	"github.com/alexanderramin/estibot/internal/domain"
)

type UserService interface {
	// EnsureUser returns the user for externalID, creating it on first contact.
	EnsureUser(ctx context.Context, externalID, displayName string) (*domain.User, error)
}

// EstimateService owns estimates and their items. Every item mutation and the
// recomputation of the parent's totals commit in one transaction.
type EstimateService interface {
	Create(ctx context.Context, ownerID, title, description string) (*domain.Estimate, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Estimate, error)
	List(ctx context.Context, ownerID string) ([]*domain.Estimate, error)
	Update(ctx context.Context, id, ownerID, title, description string) (*domain.Estimate, error)
	Delete(ctx context.Context, id, ownerID string) error

	AddItem(ctx context.Context, estimateID string, item domain.NewItem) (*domain.EstimateItem, error)
	AddItems(ctx context.Context, estimateID string, items []domain.NewItem) (*domain.BatchResult, error)
	ListItems(ctx context.Context, estimateID string) ([]*domain.EstimateItem, error)
	UpdateItem(ctx context.Context, itemID string, item domain.NewItem) (*domain.EstimateItem, error)
	MoveItem(ctx context.Context, itemID string, position int) error
	DeleteItem(ctx context.Context, itemID string) error
	Totals(ctx context.Context, estimateID string) (domain.Totals, error)
}

type TemplateService interface {
	Create(ctx context.Context, ownerID string, t domain.NewTemplate) (*domain.WorkTemplate, error)
	Get(ctx context.Context, id, ownerID string) (*domain.WorkTemplate, error)
	List(ctx context.Context, ownerID string) ([]*domain.WorkTemplate, error)
	// IncrementUsage adds exactly one per call. Callers invoke it once per
	// successful instantiation.
	IncrementUsage(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id, ownerID string) error
}
