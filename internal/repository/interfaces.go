package repository

import (
	"context"

	"github.com/alexanderramin/estibot/internal/domain"
)

type UserRepo interface {
	// Upsert inserts u keyed by ExternalID, or returns the existing row.
	// DisplayName is refreshed when a non-empty one is supplied.
	Upsert(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
}

type EstimateRepo interface {
	Create(ctx context.Context, e *domain.Estimate) error
	// GetByID is owner-scoped: another user's estimate reads as not found.
	GetByID(ctx context.Context, id, ownerID string) (*domain.Estimate, error)
	// GetUnscoped reads an estimate regardless of owner. Only for internal
	// lookups where ownership was already established.
	GetUnscoped(ctx context.Context, id string) (*domain.Estimate, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Estimate, error)
	Update(ctx context.Context, e *domain.Estimate) error
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	// RecomputeTotals rewrites the cached totals from a fresh aggregate over
	// the estimate's items and returns them.
	RecomputeTotals(ctx context.Context, id string) (domain.Totals, error)
}

type ItemRepo interface {
	Create(ctx context.Context, it *domain.EstimateItem) error
	GetByID(ctx context.Context, id string) (*domain.EstimateItem, error)
	ListByEstimate(ctx context.Context, estimateID string) ([]*domain.EstimateItem, error)
	Update(ctx context.Context, it *domain.EstimateItem) error
	Delete(ctx context.Context, id string) (bool, error)
	NextOrderIndex(ctx context.Context, estimateID string) (int, error)
	SumByEstimate(ctx context.Context, estimateID string) (domain.Totals, error)
}

type TemplateRepo interface {
	Create(ctx context.Context, t *domain.WorkTemplate) error
	// GetByID is owner-scoped and returns inactive templates too.
	GetByID(ctx context.Context, id, ownerID string) (*domain.WorkTemplate, error)
	ListActive(ctx context.Context, ownerID string) ([]*domain.WorkTemplate, error)
	IncrementUsage(ctx context.Context, id string) (bool, error)
	Deactivate(ctx context.Context, id, ownerID string) error
}
