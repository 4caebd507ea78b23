package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/google/uuid"
)

var testExternalIDCounter atomic.Int64

// NewTestUser returns an unsaved user with a unique external id.
func NewTestUser(name string) *domain.User {
	n := testExternalIDCounter.Add(1)
	return &domain.User{
		ID:          uuid.New().String(),
		ExternalID:  fmt.Sprintf("ext-%d", n),
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}
}

// MustInsertUser stores a fresh user directly and returns it.
func MustInsertUser(t *testing.T, database *sql.DB, name string) *domain.User {
	t.Helper()
	u := NewTestUser(name)
	_, err := database.ExecContext(context.Background(),
		`INSERT INTO users (id, external_id, display_name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.ExternalID, u.DisplayName, u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("inserting test user: %v", err)
	}
	return u
}

// Estimate options
type EstimateOption func(*domain.Estimate)

func WithEstimateDescription(d string) EstimateOption {
	return func(e *domain.Estimate) {
		e.Description = d
	}
}

func WithEstimateUpdatedAt(ts time.Time) EstimateOption {
	return func(e *domain.Estimate) {
		e.UpdatedAt = ts
	}
}

func NewTestEstimate(ownerID, title string, opts ...EstimateOption) *domain.Estimate {
	now := time.Now().UTC()
	e := &domain.Estimate{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Item options
type ItemOption func(*domain.EstimateItem)

func WithAmounts(duration, cost float64) ItemOption {
	return func(it *domain.EstimateItem) {
		it.Duration = duration
		it.Cost = cost
	}
}

func WithOrderIndex(i int) ItemOption {
	return func(it *domain.EstimateItem) {
		it.OrderIndex = i
	}
}

func WithItemTemplate(templateID string) ItemOption {
	return func(it *domain.EstimateItem) {
		it.TemplateID = &templateID
	}
}

func NewTestItem(estimateID, name string, opts ...ItemOption) *domain.EstimateItem {
	now := time.Now().UTC()
	it := &domain.EstimateItem{
		ID:         uuid.New().String(),
		EstimateID: estimateID,
		Name:       name,
		Duration:   1,
		Cost:       1000,
		OrderIndex: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Template options
type TemplateOption func(*domain.WorkTemplate)

func WithCategory(c domain.Category) TemplateOption {
	return func(t *domain.WorkTemplate) {
		t.Category = c
	}
}

func WithDefaults(duration, cost float64) TemplateOption {
	return func(t *domain.WorkTemplate) {
		t.DefaultDuration = duration
		t.DefaultCost = cost
	}
}

func WithUsageCount(n int) TemplateOption {
	return func(t *domain.WorkTemplate) {
		t.UsageCount = n
	}
}

func WithInactive() TemplateOption {
	return func(t *domain.WorkTemplate) {
		t.IsActive = false
	}
}

func NewTestTemplate(ownerID, name string, opts ...TemplateOption) *domain.WorkTemplate {
	now := time.Now().UTC()
	t := &domain.WorkTemplate{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Name:            name,
		DefaultDuration: 4,
		DefaultCost:     8000,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
