package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/google/uuid"
)

type estimateService struct {
	estimates repository.EstimateRepo
	items     repository.ItemRepo
	uow       db.UnitOfWork
	observer  UseCaseObserver
}

// NewEstimateService builds the estimate service. Reads go through the given
// repositories; every write opens its own transaction on uow.
func NewEstimateService(
	estimates repository.EstimateRepo,
	items repository.ItemRepo,
	uow db.UnitOfWork,
	observers ...UseCaseObserver,
) EstimateService {
	return &estimateService{
		estimates: estimates,
		items:     items,
		uow:       uow,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *estimateService) Create(ctx context.Context, ownerID, title, description string) (est *domain.Estimate, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "create-estimate", startedAt, map[string]any{"owner_id": ownerID}, err)
	}()

	if err := checkName("title", title); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	est = &domain.Estimate{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteEstimateRepo(tx).Create(ctx, est)
	})
	if err != nil {
		return nil, domain.AsStorageError("create estimate", err)
	}
	return est, nil
}

func (s *estimateService) Get(ctx context.Context, id, ownerID string) (*domain.Estimate, error) {
	est, err := s.estimates.GetByID(ctx, id, ownerID)
	return est, domain.AsStorageError("get estimate", err)
}

func (s *estimateService) List(ctx context.Context, ownerID string) ([]*domain.Estimate, error) {
	list, err := s.estimates.ListByOwner(ctx, ownerID)
	return list, domain.AsStorageError("list estimates", err)
}

func (s *estimateService) Update(ctx context.Context, id, ownerID, title, description string) (est *domain.Estimate, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "update-estimate", startedAt, map[string]any{"estimate_id": id}, err)
	}()

	if err := checkName("title", title); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txEstimates := repository.NewSQLiteEstimateRepo(tx)
		current, err := txEstimates.GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		current.Title = strings.TrimSpace(title)
		current.Description = strings.TrimSpace(description)
		current.UpdatedAt = time.Now().UTC()
		if err := txEstimates.Update(ctx, current); err != nil {
			return err
		}
		est = current
		return nil
	})
	if err != nil {
		return nil, domain.AsStorageError("update estimate", err)
	}
	return est, nil
}

func (s *estimateService) Delete(ctx context.Context, id, ownerID string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "delete-estimate", startedAt, map[string]any{"estimate_id": id}, err)
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		deleted, err := repository.NewSQLiteEstimateRepo(tx).Delete(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrEstimateNotFound
		}
		return nil
	})
	return domain.AsStorageError("delete estimate", err)
}

func (s *estimateService) AddItem(ctx context.Context, estimateID string, item domain.NewItem) (added *domain.EstimateItem, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"estimate_id": estimateID, "from_template": item.TemplateID != nil}
	defer func() {
		observe(ctx, s.observer, "add-item", startedAt, fields, err)
	}()

	if err := checkName("name", item.Name); err != nil {
		return nil, err
	}
	if err := checkAmounts(item.Duration, item.Cost); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		added, err = addItemTx(ctx, tx, estimateID, item)
		return err
	})
	if err != nil {
		return nil, domain.AsStorageError("add item", err)
	}
	return added, nil
}

// addItemTx inserts one item at the end of the estimate and refreshes the
// estimate's totals from a fresh aggregate in the same transaction.
func addItemTx(ctx context.Context, tx db.DBTX, estimateID string, item domain.NewItem) (*domain.EstimateItem, error) {
	txEstimates := repository.NewSQLiteEstimateRepo(tx)
	txItems := repository.NewSQLiteItemRepo(tx)

	if _, err := txEstimates.GetUnscoped(ctx, estimateID); err != nil {
		return nil, err
	}
	next, err := txItems.NextOrderIndex(ctx, estimateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	it := &domain.EstimateItem{
		ID:          uuid.New().String(),
		EstimateID:  estimateID,
		Name:        strings.TrimSpace(item.Name),
		Description: strings.TrimSpace(item.Description),
		Duration:    item.Duration,
		Cost:        item.Cost,
		OrderIndex:  next,
		TemplateID:  item.TemplateID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := txItems.Create(ctx, it); err != nil {
		return nil, err
	}
	if _, err := txEstimates.RecomputeTotals(ctx, estimateID); err != nil {
		return nil, fmt.Errorf("refreshing totals: %w", err)
	}
	return it, nil
}

// AddItems stores each candidate in its own transaction so one bad item does
// not discard the rest. A missing estimate stops the batch and is returned.
func (s *estimateService) AddItems(ctx context.Context, estimateID string, items []domain.NewItem) (res *domain.BatchResult, err error) {
	startedAt := time.Now().UTC()
	res = &domain.BatchResult{}
	defer func() {
		observe(ctx, s.observer, "add-items", startedAt, map[string]any{
			"estimate_id": estimateID,
			"requested":   len(items),
			"added":       len(res.Added),
			"failed":      len(res.Failed),
		}, err)
	}()

	for i, item := range items {
		added, addErr := s.AddItem(ctx, estimateID, item)
		if addErr == nil {
			res.Added = append(res.Added, added)
			continue
		}
		if errors.Is(addErr, domain.ErrEstimateNotFound) {
			for _, rest := range items[i:] {
				res.Failed = append(res.Failed, domain.ItemFailure{Name: rest.Name, Err: addErr})
			}
			return res, addErr
		}
		res.Failed = append(res.Failed, domain.ItemFailure{Name: item.Name, Err: addErr})
	}
	return res, nil
}

func (s *estimateService) ListItems(ctx context.Context, estimateID string) ([]*domain.EstimateItem, error) {
	items, err := s.items.ListByEstimate(ctx, estimateID)
	return items, domain.AsStorageError("list items", err)
}

func (s *estimateService) UpdateItem(ctx context.Context, itemID string, item domain.NewItem) (updated *domain.EstimateItem, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "update-item", startedAt, map[string]any{"item_id": itemID}, err)
	}()

	if err := checkName("name", item.Name); err != nil {
		return nil, err
	}
	if err := checkAmounts(item.Duration, item.Cost); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteItemRepo(tx)
		current, err := txItems.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		current.Name = strings.TrimSpace(item.Name)
		current.Description = strings.TrimSpace(item.Description)
		current.Duration = item.Duration
		current.Cost = item.Cost
		current.UpdatedAt = time.Now().UTC()
		if err := txItems.Update(ctx, current); err != nil {
			return err
		}
		if _, err := repository.NewSQLiteEstimateRepo(tx).RecomputeTotals(ctx, current.EstimateID); err != nil {
			return fmt.Errorf("refreshing totals: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, domain.AsStorageError("update item", err)
	}
	return updated, nil
}

// MoveItem places the item at a 1-based position among its siblings and
// renumbers the estimate's items densely.
func (s *estimateService) MoveItem(ctx context.Context, itemID string, position int) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "move-item", startedAt, map[string]any{"item_id": itemID, "position": position}, err)
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteItemRepo(tx)
		target, err := txItems.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		siblings, err := txItems.ListByEstimate(ctx, target.EstimateID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for i, it := range placeAt(siblings, itemID, position) {
			if it.OrderIndex == i+1 {
				continue
			}
			it.OrderIndex = i + 1
			it.UpdatedAt = now
			if err := txItems.Update(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	return domain.AsStorageError("move item", err)
}

// DeleteItem removes the item and refreshes its estimate's totals. If the
// estimate vanished concurrently there is nothing left to refresh.
func (s *estimateService) DeleteItem(ctx context.Context, itemID string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "delete-item", startedAt, map[string]any{"item_id": itemID}, err)
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteItemRepo(tx)
		current, err := txItems.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		deleted, err := txItems.Delete(ctx, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrItemNotFound
		}
		_, err = repository.NewSQLiteEstimateRepo(tx).RecomputeTotals(ctx, current.EstimateID)
		if errors.Is(err, domain.ErrEstimateNotFound) {
			return nil
		}
		return err
	})
	return domain.AsStorageError("delete item", err)
}

// Totals is the authoritative read: it sums the items rather than trusting the
// cached columns.
func (s *estimateService) Totals(ctx context.Context, estimateID string) (domain.Totals, error) {
	var totals domain.Totals
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteEstimateRepo(tx).GetUnscoped(ctx, estimateID); err != nil {
			return err
		}
		var err error
		totals, err = repository.NewSQLiteItemRepo(tx).SumByEstimate(ctx, estimateID)
		return err
	})
	if err != nil {
		return domain.Totals{}, domain.AsStorageError("estimate totals", err)
	}
	return totals, nil
}
