package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/google/uuid"
)

type templateService struct {
	templates repository.TemplateRepo
	uow       db.UnitOfWork
	observer  UseCaseObserver
}

func NewTemplateService(
	templates repository.TemplateRepo,
	uow db.UnitOfWork,
	observers ...UseCaseObserver,
) TemplateService {
	return &templateService{
		templates: templates,
		uow:       uow,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *templateService) Create(ctx context.Context, ownerID string, in domain.NewTemplate) (tpl *domain.WorkTemplate, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "create-template", startedAt, map[string]any{
			"owner_id": ownerID,
			"category": string(in.Category),
		}, err)
	}()

	if err := checkName("name", in.Name); err != nil {
		return nil, err
	}
	if err := checkAmounts(in.DefaultDuration, in.DefaultCost); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tpl = &domain.WorkTemplate{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Category:        in.Category,
		DefaultDuration: in.DefaultDuration,
		DefaultCost:     in.DefaultCost,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteTemplateRepo(tx).Create(ctx, tpl)
	})
	if err != nil {
		return nil, domain.AsStorageError("create template", err)
	}
	return tpl, nil
}

func (s *templateService) Get(ctx context.Context, id, ownerID string) (*domain.WorkTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id, ownerID)
	return tpl, domain.AsStorageError("get template", err)
}

func (s *templateService) List(ctx context.Context, ownerID string) ([]*domain.WorkTemplate, error) {
	list, err := s.templates.ListActive(ctx, ownerID)
	return list, domain.AsStorageError("list templates", err)
}

func (s *templateService) IncrementUsage(ctx context.Context, id string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "increment-template-usage", startedAt, map[string]any{"template_id": id}, err)
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		ok, err := repository.NewSQLiteTemplateRepo(tx).IncrementUsage(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("incrementing %s: %w", id, domain.ErrTemplateNotFound)
		}
		return nil
	})
	return domain.AsStorageError("increment template usage", err)
}

func (s *templateService) SoftDelete(ctx context.Context, id, ownerID string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "soft-delete-template", startedAt, map[string]any{"template_id": id}, err)
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteTemplateRepo(tx).Deactivate(ctx, id, ownerID)
	})
	return domain.AsStorageError("soft delete template", err)
}
