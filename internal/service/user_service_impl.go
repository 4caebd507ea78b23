package service

import (
	"context"
	"strings"
	"time"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/google/uuid"
)

type userService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewUserService(uow db.UnitOfWork, observers ...UseCaseObserver) UserService {
	return &userService{uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *userService) EnsureUser(ctx context.Context, externalID, displayName string) (u *domain.User, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "ensure-user", startedAt, map[string]any{"external_id": externalID}, err)
	}()

	if err := checkName("external id", externalID); err != nil {
		return nil, err
	}
	candidate := &domain.User{
		ID:          uuid.New().String(),
		ExternalID:  strings.TrimSpace(externalID),
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now().UTC(),
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		u, err = repository.NewSQLiteUserRepo(tx).Upsert(ctx, candidate)
		return err
	})
	if err != nil {
		return nil, domain.AsStorageError("ensure user", err)
	}
	return u, nil
}
