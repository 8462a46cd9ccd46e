package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/store"
	"github.com/fekuna/omnipos-catalog-service/internal/store/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/validation"
	"go.uber.org/zap"
)

type storeUseCase struct {
	repo   store.Repository
	logger logger.ZapLogger
}

func NewStoreUseCase(repo store.Repository, log logger.ZapLogger) store.UseCase {
	return &storeUseCase{
		repo:   repo,
		logger: log,
	}
}

// CreateStore registers a store that is not mirrored from the ERP, so it never
// carries an external id.
func (uc *storeUseCase) CreateStore(ctx context.Context, input *dto.CreateStoreInput) (*model.Store, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	s := &model.Store{
		Address:  input.Address,
		IsActive: true,
	}
	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, err
	}

	uc.logger.Info("Store created", zap.Int64("store_id", s.ID))
	return s, nil
}

func (uc *storeUseCase) GetStore(ctx context.Context, id int64) (*model.Store, error) {
	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: store %d", apperr.ErrNotFound, id)
	}
	return s, nil
}

func (uc *storeUseCase) ListStores(ctx context.Context, filters *dto.StoreFilters) ([]model.Store, error) {
	return uc.repo.FindAll(ctx, filters)
}

// DeactivateStore hides a store from checkout. Stores are never deleted
// because orders and stock rows reference them.
func (uc *storeUseCase) DeactivateStore(ctx context.Context, id int64) error {
	if err := uc.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate store %d: %w", id, err)
	}
	uc.logger.Info("Store deactivated", zap.Int64("store_id", id))
	return nil
}
