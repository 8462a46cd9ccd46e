package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/validation"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: category %d", apperr.ErrNotFound, id)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error) {
	return uc.repo.FindAll(ctx, filters)
}

// SetIcon is the only writer of icon_path after creation. Sync keeps whatever
// is set here.
func (uc *categoryUseCase) SetIcon(ctx context.Context, input *dto.SetIconInput) (*model.Category, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if err := uc.repo.SetIcon(ctx, input.ID, input.IconPath); err != nil {
		return nil, fmt.Errorf("set icon for category %d: %w", input.ID, err)
	}
	uc.logger.Info("Category icon updated", zap.Int64("category_id", input.ID))

	return uc.GetCategory(ctx, input.ID)
}
