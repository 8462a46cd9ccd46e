package usecase

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/inventory"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/validation"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	logger logger.ZapLogger
}

func NewInventoryUseCase(repo inventory.Repository, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		logger: log,
	}
}

// GetProductStock returns the ledger rows of a product. A product with no row
// for a store simply has nothing available there, so an empty list is not an
// error.
func (uc *inventoryUseCase) GetProductStock(ctx context.Context, filters *dto.StockFilters) ([]dto.StockView, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	rows, err := uc.repo.FindByProduct(ctx, filters.ProductID, filters.StoreID)
	if err != nil {
		return nil, err
	}
	return dto.NewStockViews(rows), nil
}
