package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/inventory/dto"
)

type UseCase interface {
	GetProductStock(ctx context.Context, filters *dto.StockFilters) ([]dto.StockView, error)
}
