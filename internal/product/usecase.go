package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

type UseCase interface {
	GetProduct(ctx context.Context, id int64) (*dto.ProductDetail, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)

	// InvalidateListCache drops cached list pages after the catalog changed.
	InvalidateListCache(ctx context.Context)
}
