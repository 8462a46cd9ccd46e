package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

// MaxUpsertBatch is the largest batch UpsertBatch can bind in one statement
// at 8 parameters per row.
const MaxUpsertBatch = 65535 / 8

type Repository interface {
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)

	// RefIndex maps external ids to local ids for every product.
	RefIndex(ctx context.Context) (map[int64]int64, error)

	// UpsertBatch writes rows keyed on external_id in one statement and
	// returns the refs of the rows it inserted or changed. Rows whose values
	// are already stored are not touched and not returned.
	UpsertBatch(ctx context.Context, rows []model.ProductUpsert) ([]model.ProductRef, error)
}
