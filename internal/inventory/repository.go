package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

type Repository interface {
	FindByProduct(ctx context.Context, productID int64, storeID *int64) ([]model.ProductStock, error)

	// UpsertQuantities writes quantity for each (product, store) pair in the
	// given order and reports how many rows were inserted or changed. Large
	// inputs are split across statements. Reserved is never written.
	UpsertQuantities(ctx context.Context, rows []model.StockUpsert) (int64, error)

	// GetForUpdate locks the row until the surrounding transaction ends.
	// It must run inside database.Transactor.WithinTx.
	GetForUpdate(ctx context.Context, productID, storeID int64) (*model.ProductStock, error)
	SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error
}
