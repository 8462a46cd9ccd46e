// Package source describes the read-only view of the ERP the catalog is
// reconciled against.
package source

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client lists ERP records. Every call is independent and returns either the
// complete set or an error wrapping apperr.ErrSourceUnavailable.
// A nil or empty id filter means all rows.
type Client interface {
	ListStores(ctx context.Context) ([]StoreRow, error)
	ListCategories(ctx context.Context) ([]CategoryRow, error)
	ListProducts(ctx context.Context, ids []int64) ([]ProductRow, error)
	ListStock(ctx context.Context, productIDs []int64) ([]StockRow, error)
}

type StoreRow struct {
	ID      int64  `db:"id"`
	Address string `db:"address"`
}

type CategoryRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type ProductRow struct {
	ID         int64               `db:"id"`
	Name       string              `db:"name"`
	Price      decimal.Decimal     `db:"price"`
	PromoPrice decimal.NullDecimal `db:"promo_price"`
	Unit       string              `db:"unit"`
	CategoryID *int64              `db:"category_id"`
}

type StockRow struct {
	ProductID int64           `db:"product_id"`
	StoreID   int64           `db:"store_id"`
	Quantity  decimal.Decimal `db:"quantity"`
}
