package dto

import (
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

type StockFilters struct {
	ProductID int64  `validate:"gt=0"`
	StoreID   *int64 `validate:"omitempty,gt=0"`
}

// StockView is a ledger row as shown to clients, with the derived
// available quantity.
type StockView struct {
	StoreID   int64           `json:"store_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

func NewStockView(s *model.ProductStock) StockView {
	return StockView{
		StoreID:   s.StoreID,
		Quantity:  s.Quantity,
		Reserved:  s.Reserved,
		Available: s.Available(),
	}
}

func NewStockViews(rows []model.ProductStock) []StockView {
	views := make([]StockView, 0, len(rows))
	for i := range rows {
		views = append(views, NewStockView(&rows[i]))
	}
	return views
}
