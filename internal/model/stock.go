package model

import (
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/shopspring/decimal"
)

// ProductStock is the stock ledger row for one product in one store.
// Quantity is authoritative from the ERP, Reserved is held by local activity.
// Available is always derived and never stored.
type ProductStock struct {
	ID        int64           `db:"id" json:"id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	StoreID   int64           `db:"store_id" json:"store_id"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Reserved  decimal.Decimal `db:"reserved" json:"reserved"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

func (s *ProductStock) Available() decimal.Decimal {
	return AvailableQuantity(s.Quantity, s.Reserved)
}

// AvailableQuantity is max(0, round2(quantity - reserved)).
func AvailableQuantity(quantity, reserved decimal.Decimal) decimal.Decimal {
	available := quantity.Sub(reserved).Round(2)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Decrement removes n units from Quantity. Reserved is left as is.
func (s *ProductStock) Decrement(n decimal.Decimal) error {
	if !n.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", apperr.ErrValidation, n)
	}
	if n.GreaterThan(s.Available()) {
		return fmt.Errorf("%w: product %d in store %d has %s available, %s requested",
			apperr.ErrInsufficientStock, s.ProductID, s.StoreID, s.Available(), n)
	}
	s.Quantity = s.Quantity.Sub(n)
	return nil
}

// StockUpsert carries the ERP quantity for one (product, store) pair.
type StockUpsert struct {
	ProductID int64           `db:"product_id"`
	StoreID   int64           `db:"store_id"`
	Quantity  decimal.Decimal `db:"quantity"`
}

// StockKey identifies a ledger row.
type StockKey struct {
	ProductID int64
	StoreID   int64
}

func (u StockUpsert) Key() StockKey {
	return StockKey{ProductID: u.ProductID, StoreID: u.StoreID}
}
