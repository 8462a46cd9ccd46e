package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
}

// CanTransitionTo reports whether the status machine allows s -> next.
// PAID and CANCELLED are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	BaseModel
	UserID      string          `db:"user_id" json:"user_id"`
	StoreID     int64           `db:"store_id" json:"store_id"`
	OrderNumber *string         `db:"order_number" json:"order_number"`
	Status      OrderStatus     `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Items       []OrderItem     `db:"-" json:"items"`
}

// OrderItem snapshots the product at purchase time. It does not follow later
// changes to the product row.
type OrderItem struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	ProductCode  string          `db:"product_code" json:"product_code"`
	ProductName  string          `db:"product_name" json:"product_name"`
	CategoryName *string         `db:"category_name" json:"category_name"`
	ImagePath    *string         `db:"image_path" json:"image_path"`
	Unit         string          `db:"unit" json:"unit"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	LineTotal    decimal.Decimal `db:"line_total" json:"line_total"`
}

// NewOrder builds a PENDING order from the cart lines using the effective
// price of each line.
func NewOrder(userID string, storeID int64, lines []CartLine) *Order {
	order := &Order{
		UserID:      userID,
		StoreID:     storeID,
		Status:      OrderStatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]OrderItem, 0, len(lines)),
	}

	for _, line := range lines {
		price := EffectivePrice(line.Price, line.PromoPrice, line.IsPromo)
		total := price.Mul(line.Quantity)
		order.Items = append(order.Items, OrderItem{
			ProductID:    line.ProductID,
			ProductCode:  strconv.FormatInt(line.ExternalID, 10),
			ProductName:  line.Name,
			CategoryName: line.CategoryName,
			ImagePath:    line.ImagePath,
			Unit:         line.Unit,
			UnitPrice:    price,
			Quantity:     line.Quantity,
			LineTotal:    total,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
	}
	return order
}

// FormatOrderNumber renders YYYYMMDD-<id> from the persisted row.
func FormatOrderNumber(id int64, createdAt time.Time) string {
	return fmt.Sprintf("%s-%d", createdAt.Format("20060102"), id)
}

// Transition moves the order to next if the status machine allows it.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	return nil
}
