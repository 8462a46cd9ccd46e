package dto

import (
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

type PlaceOrderInput struct {
	UserID  string `json:"-" validate:"required"`
	StoreID int64  `json:"store_id" validate:"gt=0"`
}

type UpdateStatusInput struct {
	ID     int64             `json:"-" validate:"gt=0"`
	Status model.OrderStatus `json:"status" validate:"required,oneof=PAID CANCELLED"`
}

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID          int64              `json:"id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	StoreID     int64              `json:"store_id"`
	Status      model.OrderStatus  `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []OrderItemPayload `json:"items,omitempty"`
}

type OrderItemPayload struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func NewOrderEvent(eventID, eventType string, o *model.Order, at time.Time) *OrderEvent {
	payload := OrderPayload{
		ID:          o.ID,
		UserID:      o.UserID,
		StoreID:     o.StoreID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
	}
	if o.OrderNumber != nil {
		payload.OrderNumber = *o.OrderNumber
	}
	for _, item := range o.Items {
		payload.Items = append(payload.Items, OrderItemPayload{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return &OrderEvent{
		EventID:   eventID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: at,
	}
}
