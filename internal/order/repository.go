package order

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	// Create inserts the order and its items and fills in the generated id
	// and timestamps.
	Create(ctx context.Context, order *model.Order) error
	SetOrderNumber(ctx context.Context, id int64, number string) error
	FindByID(ctx context.Context, id int64) (*model.Order, error)

	// UpdateStatus moves the order from one status to another and fails with
	// apperr.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) error
}
