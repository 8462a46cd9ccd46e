// Package cart reads and clears a user's cart. Cart mutation endpoints live
// outside this service.
package cart

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	// GetSnapshot joins the cart with the current product rows. Inside a
	// transaction the cart rows stay locked until it ends.
	GetSnapshot(ctx context.Context, userID string) (*model.CartSnapshot, error)

	// Clear removes only the given products so lines added after the
	// snapshot survive.
	Clear(ctx context.Context, userID string, productIDs []int64) error
}
