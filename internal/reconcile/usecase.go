// Package reconcile mirrors the ERP's stores, categories, products and stock
// into the catalog database.
package reconcile

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
)

type UseCase interface {
	// Synchronize runs one reconciliation of input.Scope. Callers asking for
	// the same scope while a run is in flight share its result. A run that
	// completed with step failures is still returned with a nil error; the
	// outcome is in SyncResult.Status.
	Synchronize(ctx context.Context, input *dto.SyncInput) (*model.SyncResult, error)
}

// CacheInvalidator is notified after a run changed product rows.
type CacheInvalidator interface {
	InvalidateListCache(ctx context.Context)
}
