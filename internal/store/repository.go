package store

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/store/dto"
)

type Repository interface {
	Create(ctx context.Context, store *model.Store) error
	FindByID(ctx context.Context, id int64) (*model.Store, error)
	FindByExternalID(ctx context.Context, externalID int64) (*model.Store, error)
	FindAll(ctx context.Context, filters *dto.StoreFilters) ([]model.Store, error)
	Update(ctx context.Context, store *model.Store) error
	Deactivate(ctx context.Context, id int64) error

	// ExternalIDMap maps ERP store numbers to local ids.
	ExternalIDMap(ctx context.Context) (map[int64]int64, error)
}
