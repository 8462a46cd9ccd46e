package category

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id int64) (*model.Category, error)
	FindByExternalID(ctx context.Context, externalID int64) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)

	// UpdateName leaves icon_path alone; only admins set icons.
	UpdateName(ctx context.Context, id int64, name string) error
	SetIcon(ctx context.Context, id int64, iconPath string) error

	ExternalIDMap(ctx context.Context) (map[int64]int64, error)
}
