package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (external_id, name, icon_path, created_at, updated_at)
        VALUES (:external_id, :name, :icon_path, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := postgres.NamedGet(ctx, postgres.Conn(ctx, r.DB), &c.BaseModel, query, c)
	return postgres.MapError(err)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	return r.findOne(ctx, `SELECT * FROM categories WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) FindByExternalID(ctx context.Context, externalID int64) (*model.Category, error) {
	return r.findOne(ctx, `SELECT * FROM categories WHERE external_id = $1 LIMIT 1`, externalID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*model.Category, error) {
	var category model.Category
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, r.DB), &category, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, error) {
	query := `SELECT * FROM categories`
	args := []any{}
	if f != nil && f.Search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+f.Search+"%")
	}
	query += ` ORDER BY name ASC`

	categories := []model.Category{}
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &categories, query, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PGRepository) UpdateName(ctx context.Context, id int64, name string) error {
	return r.exec(ctx, `UPDATE categories SET name = $1, updated_at = NOW() WHERE id = $2`, name, id)
}

func (r *PGRepository) SetIcon(ctx context.Context, id int64, iconPath string) error {
	return r.exec(ctx, `UPDATE categories SET icon_path = $1, updated_at = NOW() WHERE id = $2`, iconPath, id)
}

func (r *PGRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := postgres.Conn(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ExternalIDMap(ctx context.Context) (map[int64]int64, error) {
	var refs []struct {
		ID         int64 `db:"id"`
		ExternalID int64 `db:"external_id"`
	}
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &refs, `SELECT id, external_id FROM categories`); err != nil {
		return nil, err
	}

	m := make(map[int64]int64, len(refs))
	for _, ref := range refs {
		m[ref.ExternalID] = ref.ID
	}
	return m, nil
}
