package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/store/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, s *model.Store) error {
	query := `
        INSERT INTO stores (external_id, address, is_active, created_at, updated_at)
        VALUES (:external_id, :address, :is_active, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := postgres.NamedGet(ctx, postgres.Conn(ctx, r.DB), &s.BaseModel, query, s)
	return postgres.MapError(err)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Store, error) {
	return r.findOne(ctx, `SELECT * FROM stores WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) FindByExternalID(ctx context.Context, externalID int64) (*model.Store, error) {
	return r.findOne(ctx, `SELECT * FROM stores WHERE external_id = $1 LIMIT 1`, externalID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*model.Store, error) {
	var s model.Store
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, r.DB), &s, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.StoreFilters) ([]model.Store, error) {
	query := `SELECT * FROM stores`
	args := []any{}
	if f != nil && f.IsActive != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *f.IsActive)
	}
	query += ` ORDER BY id`

	stores := []model.Store{}
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &stores, query, args...); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *PGRepository) Update(ctx context.Context, s *model.Store) error {
	query := `
        UPDATE stores
        SET external_id = :external_id,
            address = :address,
            is_active = :is_active,
            updated_at = NOW()
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, postgres.Conn(ctx, r.DB), query, s)
	return postgres.MapError(err)
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE stores SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
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
	query := `SELECT id, external_id FROM stores WHERE external_id IS NOT NULL`
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &refs, query); err != nil {
		return nil, err
	}

	m := make(map[int64]int64, len(refs))
	for _, ref := range refs {
		m[ref.ExternalID] = ref.ID
	}
	return m, nil
}
