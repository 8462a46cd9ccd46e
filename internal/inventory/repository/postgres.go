package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByProduct(ctx context.Context, productID int64, storeID *int64) ([]model.ProductStock, error) {
	query := `SELECT * FROM product_stock WHERE product_id = $1`
	args := []any{productID}
	if storeID != nil {
		query += ` AND store_id = $2`
		args = append(args, *storeID)
	}
	query += ` ORDER BY store_id`

	items := []model.ProductStock{}
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

const stockUpsertChunk = postgres.MaxBindParams / 3

// upsertQuantitiesQuery leaves reserved untouched on conflict and skips rows
// whose quantity is unchanged, so RowsAffected counts real writes only.
const upsertQuantitiesQuery = `
    INSERT INTO product_stock (product_id, store_id, quantity, reserved, updated_at)
    VALUES (:product_id, :store_id, :quantity, 0, NOW())
    ON CONFLICT (product_id, store_id) DO UPDATE
    SET quantity = EXCLUDED.quantity,
        updated_at = NOW()
    WHERE product_stock.quantity IS DISTINCT FROM EXCLUDED.quantity
`

func (r *PGRepository) UpsertQuantities(ctx context.Context, rows []model.StockUpsert) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	conn := postgres.Conn(ctx, r.DB)
	var written int64
	for chunk := range slices.Chunk(rows, stockUpsertChunk) {
		res, err := sqlx.NamedExecContext(ctx, conn, upsertQuantitiesQuery, chunk)
		if err != nil {
			return written, postgres.MapError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, productID, storeID int64) (*model.ProductStock, error) {
	var stock model.ProductStock
	query := `SELECT * FROM product_stock WHERE product_id = $1 AND store_id = $2 FOR UPDATE`
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, r.DB), &stock, query, productID, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (r *PGRepository) SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error {
	res, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE product_stock SET quantity = $1, updated_at = NOW() WHERE id = $2`, quantity, id)
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
