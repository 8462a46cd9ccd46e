package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
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

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	conn := postgres.Conn(ctx, r.DB)

	query := `
        INSERT INTO orders (user_id, store_id, status, total_amount, created_at, updated_at)
        VALUES (:user_id, :store_id, :status, :total_amount, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	if err := postgres.NamedGet(ctx, conn, &o.BaseModel, query, o); err != nil {
		return postgres.MapError(err)
	}

	if len(o.Items) == 0 {
		return nil
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	itemsQuery := `
        INSERT INTO order_items (
            order_id, product_id, product_code, product_name, category_name,
            image_path, unit, unit_price, quantity, line_total
        )
        VALUES (
            :order_id, :product_id, :product_code, :product_name, :category_name,
            :image_path, :unit, :unit_price, :quantity, :line_total
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, conn, itemsQuery, o.Items); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

func (r *PGRepository) SetOrderNumber(ctx context.Context, id int64, number string) error {
	_, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE orders SET order_number = $1, updated_at = NOW() WHERE id = $2`, number, id)
	return postgres.MapError(err)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	conn := postgres.Conn(ctx, r.DB)

	var o model.Order
	err := sqlx.GetContext(ctx, conn, &o, `SELECT * FROM orders WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	o.Items = []model.OrderItem{}
	err = sqlx.SelectContext(ctx, conn, &o.Items, `SELECT * FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	res, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", apperr.ErrConflict, id, from)
	}
	return nil
}
