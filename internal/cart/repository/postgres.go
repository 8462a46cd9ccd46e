package repository

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetSnapshot(ctx context.Context, userID string) (*model.CartSnapshot, error) {
	query := `
        SELECT ci.product_id, ci.quantity,
               p.external_id, p.name, p.price, p.promo_price, p.is_promo, p.unit, p.image_path,
               c.name AS category_name
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        LEFT JOIN categories c ON c.id = p.category_id
        WHERE ci.user_id = $1
        ORDER BY ci.product_id
        FOR UPDATE OF ci
    `
	lines := []model.CartLine{}
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &lines, query, userID); err != nil {
		return nil, err
	}
	return &model.CartSnapshot{UserID: userID, Lines: lines}, nil
}

func (r *PGRepository) Clear(ctx context.Context, userID string, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`, userID, pq.Array(productIDs))
	return err
}
