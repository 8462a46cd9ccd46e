package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ERP-sourced amounts and every quantity are unscaled NUMERIC so values are
// stored exactly as read. Only order money columns are fixed at two places.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		id          BIGSERIAL PRIMARY KEY,
		external_id BIGINT UNIQUE,
		address     TEXT NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id          BIGSERIAL PRIMARY KEY,
		external_id BIGINT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		icon_path   TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		external_id BIGINT NOT NULL UNIQUE,
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		name        TEXT NOT NULL,
		description TEXT,
		price       NUMERIC NOT NULL DEFAULT 0,
		promo_price NUMERIC,
		is_promo    BOOLEAN NOT NULL DEFAULT FALSE,
		unit        TEXT NOT NULL DEFAULT '',
		image_path  TEXT,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products (category_id)`,
	`CREATE TABLE IF NOT EXISTS product_stock (
		id         BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		store_id   BIGINT NOT NULL REFERENCES stores(id),
		quantity   NUMERIC NOT NULL DEFAULT 0,
		reserved   NUMERIC NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, store_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           BIGSERIAL PRIMARY KEY,
		user_id      TEXT NOT NULL,
		store_id     BIGINT NOT NULL REFERENCES stores(id),
		order_number TEXT UNIQUE,
		status       TEXT NOT NULL DEFAULT 'PENDING',
		total_amount NUMERIC(14,2) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id            BIGSERIAL PRIMARY KEY,
		order_id      BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id    BIGINT NOT NULL REFERENCES products(id),
		product_code  TEXT NOT NULL,
		product_name  TEXT NOT NULL,
		category_name TEXT,
		image_path    TEXT,
		unit          TEXT NOT NULL,
		unit_price    NUMERIC(14,2) NOT NULL,
		quantity      NUMERIC NOT NULL,
		line_total    NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity   NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, product_id)
	)`,
}

// Migrate creates the catalog tables when they are missing. It is safe to run
// on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
