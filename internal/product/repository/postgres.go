package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/database/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE id = $1 LIMIT 1`
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, r.DB), &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var count int
	products := []model.Product{}

	conditions := []string{}
	args := map[string]any{}

	if f.CategoryID != nil {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = *f.CategoryID
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR CAST(external_id AS TEXT) = :code)")
		args["search"] = "%" + f.SearchQuery + "%"
		args["code"] = f.SearchQuery
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	conn := postgres.Conn(ctx, r.DB)

	countQuery, countArgs, err := r.named("SELECT count(*) FROM products"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, conn, &count, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	// Whitelisted sort columns only.
	orderBy := "name ASC"
	if f.SortBy != "" {
		switch f.SortBy {
		case "price":
			orderBy = "price"
		case "created_at":
			orderBy = "created_at"
		default:
			orderBy = "name"
		}
		if strings.ToLower(f.SortOrder) == "desc" {
			orderBy += " DESC"
		} else {
			orderBy += " ASC"
		}
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s, id", whereClause, orderBy)
	if f.PageSize > 0 {
		page := max(f.Page, 1)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	listQuery, listArgs, err := r.named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.SelectContext(ctx, conn, &products, listQuery, listArgs...); err != nil {
		return nil, 0, err
	}

	return products, count, nil
}

func (r *PGRepository) named(query string, args map[string]any) (string, []any, error) {
	q, a, err := sqlx.Named(query, args)
	if err != nil {
		return "", nil, err
	}
	return r.DB.Rebind(q), a, nil
}

func (r *PGRepository) RefIndex(ctx context.Context) (map[int64]int64, error) {
	var refs []model.ProductRef
	if err := sqlx.SelectContext(ctx, postgres.Conn(ctx, r.DB), &refs, `SELECT id, external_id FROM products`); err != nil {
		return nil, err
	}

	index := make(map[int64]int64, len(refs))
	for _, ref := range refs {
		index[ref.ExternalID] = ref.ID
	}
	return index, nil
}

// upsertQuery never writes image_path on conflict, and category_id falls back
// to the stored value when the incoming row has none. The WHERE clause skips
// rows whose values are already stored so updated_at only moves on change.
const upsertQuery = `
    INSERT INTO products (
        external_id, name, price, promo_price, is_promo, unit,
        category_id, image_path, is_active, created_at, updated_at
    )
    VALUES (
        :external_id, :name, :price, :promo_price, :is_promo, :unit,
        :category_id, :image_path, TRUE, NOW(), NOW()
    )
    ON CONFLICT (external_id) DO UPDATE
    SET name = EXCLUDED.name,
        price = EXCLUDED.price,
        promo_price = EXCLUDED.promo_price,
        is_promo = EXCLUDED.is_promo,
        unit = EXCLUDED.unit,
        category_id = COALESCE(EXCLUDED.category_id, products.category_id),
        updated_at = NOW()
    WHERE (products.name, products.price, products.promo_price, products.is_promo, products.unit, products.category_id)
        IS DISTINCT FROM
        (EXCLUDED.name, EXCLUDED.price, EXCLUDED.promo_price, EXCLUDED.is_promo, EXCLUDED.unit,
         COALESCE(EXCLUDED.category_id, products.category_id))
    RETURNING id, external_id
`

func (r *PGRepository) UpsertBatch(ctx context.Context, rows []model.ProductUpsert) ([]model.ProductRef, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	res, err := sqlx.NamedQueryContext(ctx, postgres.Conn(ctx, r.DB), upsertQuery, rows)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer res.Close()

	refs := make([]model.ProductRef, 0, len(rows))
	for res.Next() {
		var ref model.ProductRef
		if err := res.StructScan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := res.Err(); err != nil {
		return nil, postgres.MapError(err)
	}
	return refs, nil
}
