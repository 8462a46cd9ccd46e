package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	ExternalID  int64               `db:"external_id" json:"external_id"`
	CategoryID  *int64              `db:"category_id" json:"category_id"` // Nullable
	Name        string              `db:"name" json:"name"`
	Description *string             `db:"description" json:"description"`
	Price       decimal.Decimal     `db:"price" json:"price"`
	PromoPrice  decimal.NullDecimal `db:"promo_price" json:"promo_price"`
	IsPromo     bool                `db:"is_promo" json:"is_promo"`
	Unit        string              `db:"unit" json:"unit"`
	ImagePath   *string             `db:"image_path" json:"image_path"`
	IsActive    bool                `db:"is_active" json:"is_active"`
	Category    *Category           `db:"-" json:"category,omitempty"`
	Stock       []ProductStock      `db:"-" json:"-"`
}

// Code is the product code shown on receipts, the ERP's product number.
func (p *Product) Code() string {
	return strconv.FormatInt(p.ExternalID, 10)
}

func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.PromoPrice, p.IsPromo)
}

// IsPromoPrice reports whether a promo price is present and non-zero.
func IsPromoPrice(promo decimal.NullDecimal) bool {
	return promo.Valid && !promo.Decimal.IsZero()
}

func EffectivePrice(price decimal.Decimal, promo decimal.NullDecimal, isPromo bool) decimal.Decimal {
	if isPromo && promo.Valid {
		return promo.Decimal
	}
	return price
}

// ProductRef is the id projection used to resolve external ids during a sync
// without loading full rows.
type ProductRef struct {
	ID         int64 `db:"id"`
	ExternalID int64 `db:"external_id"`
}

// ProductUpsert is one row of a sync batch. ImagePath is only set for rows that
// do not exist yet; the upsert never writes it on conflict.
type ProductUpsert struct {
	ExternalID int64               `db:"external_id"`
	Name       string              `db:"name"`
	Price      decimal.Decimal     `db:"price"`
	PromoPrice decimal.NullDecimal `db:"promo_price"`
	IsPromo    bool                `db:"is_promo"`
	Unit       string              `db:"unit"`
	CategoryID *int64              `db:"category_id"`
	ImagePath  *string             `db:"image_path"`
}
