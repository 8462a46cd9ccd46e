package model

import "github.com/shopspring/decimal"

// CartLine is a cart row joined with the product as it is right now.
type CartLine struct {
	ProductID    int64               `db:"product_id"`
	Quantity     decimal.Decimal     `db:"quantity"`
	ExternalID   int64               `db:"external_id"`
	Name         string              `db:"name"`
	Price        decimal.Decimal     `db:"price"`
	PromoPrice   decimal.NullDecimal `db:"promo_price"`
	IsPromo      bool                `db:"is_promo"`
	Unit         string              `db:"unit"`
	ImagePath    *string             `db:"image_path"`
	CategoryName *string             `db:"category_name"`
}

type CartSnapshot struct {
	UserID string
	Lines  []CartLine
}

func (c *CartSnapshot) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

func (c *CartSnapshot) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
