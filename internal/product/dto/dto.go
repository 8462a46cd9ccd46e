package dto

import (
	inventorydto "github.com/fekuna/omnipos-catalog-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

type ProductFilters struct {
	CategoryID  *int64 `json:"category_id,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
	SearchQuery string `json:"search,omitempty"` // name or product code
	SortBy      string `json:"sort_by,omitempty"` // name, price, created_at
	SortOrder   string `json:"sort_order,omitempty"`
	Page        int    `json:"page,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type ProductDetail struct {
	*model.Product
	EffectivePrice decimal.Decimal          `json:"effective_price"`
	Availability   []inventorydto.StockView `json:"availability"`
}

func NewProductDetail(p *model.Product) *ProductDetail {
	return &ProductDetail{
		Product:        p,
		EffectivePrice: p.EffectivePrice(),
		Availability:   inventorydto.NewStockViews(p.Stock),
	}
}
