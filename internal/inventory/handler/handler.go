package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products/:id/stock", h.GetProductStock)
}

func (h *InventoryHandler) GetProductStock(c *gin.Context) {
	productID, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	filters := &dto.StockFilters{ProductID: productID}
	if c.Query("store_id") != "" {
		storeID, ok := httpx.QueryID(c, "store_id")
		if !ok {
			return
		}
		filters.StoreID = &storeID
	}

	stock, err := h.uc.GetProductStock(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, "failed to get product stock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "stock": stock})
}
