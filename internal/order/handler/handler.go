package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/auth"
	"github.com/fekuna/omnipos-catalog-service/internal/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/order"
	"github.com/fekuna/omnipos-catalog-service/internal/order/dto"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts the customer routes behind the user middleware and
// the status route on admin.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	g := rg.Group("/orders", auth.RequireUser())
	g.POST("", h.PlaceOrder)
	g.GET("/:id", h.GetOrder)

	admin.PATCH("/orders/:id/status", h.UpdateStatus)
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.UserID = auth.GetUserID(c.Request.Context())

	o, err := h.uc.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, "failed to place order", err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	o, err := h.uc.GetOrder(c.Request.Context(), auth.GetUserID(c.Request.Context()), id)
	if err != nil {
		httpx.Error(c, h.logger, "failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = id

	o, err := h.uc.UpdateStatus(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, "failed to update order status", err)
		return
	}
	c.JSON(http.StatusOK, o)
}
