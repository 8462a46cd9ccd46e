package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-catalog-service/internal/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/store"
	"github.com/fekuna/omnipos-catalog-service/internal/store/dto"
	"github.com/gin-gonic/gin"
)

type StoreHandler struct {
	uc     store.UseCase
	logger logger.ZapLogger
}

func NewStoreHandler(uc store.UseCase, log logger.ZapLogger) *StoreHandler {
	return &StoreHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *StoreHandler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	g := rg.Group("/stores")
	g.GET("", h.ListStores)
	g.GET("/:id", h.GetStore)

	admin.POST("/stores", h.CreateStore)
	admin.DELETE("/stores/:id", h.DeactivateStore)
}

func (h *StoreHandler) ListStores(c *gin.Context) {
	filters := &dto.StoreFilters{}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_active"})
			return
		}
		filters.IsActive = &active
	}

	stores, err := h.uc.ListStores(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, "failed to list stores", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

func (h *StoreHandler) CreateStore(c *gin.Context) {
	var req dto.CreateStoreInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.uc.CreateStore(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, "failed to create store", err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *StoreHandler) GetStore(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.uc.GetStore(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, h.logger, "failed to get store", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *StoreHandler) DeactivateStore(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.uc.DeactivateStore(c.Request.Context(), id); err != nil {
		httpx.Error(c, h.logger, "failed to deactivate store", err)
		return
	}
	c.Status(http.StatusNoContent)
}
