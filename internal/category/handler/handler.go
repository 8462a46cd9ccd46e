package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts the read routes on rg. Icons are admin-owned.
func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	g := rg.Group("/categories")
	g.GET("", h.ListCategories)
	g.GET("/:id", h.GetCategory)

	admin.PUT("/categories/:id/icon", h.SetIcon)
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.uc.ListCategories(c.Request.Context(), &dto.CategoryFilters{Search: c.Query("search")})
	if err != nil {
		httpx.Error(c, h.logger, "failed to list categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	cat, err := h.uc.GetCategory(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, h.logger, "failed to get category", err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) SetIcon(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.SetIconInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = id

	cat, err := h.uc.SetIcon(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, "failed to set category icon", err)
		return
	}
	c.JSON(http.StatusOK, cat)
}
