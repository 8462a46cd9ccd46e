package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile"
	"github.com/fekuna/omnipos-catalog-service/internal/reconcile/dto"
	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	uc     reconcile.UseCase
	logger logger.ZapLogger
}

func NewSyncHandler(uc reconcile.UseCase, log logger.ZapLogger) *SyncHandler {
	return &SyncHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sync")
	g.POST("", h.sync(model.SyncScopeAll))
	g.POST("/store", h.sync(model.SyncScopeStores))
	g.POST("/categories", h.sync(model.SyncScopeCategories))
	g.POST("/products", h.sync(model.SyncScopeProducts))
}

type productsRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

// sync answers 200 for success and partial runs, 502 when every step failed
// and 409 when another replica is reconciling.
func (h *SyncHandler) sync(scope model.SyncScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := &dto.SyncInput{Scope: scope}

		if scope == model.SyncScopeProducts {
			var req productsRequest
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			input.ProductIDs = req.ProductIDs
		}

		// The run continues when the client goes away; steps commit on their own.
		ctx := context.WithoutCancel(c.Request.Context())

		result, err := h.uc.Synchronize(ctx, input)
		if err != nil {
			httpx.Error(c, h.logger, "failed to synchronize", err)
			return
		}

		status := http.StatusOK
		if result.Status == model.SyncStatusFailed {
			status = http.StatusBadGateway
		}
		c.JSON(status, dto.NewSyncResponse(result))
	}
}
