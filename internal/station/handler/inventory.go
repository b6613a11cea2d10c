package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/station/model"
	"github.com/hydrohub/hydrohub/internal/station/repository"
	"github.com/hydrohub/hydrohub/internal/users"
)

// inventorySvc is the interface expected by InventoryHandler, satisfied by
// *service.InventoryService.
type inventorySvc interface {
	CreateItem(ctx context.Context, staffID int64, req *model.CreateItemRequest) (*model.InventoryItem, error)
	Get(ctx context.Context, id int64) (*model.InventoryItem, error)
	List(ctx context.Context) ([]model.InventoryItem, error)
	Adjust(ctx context.Context, staffID, id int64, req *model.AdjustStockRequest) (*model.InventoryItem, error)
	LowStock(ctx context.Context) ([]model.InventoryItem, error)
}

// InventoryHandler handles inventory item routes. All routes require a
// staff or admin session.
type InventoryHandler struct {
	svc    inventorySvc
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc inventorySvc, tokens *identity.TokenIssuer, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the inventory routes on the given router group.
func (h *InventoryHandler) Register(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory", identity.RequireRole(h.tokens, users.RoleAdmin, users.RoleStaff))
	{
		inv.POST("", h.CreateItem)
		inv.GET("", h.ListItems)
		inv.GET("/low-stock", h.LowStock)
		inv.GET("/:id", h.GetItem)
		inv.POST("/:id/adjust", h.AdjustStock)
	}
}

// CreateItem handles POST /inventory.
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req model.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff := identity.ActorRef(c)
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), *staff, &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("create inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// ListItems handles GET /inventory.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list inventory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inventory"})
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// LowStock handles GET /inventory/low-stock.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		h.logger.Error("low stock", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list low stock items"})
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items), "threshold": model.LowStockThreshold})
}

// GetItem handles GET /inventory/:id.
func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		h.logger.Error("get inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// AdjustStock handles POST /inventory/:id/adjust.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	var req model.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff := identity.ActorRef(c)
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	item, err := h.svc.Adjust(c.Request.Context(), *staff, id, &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		h.logger.Error("adjust stock", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to adjust stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}
