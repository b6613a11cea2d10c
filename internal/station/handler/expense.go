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

// expenseSvc is the interface expected by ExpenseHandler, satisfied by
// *service.ExpenseService.
type expenseSvc interface {
	Create(ctx context.Context, staffID int64, req *model.CreateExpenseRequest) (*model.Expense, error)
	Get(ctx context.Context, id int64) (*model.Expense, error)
	List(ctx context.Context, f model.ExpenseFilter) ([]model.Expense, error)
	AttachReceipt(ctx context.Context, actorID, id int64, path, fileHash string) error
}

// ExpenseHandler handles operating-expense routes. All routes require a
// staff or admin session.
type ExpenseHandler struct {
	svc    expenseSvc
	store  receiptStore
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc expenseSvc, store receiptStore, tokens *identity.TokenIssuer, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{svc: svc, store: store, tokens: tokens, logger: logger}
}

// Register mounts the expense routes on the given router group.
func (h *ExpenseHandler) Register(rg *gin.RouterGroup) {
	e := rg.Group("/expenses", identity.RequireRole(h.tokens, users.RoleAdmin, users.RoleStaff))
	{
		e.POST("", h.CreateExpense)
		e.GET("", h.ListExpenses)
		e.GET("/categories", h.Categories)
		e.GET("/:id", h.GetExpense)
		e.POST("/:id/receipt", h.AttachReceipt)
	}
}

// CreateExpense handles POST /expenses.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req model.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff := identity.ActorRef(c)
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	e, err := h.svc.Create(c.Request.Context(), *staff, &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("create expense", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record expense"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": e})
}

// ListExpenses handles GET /expenses. Accepts start, end, category, limit
// and offset query parameters.
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	f := model.ExpenseFilter{Category: c.Query("category")}

	var err error
	if f.Start, err = parseTimeParam(c.Query("start"), false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	if f.End, err = parseTimeParam(c.Query("end"), true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list expenses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list expenses"})
		return
	}
	if list == nil {
		list = []model.Expense{}
	}

	c.JSON(http.StatusOK, gin.H{"expenses": list, "count": len(list)})
}

// Categories handles GET /expenses/categories.
func (h *ExpenseHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": model.ExpenseCategories})
}

// GetExpense handles GET /expenses/:id.
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense ID"})
		return
	}

	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}
		h.logger.Error("get expense", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get expense"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": e})
}

// AttachReceipt handles POST /expenses/:id/receipt, a multipart upload with
// the file in the "file" field.
func (h *ExpenseHandler) AttachReceipt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense ID"})
		return
	}

	staff := identity.ActorRef(c)
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	path, hash, ok := saveUploadedReceipt(c, h.store)
	if !ok {
		return
	}

	if err := h.svc.AttachReceipt(c.Request.Context(), *staff, id, path, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}
		h.logger.Error("attach expense receipt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach receipt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt_path": path, "receipt_hash": hash})
}
