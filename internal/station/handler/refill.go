package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/receipts"
	"github.com/hydrohub/hydrohub/internal/station/model"
	"github.com/hydrohub/hydrohub/internal/station/repository"
	"github.com/hydrohub/hydrohub/internal/station/service"
	"github.com/hydrohub/hydrohub/internal/users"
)

// refillSvc is the interface expected by RefillHandler, satisfied by
// *service.RefillService.
type refillSvc interface {
	Create(ctx context.Context, staffID int64, req *model.CreateRefillRequest) (*model.RefillTransaction, error)
	Get(ctx context.Context, id int64) (*model.RefillTransaction, error)
	List(ctx context.Context, f model.RefillFilter) ([]model.RefillTransaction, error)
	AttachReceipt(ctx context.Context, actorID, id int64, path, fileHash string) error
	Today(ctx context.Context) (*service.TodayStats, error)
}

// receiptStore stores uploaded receipt files. *receipts.Store satisfies
// this interface.
type receiptStore interface {
	Save(originalName string, content []byte) (path, hash string, err error)
}

// RefillHandler handles refill sale routes. All routes require a staff or
// admin session.
type RefillHandler struct {
	svc    refillSvc
	store  receiptStore
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewRefillHandler creates a new RefillHandler.
func NewRefillHandler(svc refillSvc, store receiptStore, tokens *identity.TokenIssuer, logger *zap.Logger) *RefillHandler {
	return &RefillHandler{svc: svc, store: store, tokens: tokens, logger: logger}
}

// Register mounts the refill routes on the given router group.
func (h *RefillHandler) Register(rg *gin.RouterGroup) {
	r := rg.Group("/refills", identity.RequireRole(h.tokens, users.RoleAdmin, users.RoleStaff))
	{
		r.POST("", h.CreateRefill)
		r.GET("", h.ListRefills)
		r.GET("/today", h.TodayStats)
		r.GET("/:id", h.GetRefill)
		r.POST("/:id/receipt", h.AttachReceipt)
	}
}

// CreateRefill handles POST /refills.
func (h *RefillHandler) CreateRefill(c *gin.Context) {
	var req model.CreateRefillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff := identity.ActorRef(c)
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), *staff, &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("create refill", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record refill"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": t})
}

// ListRefills handles GET /refills. start and end accept "2006-01-02"
// dates (the end date is inclusive) or RFC 3339 timestamps; staff_id
// narrows to one staff member.
func (h *RefillHandler) ListRefills(c *gin.Context) {
	f := model.RefillFilter{}

	var err error
	if f.Start, err = parseTimeParam(c.Query("start"), false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	if f.End, err = parseTimeParam(c.Query("end"), true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}
	if v := c.Query("staff_id"); v != "" {
		staffID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "staff_id must be an integer"})
			return
		}
		f.StaffID = &staffID
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list refills", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list refills"})
		return
	}
	if list == nil {
		list = []model.RefillTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{"transactions": list, "count": len(list)})
}

// GetRefill handles GET /refills/:id.
func (h *RefillHandler) GetRefill(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		h.logger.Error("get refill", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

// TodayStats handles GET /refills/today.
func (h *RefillHandler) TodayStats(c *gin.Context) {
	stats, err := h.svc.Today(c.Request.Context())
	if err != nil {
		h.logger.Error("today stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute today's stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AttachReceipt handles POST /refills/:id/receipt, a multipart upload with
// the file in the "file" field.
func (h *RefillHandler) AttachReceipt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
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
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		h.logger.Error("attach refill receipt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach receipt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt_path": path, "receipt_hash": hash})
}

// saveUploadedReceipt reads the "file" multipart field and stores it. On
// failure it writes the error response and returns ok=false.
func saveUploadedReceipt(c *gin.Context, store receiptStore) (path, hash string, ok bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", "", false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return "", "", false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return "", "", false
	}

	path, hash, err = store.Save(fileHeader.Filename, content)
	if err != nil {
		if errors.Is(err, receipts.ErrFileTooLarge) || errors.Is(err, receipts.ErrExtension) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store receipt"})
		return "", "", false
	}
	return path, hash, true
}

// parseTimeParam parses an optional query time. Bare dates cover the whole
// day: as an end bound the parsed instant is the last nanosecond of it.
func parseTimeParam(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
