package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/reports"
	"github.com/hydrohub/hydrohub/internal/users"
)

// reportSvc is the interface expected by ReportHandler, satisfied by
// *reports.ReportService.
type reportSvc interface {
	Sales(ctx context.Context, start, end time.Time) (*reports.SalesSummary, error)
	ExpenseReport(ctx context.Context, start, end time.Time) (*reports.ExpenseSummary, error)
	ProfitLossReport(ctx context.Context, start, end time.Time) (*reports.ProfitLoss, error)
	Inventory(ctx context.Context) (*reports.InventoryReport, error)
	StaffReport(ctx context.Context, start, end time.Time) (*reports.StaffPerformance, error)
	DailySales(ctx context.Context, days int) ([]reports.DailySalesPoint, error)
}

// ReportHandler serves the business reports. Reports are visible to every
// authenticated account, including public read-only ones; the staff
// performance report is admin-only.
type ReportHandler struct {
	svc    reportSvc
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc reportSvc, tokens *identity.TokenIssuer, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the report routes on the given router group.
func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	r := rg.Group("/reports", identity.RequireToken(h.tokens))
	{
		r.GET("/sales", h.Sales)
		r.GET("/expenses", h.Expenses)
		r.GET("/profit-loss", h.ProfitLoss)
		r.GET("/inventory", h.Inventory)
		r.GET("/daily", h.Daily)
		r.GET("/staff", identity.RequireRole(h.tokens, users.RoleAdmin), h.Staff)
	}
}

// Sales handles GET /reports/sales.
func (h *ReportHandler) Sales(c *gin.Context) {
	start, end, ok := reportRange(c)
	if !ok {
		return
	}

	summary, err := h.svc.Sales(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("sales report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Expenses handles GET /reports/expenses.
func (h *ReportHandler) Expenses(c *gin.Context) {
	start, end, ok := reportRange(c)
	if !ok {
		return
	}

	summary, err := h.svc.ExpenseReport(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("expense report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ProfitLoss handles GET /reports/profit-loss.
func (h *ReportHandler) ProfitLoss(c *gin.Context) {
	start, end, ok := reportRange(c)
	if !ok {
		return
	}

	pl, err := h.svc.ProfitLossReport(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("profit loss report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, pl)
}

// Inventory handles GET /reports/inventory.
func (h *ReportHandler) Inventory(c *gin.Context) {
	report, err := h.svc.Inventory(c.Request.Context())
	if err != nil {
		h.logger.Error("inventory report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Staff handles GET /reports/staff.
func (h *ReportHandler) Staff(c *gin.Context) {
	start, end, ok := reportRange(c)
	if !ok {
		return
	}

	report, err := h.svc.StaffReport(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("staff report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Daily handles GET /reports/daily, the trailing daily series the
// dashboard charts from. days defaults to 7.
func (h *ReportHandler) Daily(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	series, err := h.svc.DailySales(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("daily sales report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": series, "count": len(series)})
}

// reportRange parses the optional start/end query parameters, defaulting
// to the last 30 days. On bad input it writes the error response and
// returns ok=false.
func reportRange(c *gin.Context) (start, end time.Time, ok bool) {
	var err error
	if start, err = parseTimeParam(c.Query("start"), false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return start, end, false
	}
	if end, err = parseTimeParam(c.Query("end"), true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return start, end, false
	}

	if end.IsZero() {
		now := time.Now()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			Add(24*time.Hour - time.Nanosecond)
	}
	if start.IsZero() {
		start = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).
			AddDate(0, 0, -29)
	}
	return start, end, true
}
