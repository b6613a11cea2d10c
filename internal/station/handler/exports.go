package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/users"
)

// csvExporter is the interface expected by ExportHandler, satisfied by
// *reports.Exporter.
type csvExporter interface {
	Transactions(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error)
	Expenses(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error)
	ProfitLoss(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error)
	Inventory(ctx context.Context, actorRef *int64) ([]byte, error)
	Ledger(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error)
}

// ExportHandler serves the CSV downloads. Exports are admin-only and each
// one is recorded in the audit chain by the exporter itself.
type ExportHandler struct {
	exporter csvExporter
	tokens   *identity.TokenIssuer
	logger   *zap.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exporter csvExporter, tokens *identity.TokenIssuer, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, tokens: tokens, logger: logger}
}

// Register mounts the export routes on the given router group.
func (h *ExportHandler) Register(rg *gin.RouterGroup) {
	e := rg.Group("/exports", identity.RequireRole(h.tokens, users.RoleAdmin))
	{
		e.GET("/:kind", h.Export)
	}
}

// Export handles GET /exports/:kind. The kind may carry a .csv suffix,
// e.g. /exports/transactions.csv.
func (h *ExportHandler) Export(c *gin.Context) {
	kind := strings.TrimSuffix(c.Param("kind"), ".csv")
	actor := identity.ActorRef(c)
	ctx := c.Request.Context()

	var start, end time.Time
	var err error
	if kind != "inventory" {
		if start, err = parseTimeParam(c.Query("start"), false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		if end, err = parseTimeParam(c.Query("end"), true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		// The ledger export treats missing bounds as unbounded; the others
		// default to the last 30 days.
		if kind != "ledger" {
			if end.IsZero() {
				now := time.Now()
				end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
					Add(24*time.Hour - time.Nanosecond)
			}
			if start.IsZero() {
				start = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).
					AddDate(0, 0, -29)
			}
		}
	}

	var out []byte
	switch kind {
	case "transactions":
		out, err = h.exporter.Transactions(ctx, actor, start, end)
	case "expenses":
		out, err = h.exporter.Expenses(ctx, actor, start, end)
	case "profit-loss":
		out, err = h.exporter.ProfitLoss(ctx, actor, start, end)
	case "inventory":
		out, err = h.exporter.Inventory(ctx, actor)
	case "ledger":
		out, err = h.exporter.Ledger(ctx, actor, start, end)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown export kind"})
		return
	}
	if err != nil {
		h.logger.Error("csv export", zap.String("kind", kind), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", kind, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
