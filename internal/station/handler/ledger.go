package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/users"
)

// LedgerHandler exposes read-only HTTP endpoints for the audit chain. All
// routes are admin-only: the chain contains every business event, including
// account management.
type LedgerHandler struct {
	chain  ledger.Ledger
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(chain ledger.Ledger, tokens *identity.TokenIssuer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{chain: chain, tokens: tokens, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger", identity.RequireRole(h.tokens, users.RoleAdmin))
	{
		l.GET("", h.ListEntries)
		l.GET("/entries/:seq", h.GetEntry)
		l.GET("/verify", h.Verify)
		l.GET("/stats", h.Stats)
		l.GET("/proof", h.ExportProof)
	}
}

// ListEntries handles GET /ledger and returns entries newest first. The
// start/end parameters compare against the stored timestamp strings, both
// bounds inclusive.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	f := ledger.Filter{
		ActionTag: c.Query("action_tag"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
	}
	if v := c.Query("actor_ref"); v != "" {
		actor, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "actor_ref must be an integer"})
			return
		}
		f.ActorRef = &actor
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	entries, err := h.chain.Entries(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list ledger entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetEntry handles GET /ledger/entries/:seq and returns a single entry.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil || seq < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be a positive integer"})
		return
	}

	entry, err := h.chain.Get(c.Request.Context(), seq)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		h.logger.Error("get ledger entry", zap.Int64("sequence", seq), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Verify handles GET /ledger/verify. It recomputes every digest and reports
// all discrepancies. A 200 with intact=false means the chain has been
// altered; the HTTP status stays 200 because the check itself succeeded.
func (h *LedgerHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	found, err := h.chain.Verify(ctx)
	if err != nil {
		h.logger.Error("ledger verification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed to run"})
		return
	}
	checked, err := h.chain.Len(ctx)
	if err != nil {
		h.logger.Error("ledger length", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	if len(found) > 0 {
		h.logger.Warn("ledger integrity check failed",
			zap.Int("discrepancies", len(found)),
		)
	}
	c.JSON(http.StatusOK, gin.H{
		"intact":          len(found) == 0,
		"entries_checked": checked,
		"discrepancies":   found,
	})
}

// Stats handles GET /ledger/stats.
func (h *LedgerHandler) Stats(c *gin.Context) {
	stats, err := h.chain.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportProof handles GET /ledger/proof and returns the verifiable proof
// document for the optional start/end timestamp range.
func (h *LedgerHandler) ExportProof(c *gin.Context) {
	proof, err := h.chain.ExportProof(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		h.logger.Error("export ledger proof", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export proof"})
		return
	}
	c.JSON(http.StatusOK, proof)
}
