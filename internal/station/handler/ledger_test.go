package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/station/handler"
	"github.com/hydrohub/hydrohub/internal/users"
)

// ── Test setup ────────────────────────────────────────────────────────────

// seededChain returns a MemoryLedger with three entries: two refills by
// staff 7 and one expense by staff 8.
func seededChain(t *testing.T) *ledger.MemoryLedger {
	t.Helper()
	chain := ledger.NewMemoryLedger()
	staff7, staff8 := int64(7), int64(8)

	inputs := []ledger.AppendInput{
		ledger.RefillTransaction(&staff7, 1, 10, 250, map[string]any{"transaction_id": int64(1)}),
		ledger.RefillTransaction(&staff7, 2, 5, 125, map[string]any{"transaction_id": int64(2)}),
		ledger.Expense(&staff8, 1, "Filters", 1200.50, map[string]any{"expense_id": int64(1)}),
	}
	for _, in := range inputs {
		if _, err := chain.Append(context.Background(), in); err != nil {
			t.Fatalf("seed append: %v", err)
		}
	}
	return chain
}

func setupLedgerRouter(t *testing.T, chain ledger.Ledger) (*gin.Engine, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := testTokens(t)
	h := handler.NewLedgerHandler(chain, tokens, zap.NewNop())

	r := gin.New()
	h.Register(r.Group("/api/v1"))

	adminTok, err := tokens.Issue(1, "admin", users.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	staffTok, err := tokens.Issue(7, "maria", users.RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return r, adminTok, staffTok
}

func ledgerGet(t *testing.T, router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestListLedger_200_newestFirst(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entries []ledger.Entry `json:"entries"`
		Count   int            `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	if resp.Entries[0].Sequence != 3 {
		t.Errorf("first entry sequence = %d, want 3 (newest first)", resp.Entries[0].Sequence)
	}
}

func TestListLedger_filtersByActionTag(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger?action_tag=expense", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Entries []ledger.Entry `json:"entries"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(resp.Entries))
	}
	if resp.Entries[0].ActionTag != "expense" {
		t.Errorf("action tag = %q", resp.Entries[0].ActionTag)
	}
}

func TestListLedger_filtersByActor(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger?actor_ref=7", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Entries []ledger.Entry `json:"entries"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 2 {
		t.Fatalf("got %d entries for staff 7, want 2", len(resp.Entries))
	}
}

func TestListLedger_400_badActor(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger?actor_ref=abc", adminTok)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListLedger_403_staffRole(t *testing.T) {
	router, _, staffTok := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger", staffTok)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", w.Code)
	}
}

func TestListLedger_401_noToken(t *testing.T) {
	router, _, _ := setupLedgerRouter(t, seededChain(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetLedgerEntry_200(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger/entries/2", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var entry ledger.Entry
	json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Sequence != 2 {
		t.Errorf("sequence = %d, want 2", entry.Sequence)
	}
	if entry.Digest == "" || entry.PrevDigest == "" {
		t.Error("entry should include digest fields")
	}
}

func TestGetLedgerEntry_404(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger/entries/99", adminTok)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestVerifyLedger_200_intact(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger/verify", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["intact"] != true {
		t.Errorf("intact = %v, want true", resp["intact"])
	}
	if resp["entries_checked"] != float64(3) {
		t.Errorf("entries_checked = %v, want 3", resp["entries_checked"])
	}
}

func TestLedgerStats_200(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger/stats", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats ledger.Stats
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.TotalEntries != 3 {
		t.Errorf("total entries = %d, want 3", stats.TotalEntries)
	}
	if stats.ActionCounts["refill_transaction"] != 2 {
		t.Errorf("refill count = %d, want 2", stats.ActionCounts["refill_transaction"])
	}
}

func TestExportProof_200(t *testing.T) {
	router, adminTok, _ := setupLedgerRouter(t, seededChain(t))

	w := ledgerGet(t, router, "/api/v1/ledger/proof", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var proof ledger.Proof
	json.Unmarshal(w.Body.Bytes(), &proof)
	if proof.TotalEntries != 3 {
		t.Errorf("entry count = %d, want 3", proof.TotalEntries)
	}
	if len(proof.ProofHash) != 64 {
		t.Errorf("proof hash length = %d, want 64", len(proof.ProofHash))
	}
}
