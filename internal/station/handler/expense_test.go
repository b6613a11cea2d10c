package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/station/handler"
	"github.com/hydrohub/hydrohub/internal/station/model"
	"github.com/hydrohub/hydrohub/internal/users"
)

// ── Stub expense service ──────────────────────────────────────────────────

type stubExpenseSvc struct {
	created    *model.Expense
	list       []model.Expense
	listFilter model.ExpenseFilter
	receiptErr error
}

func (s *stubExpenseSvc) Create(_ context.Context, staffID int64, req *model.CreateExpenseRequest) (*model.Expense, error) {
	e, err := req.Validate()
	if err != nil {
		return nil, err
	}
	e.ID = 1
	e.StaffID = staffID
	s.created = e
	return e, nil
}

func (s *stubExpenseSvc) Get(_ context.Context, id int64) (*model.Expense, error) {
	return &model.Expense{ID: id, Category: "Filters", Amount: 1200.50}, nil
}

func (s *stubExpenseSvc) List(_ context.Context, f model.ExpenseFilter) ([]model.Expense, error) {
	s.listFilter = f
	return s.list, nil
}

func (s *stubExpenseSvc) AttachReceipt(_ context.Context, _, _ int64, _, _ string) error {
	return s.receiptErr
}

// ── Test setup ────────────────────────────────────────────────────────────

func setupExpenseRouter(t *testing.T, svc *stubExpenseSvc) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := testTokens(t)
	h := handler.NewExpenseHandler(svc, &stubReceiptStore{}, tokens, zap.NewNop())

	r := gin.New()
	h.Register(r.Group("/api/v1"))

	tok, err := tokens.Issue(7, "maria", users.RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return r, tok
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestCreateExpense_201(t *testing.T) {
	svc := &stubExpenseSvc{}
	router, tok := setupExpenseRouter(t, svc)

	body := `{"category":"Filters","amount":1200.50,"vendor":"AquaParts"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.created == nil || svc.created.StaffID != 7 {
		t.Fatalf("expected staff 7 on created expense, got %+v", svc.created)
	}
}

func TestCreateExpense_400_unknownCategory(t *testing.T) {
	router, tok := setupExpenseRouter(t, &stubExpenseSvc{})

	body := `{"category":"Snacks","amount":50}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "category") {
		t.Errorf("error should name the category field: %s", w.Body.String())
	}
}

func TestListExpenses_200_categoryFilter(t *testing.T) {
	svc := &stubExpenseSvc{list: []model.Expense{{ID: 1, Category: "Filters"}}}
	router, tok := setupExpenseRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses?category=Filters", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.listFilter.Category != "Filters" {
		t.Errorf("category filter = %q, want Filters", svc.listFilter.Category)
	}
}

func TestExpenseCategories_200(t *testing.T) {
	router, tok := setupExpenseRouter(t, &stubExpenseSvc{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses/categories", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Categories) != len(model.ExpenseCategories) {
		t.Errorf("got %d categories, want %d", len(resp.Categories), len(model.ExpenseCategories))
	}
}

func TestExpenseRoutes_403_publicRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := testTokens(t)
	h := handler.NewExpenseHandler(&stubExpenseSvc{}, &stubReceiptStore{}, tokens, zap.NewNop())
	r := gin.New()
	h.Register(r.Group("/api/v1"))

	tok, _ := tokens.Issue(3, "viewer", users.RolePublic)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for public role, got %d", w.Code)
	}
}
