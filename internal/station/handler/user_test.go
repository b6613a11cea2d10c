package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/station/handler"
	"github.com/hydrohub/hydrohub/internal/users"
)

// ── Stub user admin service ───────────────────────────────────────────────

type stubUserAdminSvc struct {
	createErr     error
	deleteErr     error
	passwordErr   error
	passwordCalls []int64
}

func (s *stubUserAdminSvc) Create(_ context.Context, _ *int64, username, _, role string) (*users.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if role == "" {
		role = users.RoleStaff
	}
	return &users.User{ID: 2, Username: username, Role: role}, nil
}

func (s *stubUserAdminSvc) List(_ context.Context) ([]users.User, error) {
	return []users.User{
		{ID: 1, Username: "admin", Role: users.RoleAdmin},
		{ID: 2, Username: "maria", Role: users.RoleStaff},
	}, nil
}

func (s *stubUserAdminSvc) UpdatePassword(_ context.Context, _ *int64, userID int64, _ string) error {
	if s.passwordErr != nil {
		return s.passwordErr
	}
	s.passwordCalls = append(s.passwordCalls, userID)
	return nil
}

func (s *stubUserAdminSvc) Delete(_ context.Context, _ *int64, _ int64) error {
	return s.deleteErr
}

// ── Test setup ────────────────────────────────────────────────────────────

func setupUserRouter(t *testing.T, svc *stubUserAdminSvc) (*gin.Engine, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := testTokens(t)
	h := handler.NewUserHandler(svc, tokens, zap.NewNop())

	r := gin.New()
	h.Register(r.Group("/api/v1"))

	adminTok, err := tokens.Issue(1, "admin", users.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	staffTok, err := tokens.Issue(2, "maria", users.RoleStaff)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return r, adminTok, staffTok
}

func userRequest(t *testing.T, router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestCreateUser_201(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{})

	body := `{"username":"newstaff","password":"secret123","role":"staff"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users", body, adminTok)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateUser_403_staffRole(t *testing.T) {
	router, _, staffTok := setupUserRouter(t, &stubUserAdminSvc{})

	body := `{"username":"newstaff","password":"secret123"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users", body, staffTok)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCreateUser_409_duplicate(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{createErr: users.ErrDuplicateUsername})

	body := `{"username":"maria","password":"secret123"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users", body, adminTok)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListUsers_200(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{})

	w := userRequest(t, router, http.MethodGet, "/api/v1/users", "", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("expected 2 users: %s", w.Body.String())
	}
}

func TestUpdatePassword_200_self(t *testing.T) {
	svc := &stubUserAdminSvc{}
	router, _, staffTok := setupUserRouter(t, svc)

	body := `{"password":"newsecret123"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users/2/password", body, staffTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.passwordCalls) != 1 || svc.passwordCalls[0] != 2 {
		t.Errorf("password calls = %v, want [2]", svc.passwordCalls)
	}
}

func TestUpdatePassword_403_otherAccount(t *testing.T) {
	router, _, staffTok := setupUserRouter(t, &stubUserAdminSvc{})

	body := `{"password":"newsecret123"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users/1/password", body, staffTok)
	if w.Code != http.StatusForbidden {
		t.Fatalf("staff changing another account should be 403, got %d", w.Code)
	}
}

func TestUpdatePassword_200_adminForOther(t *testing.T) {
	svc := &stubUserAdminSvc{}
	router, adminTok, _ := setupUserRouter(t, svc)

	body := `{"password":"newsecret123"}`
	w := userRequest(t, router, http.MethodPost, "/api/v1/users/2/password", body, adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteUser_200(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{})

	w := userRequest(t, router, http.MethodDelete, "/api/v1/users/2", "", adminTok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteUser_404_unknown(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{deleteErr: users.ErrNotFound})

	w := userRequest(t, router, http.MethodDelete, "/api/v1/users/42", "", adminTok)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteUser_409_referenced(t *testing.T) {
	router, adminTok, _ := setupUserRouter(t, &stubUserAdminSvc{deleteErr: users.ErrUserReferenced})

	w := userRequest(t, router, http.MethodDelete, "/api/v1/users/2", "", adminTok)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}
