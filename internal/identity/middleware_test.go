package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hydrohub/hydrohub/internal/identity"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *identity.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := newTestTokenIssuer(t)

	r := gin.New()
	r.GET("/any", identity.RequireToken(tokens), func(c *gin.Context) {
		claims := identity.ClaimsFromCtx(c)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	r.GET("/admin", identity.RequireRole(tokens, "admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/write", identity.RequireRole(tokens, "admin", "staff"), func(c *gin.Context) {
		ref := identity.ActorRef(c)
		c.JSON(http.StatusOK, gin.H{"actor": ref})
	})
	return r, tokens
}

func doGet(t *testing.T, router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireToken_missingHeader(t *testing.T) {
	router, _ := setupAuthRouter(t)

	if w := doGet(t, router, "/any", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireToken_invalidToken(t *testing.T) {
	router, _ := setupAuthRouter(t)

	if w := doGet(t, router, "/any", "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireToken_validToken(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	token, err := tokens.Issue(7, "maria", "staff")
	if err != nil {
		t.Fatal(err)
	}
	w := doGet(t, router, "/any", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"username":"maria"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestRequireRole_deniesWrongRole(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	token, err := tokens.Issue(7, "maria", "staff")
	if err != nil {
		t.Fatal(err)
	}
	if w := doGet(t, router, "/admin", token); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for staff on admin route, got %d", w.Code)
	}
}

func TestRequireRole_allowsListedRoles(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	for _, role := range []string{"admin", "staff"} {
		token, err := tokens.Issue(7, "u", role)
		if err != nil {
			t.Fatal(err)
		}
		if w := doGet(t, router, "/write", token); w.Code != http.StatusOK {
			t.Errorf("role %s: expected 200, got %d", role, w.Code)
		}
	}

	token, err := tokens.Issue(7, "viewer", "public")
	if err != nil {
		t.Fatal(err)
	}
	if w := doGet(t, router, "/write", token); w.Code != http.StatusForbidden {
		t.Errorf("role public: expected 403, got %d", w.Code)
	}
}

func TestActorRef_carriesUserID(t *testing.T) {
	router, tokens := setupAuthRouter(t)

	token, err := tokens.Issue(31, "maria", "admin")
	if err != nil {
		t.Fatal(err)
	}
	w := doGet(t, router, "/write", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"actor":31}` {
		t.Errorf("unexpected body: %s", body)
	}
}
