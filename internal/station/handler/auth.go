package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/users"
)

// OAuthConfig holds OAuth client credentials for Google sign-in. Leaving
// ClientID empty disables the OAuth routes.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// authUserSvc is the interface expected by AuthHandler, satisfied by
// *users.UserService.
type authUserSvc interface {
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	GetOrCreateFromOAuth(ctx context.Context, provider, providerID, email, displayName string) (*users.User, bool, error)
}

// AuthHandler handles sign-in routes and the session introspection endpoint.
type AuthHandler struct {
	users       authUserSvc
	tokens      *identity.TokenIssuer
	oauthCfg    *oauth2.Config // nil = Google sign-in disabled
	frontendURL string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler. oauth may be zero-valued to disable
// Google sign-in.
func NewAuthHandler(userSvc authUserSvc, tokens *identity.TokenIssuer, oauth OAuthConfig, logger *zap.Logger) *AuthHandler {
	var cfg *oauth2.Config
	if oauth.ClientID != "" && oauth.ClientSecret != "" {
		cfg = &oauth2.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return &AuthHandler{
		users:       userSvc,
		tokens:      tokens,
		oauthCfg:    cfg,
		frontendURL: "http://localhost:3000",
		logger:      logger,
	}
}

// SetFrontendURL sets the base URL the OAuth callback redirects back to.
func (h *AuthHandler) SetFrontendURL(url string) {
	h.frontendURL = url
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.GET("/me", identity.RequireToken(h.tokens), h.Me)
		auth.GET("/oauth/google", h.OAuthRedirect)
		auth.GET("/oauth/google/callback", h.OAuthCallback)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login and authenticates with username/password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, err := h.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		h.logger.Error("issue session token after login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        u,
		"token":       tok,
		"permissions": users.PermissionsFor(u.Role),
	})
}

// Me handles GET /auth/me and returns the authenticated user and the
// permission map the UI renders from.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	u, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        u,
		"permissions": users.PermissionsFor(u.Role),
	})
}

// OAuthRedirect handles GET /auth/oauth/google and redirects to Google.
func (h *AuthHandler) OAuthRedirect(c *gin.Context) {
	if h.oauthCfg == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	state, err := h.tokens.IssueOAuthState("google")
	if err != nil {
		h.logger.Error("generate oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate OAuth state"})
		return
	}

	c.Redirect(http.StatusFound, h.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// OAuthCallback handles GET /auth/oauth/google/callback.
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	if h.oauthCfg == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	// State check prevents CSRF: only states we issued are accepted.
	if provider, err := h.tokens.VerifyOAuthState(c.Query("state")); err != nil || provider != "google" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid OAuth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		errMsg := c.Query("error_description")
		if errMsg == "" {
			errMsg = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth authorization failed: " + errMsg})
		return
	}

	oauthToken, err := h.oauthCfg.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth code exchange failed"})
		return
	}

	providerID, email, name, err := fetchGoogleUserInfo(c.Request.Context(), oauthToken.AccessToken)
	if err != nil {
		h.logger.Error("fetch oauth user info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user info from provider"})
		return
	}

	u, _, err := h.users.GetOrCreateFromOAuth(c.Request.Context(), "google", providerID, email, name)
	if err != nil {
		h.logger.Error("get or create oauth user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process OAuth login"})
		return
	}

	tok, err := h.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		h.logger.Error("issue session token after oauth", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	// The token travels in the URL fragment, which browsers never send to
	// any server.
	c.Redirect(http.StatusFound, h.frontendURL+"/oauth/callback#token="+tok)
}

// fetchGoogleUserInfo calls Google's user-info API and returns
// (providerID, email, displayName).
func fetchGoogleUserInfo(ctx context.Context, accessToken string) (id, email, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", "", "", fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", "", "", fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", "", "", fmt.Errorf("parse userinfo: %w", err)
	}
	return info.ID, info.Email, info.Name, nil
}
