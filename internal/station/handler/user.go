package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/identity"
	"github.com/hydrohub/hydrohub/internal/users"
)

// userSvc is the interface expected by UserHandler, satisfied by
// *users.UserService.
type userSvc interface {
	Create(ctx context.Context, actorRef *int64, username, password, role string) (*users.User, error)
	List(ctx context.Context) ([]users.User, error)
	UpdatePassword(ctx context.Context, actorRef *int64, userID int64, newPassword string) error
	Delete(ctx context.Context, actorRef *int64, userID int64) error
}

// UserHandler handles account management routes. Listing, creating and
// deleting accounts is admin-only; password changes are allowed for the
// account holder as well.
type UserHandler struct {
	svc    userSvc
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc userSvc, tokens *identity.TokenIssuer, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the user routes on the given router group.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/users")
	{
		admin := identity.RequireRole(h.tokens, users.RoleAdmin)
		u.GET("", admin, h.ListUsers)
		u.POST("", admin, h.CreateUser)
		u.DELETE("/:id", admin, h.DeleteUser)
		u.POST("/:id/password", identity.RequireToken(h.tokens), h.UpdatePassword)
	}
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type updatePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	if list == nil {
		list = []users.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Create(c.Request.Context(), identity.ActorRef(c), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		// Validation failures carry user-facing messages.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// DeleteUser handles DELETE /users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), identity.ActorRef(c), id); err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, users.ErrUserReferenced):
			c.JSON(http.StatusConflict, gin.H{"error": "user has recorded transactions and cannot be deleted"})
		default:
			// The last-admin guard and similar business refusals surface
			// as plain errors with safe messages.
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// UpdatePassword handles POST /users/:id/password. Allowed for admins and
// for the account holder changing their own password.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if claims.Role != users.RoleAdmin && claims.UserID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot change another user's password"})
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.UpdatePassword(c.Request.Context(), identity.ActorRef(c), id, req.Password); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
