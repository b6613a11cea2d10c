package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

// userRepo is the storage interface consumed by UserService.
type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByOAuth(ctx context.Context, provider, providerID string) (*User, error)
	LinkOAuth(ctx context.Context, userID int64, provider, providerID string) error
	List(ctx context.Context) ([]User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SetLastLogin(ctx context.Context, id int64, when time.Time) error
	Delete(ctx context.Context, id int64) error
}

// auditLog is the slice of the ledger the service records account events to.
type auditLog interface {
	Append(ctx context.Context, in ledger.AppendInput) (*ledger.Entry, error)
}

// UserService implements business logic for account management. Mutations
// are recorded in the audit chain; a failed audit append is logged but does
// not roll back the account change, matching how the rest of the back office
// treats account bookkeeping.
type UserService struct {
	repo   userRepo
	audit  auditLog
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userRepo, audit auditLog, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, audit: audit, logger: logger}
}

// Create adds a new account. Role defaults to staff when empty. actorRef
// identifies the administrator performing the action and goes into the audit
// entry.
func (s *UserService) Create(ctx context.Context, actorRef *int64, username, password, role string) (*User, error) {
	username, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleStaff
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: hash, Role: role}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recordAction(ctx, actorRef, "create_user", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"role":     u.Role,
	})
	return u, nil
}

// Authenticate verifies username/password credentials and returns the user
// on success. The error message does not reveal whether the username exists.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if u.PasswordHash == "" {
		return nil, fmt.Errorf("account uses OAuth sign-in; password not set")
	}
	if !verifyPassword(password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now().UTC()
	if err := s.repo.SetLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("record last login", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	u.LastLogin = &now
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdatePassword sets a new password for the given account.
func (s *UserService) UpdatePassword(ctx context.Context, actorRef *int64, userID int64, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	s.recordAction(ctx, actorRef, "update_password", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
	})
	return nil
}

// Delete removes an account. The last remaining admin cannot be deleted.
// The user's past ledger entries keep their actor reference; the chain is
// never rewritten.
func (s *UserService) Delete(ctx context.Context, actorRef *int64, userID int64) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if u.Role == RoleAdmin {
		admins, err := s.repo.CountByRole(ctx, RoleAdmin)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return fmt.Errorf("cannot delete the last admin user")
		}
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.recordAction(ctx, actorRef, "delete_user", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"role":     u.Role,
	})
	return nil
}

// GetOrCreateFromOAuth retrieves the user linked to the OAuth identity, or
// creates a new staff account. Returns the user and true if newly created.
// OAuth accounts have no password; they can only sign in via the provider.
func (s *UserService) GetOrCreateFromOAuth(ctx context.Context, provider, providerID, email, displayName string) (*User, bool, error) {
	u, err := s.repo.GetByOAuth(ctx, provider, providerID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup oauth user: %w", err)
	}

	username, err := s.generateUniqueUsername(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("generate username: %w", err)
	}

	u = &User{Username: username, Role: RoleStaff}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create oauth user: %w", err)
	}
	if err := s.repo.LinkOAuth(ctx, u.ID, provider, providerID); err != nil {
		s.logger.Warn("link oauth after create", zap.Error(err))
	}

	s.recordAction(ctx, nil, "oauth_signup", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"provider": provider,
	})
	return u, true, nil
}

// EnsureDefaultAdmin creates the bootstrap admin account when no admin
// exists. password defaults to "admin123" when empty; deployments override
// it via configuration.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, password string) error {
	admins, err := s.repo.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}

	if password == "" {
		password = "admin123"
	}
	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: "admin", PasswordHash: hash, Role: RoleAdmin}
	if err := s.repo.Create(ctx, u); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	s.logger.Warn("default admin account created; change the password immediately",
		zap.String("username", u.Username),
	)
	if _, err := s.audit.Append(ctx, ledger.SystemEvent("default_admin_created", map[string]any{
		"username": u.Username,
	})); err != nil {
		s.logger.Warn("audit default admin creation", zap.Error(err))
	}
	return nil
}

// recordAction appends a user_action audit entry; failures are logged, not
// returned.
func (s *UserService) recordAction(ctx context.Context, actorRef *int64, action string, details map[string]any) {
	if _, err := s.audit.Append(ctx, ledger.UserAction(actorRef, action, details)); err != nil {
		s.logger.Warn("audit user action",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// generateUniqueUsername derives a username from the email local part and
// appends a numeric suffix if taken.
func (s *UserService) generateUniqueUsername(ctx context.Context, email string) (string, error) {
	base := slugifyEmail(email)
	if len(base) < 3 {
		base = "user"
	}

	if _, err := s.repo.GetByUsername(ctx, base); errors.Is(err, ErrNotFound) {
		return base, nil
	}
	for i := 2; i <= 9999; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if _, err := s.repo.GetByUsername(ctx, candidate); errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate unique username for %q", email)
}

// slugifyEmail converts "alice@example.com" to "alice", keeping only the
// characters usernames allow.
func slugifyEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	result := b.String()
	if len(result) > 30 {
		result = result[:30]
	}
	return result
}

// hashPassword hashes with bcrypt. bcrypt reads at most 72 bytes, so longer
// passwords are truncated first rather than rejected.
func hashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}
