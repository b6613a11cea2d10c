package identity_test

import (
	"strings"
	"testing"
	"time"

	"github.com/hydrohub/hydrohub/internal/identity"
)

func newTestTokenIssuer(t *testing.T) *identity.TokenIssuer {
	t.Helper()
	return identity.NewTokenIssuer([]byte("test-secret-0123456789"), "http://localhost:8080", time.Hour)
}

func TestTokenIssuer_Issue(t *testing.T) {
	ti := newTestTokenIssuer(t)

	token, err := ti.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
}

func TestTokenIssuer_Verify_valid(t *testing.T) {
	ti := newTestTokenIssuer(t)

	token, err := ti.Issue(42, "maria", "staff")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID: got %d, want 42", claims.UserID)
	}
	if claims.Username != "maria" {
		t.Errorf("Username: got %q, want %q", claims.Username, "maria")
	}
	if claims.Role != "staff" {
		t.Errorf("Role: got %q, want %q", claims.Role, "staff")
	}
	if claims.Subject != "maria" {
		t.Errorf("Subject: got %q, want %q", claims.Subject, "maria")
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	// 1-nanosecond TTL, expired by the time we verify.
	ti := identity.NewTokenIssuer([]byte("test-secret"), "http://localhost:8080", time.Nanosecond)

	token, err := ti.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestTokenIssuer_Verify_tamperedSignature(t *testing.T) {
	ti := newTestTokenIssuer(t)

	token, err := ti.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'a' {
		sig[mid] = 'b'
	} else {
		sig[mid] = 'a'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ti.Verify(tampered); err == nil {
		t.Error("expected error for tampered token, got nil")
	}
}

func TestTokenIssuer_Verify_wrongSecret(t *testing.T) {
	ti1 := identity.NewTokenIssuer([]byte("secret-one"), "http://localhost:8080", time.Hour)
	ti2 := identity.NewTokenIssuer([]byte("secret-two"), "http://localhost:8080", time.Hour)

	token, err := ti1.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti2.Verify(token); err == nil {
		t.Error("expected error for wrong secret, got nil")
	}
}

func TestTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	secret := []byte("shared-secret")
	ti1 := identity.NewTokenIssuer(secret, "http://station-a.local", time.Hour)
	ti2 := identity.NewTokenIssuer(secret, "http://station-b.local", time.Hour)

	token, err := ti1.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti2.Verify(token); err == nil {
		t.Error("expected error for wrong issuer, got nil")
	}
}

func TestTokenIssuer_oauthStateRoundTrip(t *testing.T) {
	ti := newTestTokenIssuer(t)

	state, err := ti.IssueOAuthState("google")
	if err != nil {
		t.Fatalf("IssueOAuthState() error: %v", err)
	}
	provider, err := ti.VerifyOAuthState(state)
	if err != nil {
		t.Fatalf("VerifyOAuthState() error: %v", err)
	}
	if provider != "google" {
		t.Errorf("provider: got %q, want %q", provider, "google")
	}
}

func TestTokenIssuer_oauthStateIsNotASession(t *testing.T) {
	ti := newTestTokenIssuer(t)

	state, err := ti.IssueOAuthState("google")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti.Verify(state); err == nil {
		t.Error("oauth state token must not verify as a session token")
	}

	session, err := ti.Issue(1, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti.VerifyOAuthState(session); err == nil {
		t.Error("session token must not verify as an oauth state token")
	}
}
