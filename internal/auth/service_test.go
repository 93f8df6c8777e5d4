package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/lostfound/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	for _, email := range []string{"", "not-an-email", "Alice <alice@campus.edu>"} {
		if _, err := svc.Register(ctx, email, "password123", ""); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "abc@campus.edu", "12345", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, " Alice@Campus.edu ", "password123", " Alice Smith ")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("expected non-empty token")
	}
	if sess.User.Email != "alice@campus.edu" || sess.User.FullName != "Alice Smith" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}

	// Should collide because the stored email is normalized.
	if _, err := svc.Register(ctx, "alice@campus.edu", "password123", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_IssuesValidToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "bob@campus.edu", "password123", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "bob@campus.edu", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@campus.edu", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	sess, err := svc.Login(ctx, "BOB@campus.edu", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.ValidateToken(sess.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Email != "bob@campus.edu" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
