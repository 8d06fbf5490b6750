package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mexonis/quickchat-backend/internal/store"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st, err := store.NewSQLite(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewProvider(st, []byte("test-secret"), time.Hour)
}

func TestRegisterSignInTokenRoundTrip(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	uid, token, err := p.Register(ctx, "Alice@Example.COM", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if uid == "" || token == "" {
		t.Fatalf("empty uid or token")
	}

	got, err := p.UserIDFromToken(token)
	if err != nil || got != uid {
		t.Fatalf("token resolves to %q (%v), want %q", got, err, uid)
	}

	// Sign-in works with a differently-cased email.
	uid2, token2, err := p.SignIn(ctx, "alice@example.com", "hunter22")
	if err != nil || uid2 != uid {
		t.Fatalf("sign in: %v uid=%q", err, uid2)
	}
	if got, err := p.UserIDFromToken(token2); err != nil || got != uid {
		t.Fatalf("second token: %v %q", err, got)
	}
}

func TestRegister_Failures(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	if _, _, err := p.Register(ctx, "a@x.io", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password: %v", err)
	}
	if _, _, err := p.Register(ctx, "   ", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank email: %v", err)
	}

	if _, _, err := p.Register(ctx, "a@x.io", "longenough"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := p.Register(ctx, "A@X.IO", "different1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	if _, _, err := p.Register(ctx, "a@x.io", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Unknown email and wrong password yield the same error.
	if _, _, err := p.SignIn(ctx, "nobody@x.io", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
	if _, _, err := p.SignIn(ctx, "a@x.io", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
}

func TestUserIDFromToken_Failures(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	if _, err := p.UserIDFromToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: %v", err)
	}

	// A token signed with a different secret is rejected.
	other := *p
	other.Secret = []byte("other-secret")
	_, token, err := other.Register(ctx, "b@x.io", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := p.UserIDFromToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong signature: %v", err)
	}
}

func TestUserIDFromToken_Expiry(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	issued := time.Now()
	p.Now = func() time.Time { return issued }
	_, token, err := p.Register(ctx, "a@x.io", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Still valid just before the TTL elapses.
	p.Now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := p.UserIDFromToken(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	// Expired once the clock passes IssuedAt + TTL.
	p.Now = func() time.Time { return issued.Add(61 * time.Minute) }
	if _, err := p.UserIDFromToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}
