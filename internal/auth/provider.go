// Package auth implements the identity provider: email/password
// registration and sign-in backed by a credentials collection in the
// document store, with opaque bearer tokens (JWT, HS256) identifying the
// caller on subsequent requests. Sign-out is client-side token disposal;
// issued tokens simply expire.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/store"
)

// Authentication errors.
var (
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so responses do not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword is returned when the password is below the minimum
	// length.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidToken is returned for expired, malformed, or mis-signed
	// tokens.
	ErrInvalidToken = errors.New("invalid token")
)

const minPasswordLen = 6

// Claims carries the authenticated user id inside the JWT.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Provider issues and verifies identity tokens.
type Provider struct {
	// Store persists the credentials collection.
	Store store.Store
	// Secret signs tokens (HS256).
	Secret []byte
	// TokenTTL bounds token validity.
	TokenTTL time.Duration
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewProvider constructs a provider over st.
func NewProvider(st store.Store, secret []byte, ttl time.Duration) *Provider {
	return &Provider{Store: st, Secret: secret, TokenTTL: ttl}
}

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Register creates an account for email and returns the new user id with a
// signed token. The email must not already have credentials.
func (p *Provider) Register(ctx context.Context, email, password string) (string, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", "", ErrInvalidCredentials
	}
	if len(password) < minPasswordLen {
		return "", "", ErrWeakPassword
	}

	existing, err := p.lookup(ctx, email)
	if err != nil {
		return "", "", err
	}
	if existing != nil {
		return "", "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hash password: %w", err)
	}

	userID := uuid.NewString()
	fields := map[string]any{
		"id":           userID,
		"email":        email,
		"passwordHash": string(hash),
	}
	if err := p.Store.Upsert(ctx, domain.CollectionCredentials, userID, fields); err != nil {
		return "", "", fmt.Errorf("auth: store credentials: %w", err)
	}

	token, err := p.issue(userID)
	if err != nil {
		return "", "", err
	}
	return userID, token, nil
}

// SignIn verifies the password for email and returns the user id with a
// fresh token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, string, error) {
	cred, err := p.lookup(ctx, normalizeEmail(email))
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.hash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err := p.issue(cred.userID)
	if err != nil {
		return "", "", err
	}
	return cred.userID, token, nil
}

// UserIDFromToken resolves the caller's durable user id from a bearer
// token, the serverside analog of "current user id".
func (p *Provider) UserIDFromToken(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.Secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// issue signs a token for userID valid for TokenTTL.
func (p *Provider) issue(userID string) (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.TokenTTL)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(p.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// credential is the decoded shape of one credentials document.
type credential struct {
	userID string
	hash   string
}

// lookup finds credentials by email; nil when absent.
func (p *Provider) lookup(ctx context.Context, email string) (*credential, error) {
	docs, err := p.Store.Query(ctx, domain.CollectionCredentials,
		store.Where("email", store.OpEqual, email))
	if err != nil {
		return nil, fmt.Errorf("auth: lookup: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	fields := docs[0].Fields
	id, _ := fields["id"].(string)
	hash, _ := fields["passwordHash"].(string)
	if id == "" || hash == "" {
		return nil, ErrInvalidCredentials
	}
	return &credential{userID: id, hash: hash}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
