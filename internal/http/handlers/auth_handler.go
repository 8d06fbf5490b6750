// Auth HTTP handlers.
//
// This file exposes the identity endpoints:
//   - POST /auth/register  (create account + profile, returns a token)
//   - POST /auth/login     (verify credentials, returns a token)
//
// Registration stores the user profile document right after the identity
// provider assigns the id, so the new account is immediately visible in
// contacts and search.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mexonis/quickchat-backend/internal/auth"
	"github.com/mexonis/quickchat-backend/internal/domain"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the JSON payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued bearer token and the account's profile.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates an account, stores its profile document, and returns a
// signed bearer token.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email and password required")
		return
	}

	ctx := c.Request.Context()
	uid, token, err := h.auth.Register(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		return
	case errors.Is(err, auth.ErrWeakPassword):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password too short")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	u := &domain.User{
		ID:    uid,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if err := h.users.CreateProfile(ctx, u); err != nil {
		// The account exists but the profile write failed; the client can
		// retry login and the profile stays absent until support fixes it.
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "profile creation failed")
		return
	}

	ok(c, http.StatusCreated, AuthResponse{Token: token, User: u})
}

// Login verifies credentials and returns a fresh bearer token with the
// account's profile.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	ctx := c.Request.Context()
	uid, token, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		// One code for unknown email and wrong password alike.
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
		return
	}

	u, err := h.users.Profile(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "profile lookup failed")
		return
	}
	ok(c, http.StatusOK, AuthResponse{Token: token, User: u})
}
