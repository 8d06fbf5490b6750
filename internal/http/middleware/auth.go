// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication. Every route behind
// RequireAuth() gets the caller's durable user id resolved from the
// Authorization header and stored in the Gin context, where handlers read
// it via UserID() and the rate limiter keys its buckets on it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey is the Gin context key carrying the authenticated user id.
const userIDKey = "userID"

// TokenVerifier resolves a bearer token to a user id. Implemented by the
// auth provider.
type TokenVerifier interface {
	UserIDFromToken(token string) (string, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// token and stores the resolved user id in the context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		userID, err := verifier.UserIDFromToken(token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireAuth, or "".
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	s, _ := v.(string)
	return s
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthorized",
		"message":    msg,
	})
}
