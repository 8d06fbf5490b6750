// Package httpapi wires the HTTP transport (Gin) to the chat services,
// middleware, and route handlers. It centralizes cross-cutting concerns
// such as tracing, correlation IDs, logging, panic recovery, metrics,
// CORS, security headers, rate limiting, and bearer-token auth.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mexonis/quickchat-backend/internal/auth"
	"github.com/mexonis/quickchat-backend/internal/blob"
	"github.com/mexonis/quickchat-backend/internal/config"
	"github.com/mexonis/quickchat-backend/internal/http/handlers"
	"github.com/mexonis/quickchat-backend/internal/http/middleware"
	"github.com/mexonis/quickchat-backend/internal/services"
	"github.com/mexonis/quickchat-backend/internal/store"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine. It configures observability (tracing, metrics), rate
// limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
//  9. Bearer auth on the protected group only
func RegisterRoutes(r *gin.Engine, st store.Store, provider *auth.Provider, blobs blob.Store, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit. Generous because avatars and inline image
	// messages travel in request bodies; handlers enforce tighter caps.
	r.Use(limitBody(16 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// NoStore because every authenticated response is per-user data.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Locally stored blobs are served straight from disk.
	if cfg.Blob.Driver == "fs" {
		r.Static(cfg.Blob.FSBaseURL, cfg.Blob.FSDir)
	}

	// Dependency injection: services ← store/blobs/provider
	convSvc := services.NewConversationService(st)
	msgSvc := services.NewMessageService(st)
	chatSvc := services.NewChatService(msgSvc, convSvc)
	userSvc := services.NewUserService(st, blobs)
	directory := services.NewDirectory(st)
	h := handlers.New(provider, userSvc, convSvc, msgSvc, chatSvc, directory, blobs)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
	}

	authed := api.Group("", middleware.RequireAuth(provider))
	{
		// Profiles
		authed.GET("/me", h.Me)
		authed.PUT("/me/avatar", h.UploadAvatar)
		authed.GET("/users", h.ListUsers)

		// Conversations
		authed.POST("/conversations", h.CreateConversation)
		authed.GET("/conversations", h.ListConversations)
		authed.GET("/conversations/stream", h.StreamConversations)
		authed.GET("/conversations/:id", h.GetConversation)
		authed.POST("/conversations/:id/read", h.MarkConversationRead)

		// Messages
		authed.GET("/conversations/:id/messages", h.ListMessages)
		authed.POST("/conversations/:id/messages", h.SendMessage)
		authed.POST("/conversations/:id/messages/read", h.MarkMessagesRead)
		authed.GET("/conversations/:id/messages/stream", h.StreamMessages)
	}
}

// limitBody returns a Gin middleware that caps the request body size for
// all endpoints to maxBytes using http.MaxBytesReader. Requests exceeding
// the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
