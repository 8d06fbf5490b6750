// Command server runs the chat backend: a document-store-backed
// conversation and message service with an HTTP API.
//
// Startup order: environment (.env in dev), configuration, logging, OTel
// tracing, document store, identity provider, blob store, router, then the
// HTTP server with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mexonis/quickchat-backend/internal/auth"
	"github.com/mexonis/quickchat-backend/internal/blob"
	"github.com/mexonis/quickchat-backend/internal/config"
	httpapi "github.com/mexonis/quickchat-backend/internal/http"
	"github.com/mexonis/quickchat-backend/internal/observability"
	"github.com/mexonis/quickchat-backend/internal/store"
	"github.com/mexonis/quickchat-backend/internal/sysutil"
)

func main() {
	// .env is a dev convenience; absence is not an error.
	if !sysutil.IsTruthy(os.Getenv("SKIP_DOTENV")) {
		_ = godotenv.Load()
	}

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open document store")
	}
	docs, err := store.NewSQLite(db)
	if err != nil {
		log.Fatal().Err(err).Msg("init document store")
	}

	provider := auth.NewProvider(docs, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	blobs, err := newBlobStore(cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Blob.Driver).Msg("init blob store")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, docs, provider, blobs, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newBlobStore selects the blob backend from config.
func newBlobStore(cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "s3":
		return blob.NewS3(context.Background(), blob.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBase,
		})
	default:
		return blob.NewFS(cfg.FSDir, cfg.FSBaseURL)
	}
}
