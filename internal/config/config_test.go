package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "chat.db")

	// Auth
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "12h")

	// Blob
	t.Setenv("BLOB_DRIVER", "fs")
	t.Setenv("BLOB_FS_DIR", "tmp/blobs")
	t.Setenv("BLOB_FS_BASE_URL", "/static")

	// Rate limiting (invalids fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging + base path
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/base path unexpected: %+v", cfg)
	}

	// App + auth
	if cfg.DBPath != "chat.db" {
		t.Fatalf("DBPath unexpected: %q", cfg.DBPath)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("auth fields unexpected: %+v", cfg.Auth)
	}

	// Blob
	if cfg.Blob.Driver != "fs" || cfg.Blob.FSDir != "tmp/blobs" || cfg.Blob.FSBaseURL != "/static" {
		t.Fatalf("blob fields unexpected: %+v", cfg.Blob)
	}

	// Rate limiting fell back to defaults
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fields unexpected: rps=%v burst=%v", cfg.RateRPS, cfg.RateBurst)
	}

	// CORS trimmed and filtered
	wantOrigins := []string{"https://a.com", "http://b"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, wantOrigins) {
		t.Fatalf("origins unexpected: %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security fields unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure ||
		cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validation failures ---

func TestLoad_Failures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}, "LOG_LEVEL"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts"},
		{"bad header bytes", map[string]string{"MAX_HEADER_BYTES": "-1"}, "MAX_HEADER_BYTES"},
		{"missing secret", map[string]string{"JWT_SECRET": " "}, "JWT_SECRET"},
		{"zero token ttl", map[string]string{"TOKEN_TTL": "0s"}, "TOKEN_TTL"},
		{"bad blob driver", map[string]string{"BLOB_DRIVER": "gcs"}, "BLOB_DRIVER"},
		{"s3 without bucket", map[string]string{"BLOB_DRIVER": "s3"}, "BLOB_S3_BUCKET"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret") // valid baseline
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// --- helpers ---

func TestHelpers(t *testing.T) {
	t.Setenv("X_STR", "val")
	if getenv("X_STR", "d") != "val" || getenv("X_MISSING", "d") != "d" {
		t.Fatalf("getenv")
	}

	t.Setenv("X_INT", "7")
	if getint("X_INT", 1) != 7 || getint("X_MISSING", 1) != 1 {
		t.Fatalf("getint")
	}

	t.Setenv("X_FLOAT", "2.5")
	if getfloat("X_FLOAT", 1) != 2.5 || getfloat("X_MISSING", 1) != 1 {
		t.Fatalf("getfloat")
	}

	t.Setenv("X_BOOL", "off")
	if getbool("X_BOOL", true) || !getbool("X_MISSING", true) {
		t.Fatalf("getbool")
	}

	t.Setenv("X_DUR", "90s")
	if getdur("X_DUR", time.Second) != 90*time.Second || getdur("X_MISSING", time.Second) != time.Second {
		t.Fatalf("getdur")
	}

	if got := splitCSV(" a ,, b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("splitCSV: %v", got)
	}

	if normalizeBasePath("") != "/" || normalizeBasePath("v1/") != "/v1" || normalizeBasePath("/api/") != "/api" {
		t.Fatalf("normalizeBasePath")
	}
}
