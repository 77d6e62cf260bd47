package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration: listen address, persistence,
// credentials, and provider mode. Domain policy knobs (attempt budgets,
// cooldowns, retention) live in internal/kyc/config.
type Server struct {
	Addr          string
	DatabaseURL   string // empty selects in-memory stores
	JWTSigningKey string
	AdminToken    string
	ProviderMode  string // "local" or "api"
	UploadDir     string
	SweepInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("KYCD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	mode := os.Getenv("VERIFICATION_MODE")
	if mode != "api" {
		mode = "local"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
		ProviderMode:  mode,
		UploadDir:     uploadDir,
		SweepInterval: durationFromEnv("SWEEP_INTERVAL_HOURS", 24) * time.Hour,
	}
}

func durationFromEnv(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v)
		}
	}
	return time.Duration(fallback)
}
