// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/voiceforge/voiceforge/internal/platform/errors"
)

const (
	defaultAddr        = ":8080"
	defaultDatabaseURL = "voiceforge.db"
	defaultLogLevel    = "info"
	defaultMaxUploadMB = 25
)

// Config holds the service runtime configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	LogLevel    string
	MaxUploadMB int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        envOr("VOICEFORGE_ADDR", defaultAddr),
		DatabaseURL: envOr("DATABASE_URL", defaultDatabaseURL),
		LogLevel:    envOr("LOG_LEVEL", defaultLogLevel),
		MaxUploadMB: defaultMaxUploadMB,
	}

	if raw := os.Getenv("MAX_UPLOAD_MB"); raw != "" {
		mb, err := strconv.Atoi(raw)
		if err != nil || mb <= 0 {
			return nil, errors.New(errors.KindConfig, "config.load",
				fmt.Sprintf("MAX_UPLOAD_MB must be a positive integer, got %q", raw))
		}
		cfg.MaxUploadMB = mb
	}

	return cfg, nil
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
