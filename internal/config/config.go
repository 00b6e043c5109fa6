// Package config loads runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBPath string

	// Dedup
	FingerprintBucketCents int64

	// Import
	ImportConcurrency int

	// Snapshot cache
	CacheTTL time.Duration

	// Logging
	LogLevel slog.Level
}

// Load reads HM_* environment variables, after merging in a .env file
// when one exists. Unset keys fall back to defaults suitable for a
// local single-user run.
func Load() *Config {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	return &Config{
		DBPath:                 getEnv("HM_DB_PATH", "./data/homemoney.db"),
		FingerprintBucketCents: getEnvInt64("HM_FINGERPRINT_BUCKET_CENTS", 1),
		ImportConcurrency:      int(getEnvInt64("HM_IMPORT_CONCURRENCY", 4)),
		CacheTTL:               getEnvDuration("HM_CACHE_TTL", 5*time.Minute),
		LogLevel:               getEnvLevel("HM_LOG_LEVEL", slog.LevelInfo),
	}
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("HM_DB_PATH must not be empty")
	}
	if c.FingerprintBucketCents < 1 {
		return fmt.Errorf("HM_FINGERPRINT_BUCKET_CENTS must be at least 1, got %d", c.FingerprintBucketCents)
	}
	if c.ImportConcurrency < 1 {
		return fmt.Errorf("HM_IMPORT_CONCURRENCY must be at least 1, got %d", c.ImportConcurrency)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("HM_CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return l
}
