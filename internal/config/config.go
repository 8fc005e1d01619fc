// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the daemon's environment-derived configuration.
type Config struct {
	PostgresDSN string `validate:"required"`

	RedisAddr     string `validate:"required,hostname_port"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// WorkerPollIntervalMs bounds how long a deadline worker waits
	// between polls when no wake-up arrives.
	WorkerPollIntervalMs int `validate:"gt=0"`

	// GraceBudgetMs is each player's disconnect allowance per game.
	GraceBudgetMs int `validate:"gt=0"`

	LogLevel string `validate:"oneof=trace debug info warn error"`
}

// Load reads an optional .env file, then the process environment, and
// validates the result. Missing optional values get defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:          os.Getenv("SHOGI_POSTGRES_DSN"),
		RedisAddr:            envOr("SHOGI_REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("SHOGI_REDIS_PASSWORD"),
		RedisDB:              envInt("SHOGI_REDIS_DB", 0),
		WorkerPollIntervalMs: envInt("SHOGI_WORKER_POLL_MS", 1000),
		GraceBudgetMs:        envInt("SHOGI_GRACE_BUDGET_MS", 60_000),
		LogLevel:             envOr("SHOGI_LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
