package domain

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"
)

var ErrRateLimited = errors.New("rate_limited")

type Config struct {
	Enabled bool

	// Per-client request budget inside one fixed window.
	AuthAttempts int           // signin/signup attempts per window
	AuthWindow   time.Duration // window for auth endpoints
	AdminOps     int           // admin mutations per window
	AdminWindow  time.Duration // window for admin endpoints
}

func LoadFromEnv() *Config {
	return &Config{
		Enabled:      getEnvBool("RATELIMIT_ENABLED", true),
		AuthAttempts: getEnvInt("RATELIMIT_AUTH_ATTEMPTS", 20),
		AuthWindow:   getEnvDuration("RATELIMIT_AUTH_WINDOW", time.Minute),
		AdminOps:     getEnvInt("RATELIMIT_ADMIN_OPS", 200),
		AdminWindow:  getEnvDuration("RATELIMIT_ADMIN_WINDOW", 5*time.Minute),
	}
}

// Limiter implements a fixed-window counter. Allow returns ErrRateLimited
// when the caller identified by key has exhausted limit within window.
type Limiter interface {
	Allow(ctx context.Context, scope, key string, limit int, window time.Duration) error
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
