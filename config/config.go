package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting of the catalog API.
type Config struct {
	// General
	Port        string
	Environment string
	LogLevel    string

	// PostgreSQL
	DatabaseURL string
	DBTimeout   time.Duration

	// Redis
	RedisAddr string
	CacheTTL  time.Duration

	// JWT
	JWTSecretKey string
	TokenExpiry  time.Duration
	AdminEmails  []string

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Warnings collects values that were ignored in favour of defaults.
	Warnings []string
}

// Load reads the configuration from environment variables.
// It fails when a required variable is missing.
func Load() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Port:        l.getEnv("PORT", "8080"),
		Environment: l.getEnv("ENV", "development"),
		LogLevel:    l.getEnv("LOG_LEVEL", "info"),

		DatabaseURL: l.mustGetEnv("DATABASE_URL"),
		DBTimeout:   time.Duration(l.getIntEnv("DB_TIMEOUT_SEC", 5)) * time.Second,

		RedisAddr: l.getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  time.Duration(l.getIntEnv("CACHE_TTL_SEC", 300)) * time.Second,

		JWTSecretKey: l.mustGetEnv("JWT_SECRET_KEY"),
		TokenExpiry:  time.Duration(l.getIntEnv("JWT_EXPIRY_MIN", 60)) * time.Minute,
		AdminEmails:  splitList(l.getEnv("ADMIN_EMAILS", "")),

		RateLimitMaxRequests: l.getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      time.Duration(l.getIntEnv("RATE_LIMIT_PERIOD_MIN", 1)) * time.Minute,
	}

	if len(l.missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(l.missing, ", "))
	}
	cfg.Warnings = l.warnings
	return cfg, nil
}

type loader struct {
	missing  []string
	warnings []string
}

// getEnv reads a variable or returns the default.
func (l *loader) getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// mustGetEnv reads a required variable.
func (l *loader) mustGetEnv(key string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	l.missing = append(l.missing, key)
	return ""
}

// getIntEnv reads a positive integer, falling back to the default on bad input.
func (l *loader) getIntEnv(key string, defaultValue int) int {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		l.warnings = append(l.warnings,
			fmt.Sprintf("%s=%q is not a positive integer, using default %d", key, valueStr, defaultValue))
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
