// Package config loads client configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client configuration.
type Config struct {
	BaseURL     string        // API base, including /api/v1
	Timeout     time.Duration // per-request HTTP timeout
	PageSize    int           // catalog listing page size
	Debounce    time.Duration // filter apply debounce window
	ConfigDir   string        // durable token/preference directory
	TokenTTL    time.Duration // persisted token lifetime after login
	Environment string
}

// Load reads .env (if present) and environment variables with defaults.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		BaseURL:     getEnv("BOUTIQUE_API_URL", "http://localhost:8080/api/v1"),
		Timeout:     getEnvAsDuration("BOUTIQUE_HTTP_TIMEOUT", 30*time.Second),
		PageSize:    getEnvAsInt("BOUTIQUE_PAGE_SIZE", 12),
		Debounce:    getEnvAsDuration("BOUTIQUE_FILTER_DEBOUNCE", 300*time.Millisecond),
		ConfigDir:   getEnv("BOUTIQUE_CONFIG_DIR", ""),
		TokenTTL:    getEnvAsDuration("BOUTIQUE_TOKEN_TTL", time.Hour),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
