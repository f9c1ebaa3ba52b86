package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the conversion engine service.
type Config struct {
	// Server
	HTTPPort int

	// Rate provider
	APIKey         string
	APIBaseURL     string
	HTTPTimeoutSec int

	// Redis connection
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Snapshot caching
	SnapshotCacheTTL int // seconds

	// Observability
	JaegerURL       string
	MetricsEnabled  bool
	MetricsEndpoint string

	// Environment
	Environment string
	LogLevel    string

	// Defaults for the conversion contexts
	DefaultBaseCurrency string
	DefaultBaseAmount   float64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		// Rate provider
		APIKey:         getEnv("CURRENCY_API_KEY", ""),
		APIBaseURL:     getEnv("CURRENCY_API_URL", "https://api.currencyapi.com/v3"),
		HTTPTimeoutSec: getEnvInt("HTTP_TIMEOUT", 15),

		// Redis connection
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		// Snapshot caching
		SnapshotCacheTTL: getEnvInt("SNAPSHOT_CACHE_TTL", 60),

		// Observability
		JaegerURL:       getEnv("JAEGER_URL", "http://localhost:14268/api/traces"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		MetricsEndpoint: getEnv("METRICS_ENDPOINT", "/metrics"),

		// Environment
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Context defaults
		DefaultBaseCurrency: getEnv("DEFAULT_BASE_CURRENCY", "USD"),
		DefaultBaseAmount:   getEnvFloat("DEFAULT_BASE_AMOUNT", 1.00),
	}
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
