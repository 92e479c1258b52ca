package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tenantwise/audittrail/pkg/observability"
	"github.com/tenantwise/audittrail/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Audit subsystem configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuditConfig holds audit subsystem settings
type AuditConfig struct {
	// RetentionDays is the age past which events become prunable
	RetentionDays int

	// FailureMode selects how write/query store failures propagate:
	// "open" degrades and never errors, "closed" returns the error.
	FailureMode string

	// LogAllRequests controls whether the request-audit middleware
	// records every request or only mutations and denials.
	LogAllRequests bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("AUDIT_HOST", "0.0.0.0"),
		Port:            getEnv("AUDIT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("AUDIT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("AUDIT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("AUDIT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if redisURL := getEnv("AUDIT_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("AUDIT_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("AUDIT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("AUDIT_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("AUDIT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}
	if keyPrefix := getEnv("AUDIT_KEY_PREFIX", ""); keyPrefix != "" {
		cfg.KeyPrefix = keyPrefix
	}

	return cfg
}

// loadAuditConfig loads audit subsystem configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		RetentionDays:  getEnvInt("AUDIT_RETENTION_DAYS", 90),
		FailureMode:    strings.ToLower(getEnv("AUDIT_FAILURE_MODE", "open")),
		LogAllRequests: getEnvBool("AUDIT_LOG_ALL_REQUESTS", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("AUDIT_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("AUDIT_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.Audit.RetentionDays)
	}

	switch c.Audit.FailureMode {
	case "open", "closed":
	default:
		return fmt.Errorf("invalid failure mode: %s (must be open or closed)", c.Audit.FailureMode)
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
