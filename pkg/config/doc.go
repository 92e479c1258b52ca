// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	AUDIT_HOST="0.0.0.0"
//	AUDIT_PORT="8080"
//	AUDIT_READ_TIMEOUT="15s"
//	AUDIT_WRITE_TIMEOUT="15s"
//	AUDIT_IDLE_TIMEOUT="60s"
//	AUDIT_SHUTDOWN_TIMEOUT="30s"
//
// Storage settings:
//
//	AUDIT_REDIS_URL="redis://localhost:6379"
//	AUDIT_REDIS_PASSWORD=""
//	AUDIT_REDIS_DB="0"
//	AUDIT_REDIS_MAX_RETRIES="3"
//	AUDIT_REDIS_POOL_SIZE="10"
//	AUDIT_KEY_PREFIX="audit"
//
// Audit settings:
//
//	AUDIT_RETENTION_DAYS="90"
//	AUDIT_FAILURE_MODE="open"  # open, closed
//	AUDIT_LOG_ALL_REQUESTS="false"
//
// Observability settings:
//
//	AUDIT_LOG_LEVEL="info"  # debug, info, warn, error
//	AUDIT_METRICS_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
