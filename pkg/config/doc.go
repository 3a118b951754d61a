// Package config provides application configuration management.
//
// # Overview
//
// Configuration starts from defaults, is overlaid by an optional YAML file named
// by AUDITLOG_CONFIG_FILE, and finally by environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	AUDITLOG_HOST="0.0.0.0"
//	AUDITLOG_PORT="8080"
//	AUDITLOG_HEALTH_PORT="9090"
//	AUDITLOG_READ_TIMEOUT="15s"
//	AUDITLOG_MAX_BODY_BYTES="1048576"
//
// Storage settings:
//
//	AUDITLOG_STORAGE_TYPE="postgres"  # memory, sqlite, postgres
//	AUDITLOG_DATABASE_URL="postgres://localhost/auditlog?sslmode=disable"
//	AUDITLOG_DB_MAX_OPEN_CONNS="20"
//	AUDITLOG_DB_QUERY_TIMEOUT="10s"
//
// Rate limiting:
//
//	AUDITLOG_RATE_LIMIT_ENABLED="true"
//	AUDITLOG_RATE_LIMIT_REQUESTS="600"
//	AUDITLOG_RATE_LIMIT_WINDOW="1m"
//	AUDITLOG_REDIS_URL="redis://localhost:6379/0"  # empty keeps limits in process
//
// Observability settings:
//
//	AUDITLOG_LOG_LEVEL="info"  # debug, info, warn, error
//	AUDITLOG_METRICS_ENABLED="true"
//	AUDITLOG_OTEL_ENABLED="true"
//	AUDITLOG_OTEL_ENDPOINT="otel-collector:4317"
//
// Service metadata (reported by /health/details and /api/v1/health/details):
//
//	AUDITLOG_SERVICE_NAME="auditlog"
//	AUDITLOG_ENVIRONMENT="production"
//	AUDITLOG_SERVICE_ENABLED="true"
//	AUDITLOG_CONFIGURABLE_PROPERTY="value"
//
// Archive (S3 export target):
//
//	AUDITLOG_S3_BUCKET="audit-archive"
//	AUDITLOG_S3_ENDPOINT="http://minio:9000"
//	AUDITLOG_S3_USE_PATH_STYLE="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout)
package config
