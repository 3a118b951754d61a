package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/auditlog/pkg/observability"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rateLimit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Service metadata reported by the health details endpoint
	Service ServiceConfig `yaml:"service"`

	// Archive configuration for S3 exports
	Archive ArchiveConfig `yaml:"archive"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`

	// Health/metrics server (separate port for k8s liveness and readiness checks)
	HealthPort string `yaml:"healthPort"`
}

// StorageConfig holds event store settings
type StorageConfig struct {
	Type            string        `yaml:"type"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
}

// RateLimitConfig holds API rate limiting settings. An empty RedisURL keeps
// limits in process.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
	BurstSize         int           `yaml:"burstSize"`
	MaxKeys           int           `yaml:"maxKeys"`
	RedisURL          string        `yaml:"redisUrl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"logLevel"`

	// Metrics
	MetricsEnabled bool `yaml:"metricsEnabled"`

	// OpenTelemetry
	OTelEnabled  bool   `yaml:"otelEnabled"`
	OTelEndpoint string `yaml:"otelEndpoint"`
	OTelInsecure bool   `yaml:"otelInsecure"`
}

// ServiceConfig describes the running service
type ServiceConfig struct {
	Name                 string `yaml:"name"`
	Version              string `yaml:"version"`
	Environment          string `yaml:"environment"`
	Enabled              bool   `yaml:"enabled"`
	ConfigurableProperty string `yaml:"configurableProperty"`
}

// ArchiveConfig holds S3 settings used when exporting events
type ArchiveConfig struct {
	S3Endpoint     string `yaml:"s3Endpoint"`
	S3Region       string `yaml:"s3Region"`
	S3Bucket       string `yaml:"s3Bucket"`
	S3AccessKey    string `yaml:"s3AccessKey"`
	S3SecretKey    string `yaml:"s3SecretKey"`
	S3UsePathStyle bool   `yaml:"s3UsePathStyle"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: StorageConfig{
			Type:            StorageMemory,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
			QueryTimeout:    10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 600,
			Window:            time.Minute,
			BurstSize:         60,
			MaxKeys:           10000,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
			OTelEndpoint:   "localhost:4317",
			OTelInsecure:   true,
		},
		Service: ServiceConfig{
			Name:                 "auditlog",
			Version:              "1.0.0",
			Environment:          "development",
			Enabled:              true,
			ConfigurableProperty: "default",
		},
		Archive: ArchiveConfig{
			S3Region: "us-east-1",
		},
	}
}

// LoadConfig builds configuration from defaults, then the YAML file named by
// AUDITLOG_CONFIG_FILE (if any), then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("AUDITLOG_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadServerConfig()
	cfg.loadStorageConfig()
	cfg.loadRateLimitConfig()
	cfg.loadObservabilityConfig()
	cfg.loadServiceConfig()
	cfg.loadArchiveConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadServerConfig() {
	s := &c.Server
	s.Host = getEnv("AUDITLOG_HOST", s.Host)
	s.Port = getEnv("AUDITLOG_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("AUDITLOG_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("AUDITLOG_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("AUDITLOG_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("AUDITLOG_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("AUDITLOG_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.HealthPort = getEnv("AUDITLOG_HEALTH_PORT", s.HealthPort)
}

func (c *Config) loadStorageConfig() {
	s := &c.Storage
	s.Type = strings.ToLower(getEnv("AUDITLOG_STORAGE_TYPE", s.Type))
	s.DSN = getEnv("AUDITLOG_DATABASE_URL", s.DSN)
	s.MaxOpenConns = getEnvInt("AUDITLOG_DB_MAX_OPEN_CONNS", s.MaxOpenConns)
	s.MaxIdleConns = getEnvInt("AUDITLOG_DB_MAX_IDLE_CONNS", s.MaxIdleConns)
	s.ConnMaxLifetime = getEnvDuration("AUDITLOG_DB_CONN_MAX_LIFETIME", s.ConnMaxLifetime)
	s.ConnectTimeout = getEnvDuration("AUDITLOG_DB_CONNECT_TIMEOUT", s.ConnectTimeout)
	s.QueryTimeout = getEnvDuration("AUDITLOG_DB_QUERY_TIMEOUT", s.QueryTimeout)
}

func (c *Config) loadRateLimitConfig() {
	r := &c.RateLimit
	r.Enabled = getEnvBool("AUDITLOG_RATE_LIMIT_ENABLED", r.Enabled)
	r.RequestsPerWindow = getEnvInt("AUDITLOG_RATE_LIMIT_REQUESTS", r.RequestsPerWindow)
	r.Window = getEnvDuration("AUDITLOG_RATE_LIMIT_WINDOW", r.Window)
	r.BurstSize = getEnvInt("AUDITLOG_RATE_LIMIT_BURST", r.BurstSize)
	r.MaxKeys = getEnvInt("AUDITLOG_RATE_LIMIT_MAX_KEYS", r.MaxKeys)
	r.RedisURL = getEnv("AUDITLOG_REDIS_URL", r.RedisURL)
}

func (c *Config) loadObservabilityConfig() {
	o := &c.Observability
	o.LogLevel = getEnv("AUDITLOG_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("AUDITLOG_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("AUDITLOG_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("AUDITLOG_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelInsecure = getEnvBool("AUDITLOG_OTEL_INSECURE", o.OTelInsecure)
}

func (c *Config) loadServiceConfig() {
	s := &c.Service
	s.Name = getEnv("AUDITLOG_SERVICE_NAME", s.Name)
	s.Version = getEnv("AUDITLOG_SERVICE_VERSION", s.Version)
	s.Environment = getEnv("AUDITLOG_ENVIRONMENT", s.Environment)
	s.Enabled = getEnvBool("AUDITLOG_SERVICE_ENABLED", s.Enabled)
	s.ConfigurableProperty = getEnv("AUDITLOG_CONFIGURABLE_PROPERTY", s.ConfigurableProperty)
}

func (c *Config) loadArchiveConfig() {
	a := &c.Archive
	a.S3Endpoint = getEnv("AUDITLOG_S3_ENDPOINT", a.S3Endpoint)
	a.S3Region = getEnv("AUDITLOG_S3_REGION", a.S3Region)
	a.S3Bucket = getEnv("AUDITLOG_S3_BUCKET", a.S3Bucket)
	a.S3AccessKey = getEnv("AUDITLOG_S3_ACCESS_KEY", a.S3AccessKey)
	a.S3SecretKey = getEnv("AUDITLOG_S3_SECRET_KEY", a.S3SecretKey)
	a.S3UsePathStyle = getEnvBool("AUDITLOG_S3_USE_PATH_STYLE", a.S3UsePathStyle)
}

// LogLevel returns the parsed logging level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("database URL is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, or postgres)", c.Storage.Type)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 {
			return fmt.Errorf("rate limit requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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
