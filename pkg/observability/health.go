package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// ServiceInfo describes the running service for the details endpoint
type ServiceInfo struct {
	Name                 string
	Version              string
	Environment          string
	Enabled              bool
	ConfigurableProperty string
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
	info  ServiceInfo
	now   func() time.Time
}

// NewHealthChecker creates a new health checker. db and redis are optional.
func NewHealthChecker(db *sql.DB, redis *redis.Client, info ServiceInfo) *HealthChecker {
	return &HealthChecker{
		db:    db,
		redis: redis,
		info:  info,
		now:   time.Now,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthDetails is the body served by the details endpoint. Metadata and
// ConfigurableProperty are null while the service reports DOWN.
type HealthDetails struct {
	Status               string            `json:"status"`
	Timestamp            time.Time         `json:"timestamp"`
	Metadata             map[string]string `json:"metadata"`
	ConfigurableProperty *string           `json:"configurableProperty"`
}

// HealthDetailsPath is where the details endpoint is mounted on the API server
const HealthDetailsPath = "/api/v1/health/details"

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Liveness answers the liveness check (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": h.now(),
	})
}

// Readiness checks every dependency and answers 503 when one required for
// serving requests is down
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, status)
}

// Details reports UP with the service metadata, or DOWN with 503 when the
// service is disabled by configuration.
func (h *HealthChecker) Details(w http.ResponseWriter, r *http.Request) {
	if !h.info.Enabled {
		writeHealthJSON(w, http.StatusServiceUnavailable, HealthDetails{
			Status:    StatusDown,
			Timestamp: h.now(),
		})
		return
	}

	property := h.info.ConfigurableProperty
	writeHealthJSON(w, http.StatusOK, HealthDetails{
		Status:    StatusUp,
		Timestamp: h.now(),
		Metadata: map[string]string{
			"serviceName": h.info.Name,
			"version":     h.info.Version,
			"environment": h.info.Environment,
		},
		ConfigurableProperty: &property,
	})
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Version:      h.info.Version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dbStatus := h.checkDatabase(ctx)
		status.Dependencies["database"] = dbStatus
		switch dbStatus.Status {
		case StatusUnhealthy:
			status.Status = StatusUnhealthy
		case StatusDegraded:
			status.Status = StatusDegraded
		}
	}

	// Redis only backs rate limiting, which fails open
	if h.redis != nil {
		redisStatus := h.checkRedis(ctx)
		status.Dependencies["redis"] = redisStatus
		if redisStatus.Status == StatusUnhealthy && status.Status != StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
	}

	err := h.db.PingContext(ctx)
	if err == nil {
		var one int
		err = h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
	status.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
		return status
	}

	stats := h.db.Stats()
	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Message = "connection pool exhausted"
	}

	return status
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
	}

	err := h.redis.Ping(ctx).Err()
	status.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	}

	return status
}

func writeHealthJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
	mux.HandleFunc("/health/details", checker.Details)
	mux.HandleFunc(HealthDetailsPath, checker.Details)
}
