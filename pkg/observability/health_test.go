package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

var testInfo = ServiceInfo{
	Name:                 "auditlog",
	Version:              "1.2.3",
	Environment:          "test",
	Enabled:              true,
	ConfigurableProperty: "configured",
}

func newMonitoredDB(t *testing.T) (*HealthChecker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHealthChecker(db, nil, testInfo), mock
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("no dependencies", func(t *testing.T) {
		checker := NewHealthChecker(nil, nil, testInfo)
		status := checker.Check(context.Background())
		if status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
		if status.Version != "1.2.3" {
			t.Errorf("Expected version 1.2.3, got %s", status.Version)
		}
		if len(status.Dependencies) != 0 {
			t.Errorf("Expected no dependencies, got %d", len(status.Dependencies))
		}
	})

	t.Run("healthy database", func(t *testing.T) {
		checker, mock := newMonitoredDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		status := checker.Check(context.Background())
		if status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
		if status.Dependencies["database"].Status != StatusHealthy {
			t.Errorf("Expected healthy database, got %+v", status.Dependencies["database"])
		}
	})

	t.Run("database ping failure", func(t *testing.T) {
		checker, mock := newMonitoredDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		status := checker.Check(context.Background())
		if status.Status != StatusUnhealthy {
			t.Errorf("Expected unhealthy, got %s", status.Status)
		}
		if status.Dependencies["database"].Message != "connection refused" {
			t.Errorf("Unexpected message: %s", status.Dependencies["database"].Message)
		}
	})

	t.Run("redis down degrades", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("Failed to start miniredis: %v", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		checker := NewHealthChecker(nil, client, testInfo)
		status := checker.Check(context.Background())
		if status.Status != StatusDegraded {
			t.Errorf("Expected degraded, got %s", status.Status)
		}
		if status.Dependencies["redis"].Status != StatusUnhealthy {
			t.Errorf("Expected unhealthy redis, got %s", status.Dependencies["redis"].Status)
		}
	})

	t.Run("redis up", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		checker := NewHealthChecker(nil, client, testInfo)
		if status := checker.Check(context.Background()); status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
	})
}

func TestHealthChecker_Endpoints(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newServer := func(info ServiceInfo) *http.ServeMux {
		checker := NewHealthChecker(nil, nil, info)
		checker.now = func() time.Time { return fixed }
		mux := http.NewServeMux()
		RegisterHealthRoutes(mux, checker)
		return mux
	}

	get := func(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("liveness", func(t *testing.T) {
		rec := get(newServer(testInfo), "/health/live")
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("readiness", func(t *testing.T) {
		for _, path := range []string{"/health", "/health/ready"} {
			rec := get(newServer(testInfo), path)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", path, rec.Code)
			}
		}
	})

	t.Run("details up", func(t *testing.T) {
		rec := get(newServer(testInfo), "/health/details")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var details HealthDetails
		if err := json.NewDecoder(rec.Body).Decode(&details); err != nil {
			t.Fatalf("Failed to decode details: %v", err)
		}
		if details.Status != StatusUp {
			t.Errorf("Expected UP, got %s", details.Status)
		}
		if details.Metadata["serviceName"] != "auditlog" || details.Metadata["version"] != "1.2.3" || details.Metadata["environment"] != "test" {
			t.Errorf("Unexpected metadata: %v", details.Metadata)
		}
		if details.ConfigurableProperty == nil || *details.ConfigurableProperty != "configured" {
			t.Errorf("Unexpected configurable property: %v", details.ConfigurableProperty)
		}
		if !details.Timestamp.Equal(fixed) {
			t.Errorf("Unexpected timestamp: %v", details.Timestamp)
		}
	})

	t.Run("details down when disabled", func(t *testing.T) {
		info := testInfo
		info.Enabled = false

		rec := get(newServer(info), "/health/details")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", rec.Code)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode details: %v", err)
		}
		if body["status"] != StatusDown {
			t.Errorf("Expected DOWN, got %v", body["status"])
		}
		for _, key := range []string{"metadata", "configurableProperty"} {
			value, ok := body[key]
			if !ok || value != nil {
				t.Errorf("Expected %s to be null, got %v (present=%v)", key, value, ok)
			}
		}
	})

	t.Run("details on api path", func(t *testing.T) {
		rec := get(newServer(testInfo), HealthDetailsPath)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	})
}

func TestReadiness_UnhealthyDatabase(t *testing.T) {
	checker, mock := newMonitoredDB(t)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
