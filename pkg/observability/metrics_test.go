package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics.HTTPRequestsTotal == nil || metrics.EventsLoggedTotal == nil || metrics.RateLimitedTotal == nil {
		t.Fatal("Expected metrics to be initialized")
	}

	// registering twice on the same registry must panic
	defer func() {
		if recover() == nil {
			t.Error("Expected duplicate registration to panic")
		}
	}()
	NewMetrics(registry)
}

func TestMetrics_Recorders(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordEventLogged("LOGIN")
	metrics.RecordEventLogged("LOGIN")
	metrics.RecordQuery("user")
	metrics.RecordRejected("missing_field")
	metrics.RecordRateLimited()
	metrics.ObserveStorageOperation("insert", time.Now(), nil)
	metrics.ObserveStorageOperation("insert", time.Now(), errors.New("failed"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"events logged", testutil.ToFloat64(metrics.EventsLoggedTotal.WithLabelValues("LOGIN")), 2},
		{"queries", testutil.ToFloat64(metrics.EventQueriesTotal.WithLabelValues("user")), 1},
		{"rejected", testutil.ToFloat64(metrics.RejectedRequestsTotal.WithLabelValues("missing_field")), 1},
		{"rate limited", testutil.ToFloat64(metrics.RateLimitedTotal), 1},
		{"storage success", testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("insert", "success")), 1},
		{"storage error", testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("insert", "error")), 1},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var metrics *Metrics

	metrics.RecordEventLogged("LOGIN")
	metrics.RecordQuery("all")
	metrics.RecordRejected("other")
	metrics.RecordRateLimited()
	metrics.ObserveStorageOperation("insert", time.Now(), nil)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/api/v1/audit/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit/events/"+id, nil))
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/audit/events/{id}", "404"))
	if got != 3 {
		t.Errorf("Expected 3 requests under the route template, got %v", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordEventLogged("LOGOUT")

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	server := httptest.NewServer(serveMux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `auditlog_events_logged_total{event_type="LOGOUT"} 1`) {
		t.Errorf("Expected events counter in scrape output:\n%s", body)
	}
}
