package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/auditlog/pkg/observability"
)

func testConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
		MaxKeys:           100,
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	config := testConfig()
	limiter := NewRateLimiter(config)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	allowed := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		d, err := limiter.Allow(context.Background(), "client")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, config.RequestsPerWindow+config.BurstSize, allowed)

	// a tenth of the window refills one token
	now = now.Add(100 * time.Millisecond)
	d, err := limiter.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = limiter.Allow(context.Background(), "other-client")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are independent")
}

func TestRateLimiter_RefillIsCapped(t *testing.T) {
	config := testConfig()
	limiter := NewRateLimiter(config)

	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, err := limiter.Allow(context.Background(), "client")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	d, err := limiter.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.Equal(t, config.RequestsPerWindow+config.BurstSize-1, d.Remaining)
}

func TestRateLimiter_BoundedKeys(t *testing.T) {
	config := testConfig()
	config.MaxKeys = 5
	limiter := NewRateLimiter(config)

	for i := 0; i < 20; i++ {
		_, err := limiter.Allow(context.Background(), fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, limiter.size())
}

func TestRateLimiter_Concurrency(t *testing.T) {
	config := testConfig()
	config.WindowDuration = time.Hour
	limiter := NewRateLimiter(config)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := limiter.Allow(context.Background(), "shared")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, config.RequestsPerWindow+config.BurstSize, allowed)
}

func TestNewRateLimiter_NilConfig(t *testing.T) {
	limiter := NewRateLimiter(nil)
	assert.Equal(t, DefaultRateLimitConfig().RequestsPerWindow, limiter.config.RequestsPerWindow)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "remote addr without port", remoteAddr: "10.0.0.1", want: "10.0.0.1"},
		{name: "x-forwarded-for chain", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, want: "203.0.113.7"},
		{name: "x-real-ip", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, want: "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	return Decision{Allowed: true}, errors.New("backend down")
}

func TestRateLimitMiddleware_Handler(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("rejects over limit", func(t *testing.T) {
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		config := testConfig()
		config.WindowDuration = time.Hour
		handler := NewRateLimitMiddleware(NewRateLimiter(config), logger, metrics).Handler(ok)

		var last *httptest.ResponseRecorder
		for i := 0; i < config.RequestsPerWindow+config.BurstSize+1; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/events", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			last = httptest.NewRecorder()
			handler.ServeHTTP(last, req)
		}

		assert.Equal(t, http.StatusTooManyRequests, last.Code)
		assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, last.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"rate limit exceeded"}`, last.Body.String())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RateLimitedTotal))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/events", nil)
		req.RemoteAddr = "192.0.2.99:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "other clients are unaffected")
	})

	t.Run("fails open", func(t *testing.T) {
		handler := NewRateLimitMiddleware(failingLimiter{}, logger, nil).Handler(ok)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func newMiniredisLimiter(t *testing.T, config *RateLimitConfig) (*DistributedRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDistributedRateLimiter(client, config, "test"), mr
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	config := testConfig()
	limiter, mr := newMiniredisLimiter(t, config)

	allowed := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+3; i++ {
		d, err := limiter.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, config.RequestsPerWindow+config.BurstSize, allowed)
	assert.True(t, mr.Exists("test:ip:192.0.2.1"))
	assert.Equal(t, config.WindowDuration, mr.TTL("test:ip:192.0.2.1"))

	// window elapses
	mr.FastForward(config.WindowDuration + time.Millisecond)
	d, err := limiter.Allow(ctx, "ip:192.0.2.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	count, err := mr.Get("test:ip:192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
	assert.Equal(t, config.WindowDuration, mr.TTL("test:ip:192.0.2.1"))
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := newMiniredisLimiter(t, testConfig())
	mr.Close()

	d, err := limiter.Allow(context.Background(), "ip:192.0.2.1")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}
