package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/auditlog/pkg/httputil"
	"github.com/platinummonkey/auditlog/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
	// MaxKeys bounds the number of clients tracked in memory
	MaxKeys int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 600,
		WindowDuration:    time.Minute,
		BurstSize:         60,
		MaxKeys:           10000,
	}
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter implements an in-process token bucket per key. Idle buckets
// expire from an LRU so memory stays bounded.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets *expirable.LRU[string, *bucket]
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	maxKeys := config.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultRateLimitConfig().MaxKeys
	}

	return &RateLimiter{
		config:  config,
		buckets: expirable.NewLRU[string, *bucket](maxKeys, nil, 2*config.WindowDuration),
		now:     time.Now,
	}
}

func (rl *RateLimiter) capacity() float64 {
	return float64(rl.config.RequestsPerWindow + rl.config.BurstSize)
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity(), lastUpdate: now}
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastUpdate)
	if elapsed > 0 {
		rate := float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()
		b.tokens += elapsed.Seconds() * rate
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	decision := Decision{
		Limit: rl.config.RequestsPerWindow,
		Reset: rl.config.WindowDuration,
	}
	if b.tokens >= 1 {
		b.tokens--
		decision.Allowed = true
	}
	decision.Remaining = int(b.tokens)

	rl.buckets.Add(key, b)
	return decision, nil
}

// size returns the number of tracked clients
func (rl *RateLimiter) size() int {
	return rl.buckets.Len()
}

// RateLimitMiddleware rejects clients that exceed their limit with 429
type RateLimitMiddleware struct {
	limiter Limiter
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRateLimitMiddleware creates a rate limit middleware around limiter. Limiter
// errors fail open.
func NewRateLimitMiddleware(limiter Limiter, logger *observability.Logger, metrics *observability.Metrics) *RateLimitMiddleware {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + getClientIP(r)

		decision, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context(), m.logger).WithError(err).
				Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, decision)
		if !decision.Allowed {
			m.metrics.RecordRateLimited()
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", decision.Reset.Seconds()))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
	if d.Reset > 0 {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(d.Reset).Unix()))
	}
}

// getClientIP returns the originating client address, preferring proxy headers
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
