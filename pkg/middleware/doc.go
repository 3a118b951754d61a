// Package middleware provides HTTP rate limiting for the audit log API.
//
// Clients are keyed by IP address (first X-Forwarded-For entry, then X-Real-IP,
// then the connection address). Two Limiter implementations exist:
//
// RateLimiter: in-process token bucket per client, held in an expiring LRU
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
//
// DistributedRateLimiter: fixed window counters in Redis, shared across instances
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "auditlog:ratelimit")
//
// Either is wrapped by RateLimitMiddleware, which answers 429 with Retry-After
// once a client is over its limit. Limiter errors let the request through.
//
//	router.Use(middleware.NewRateLimitMiddleware(limiter, logger, metrics).Handler)
package middleware
