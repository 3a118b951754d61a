// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, events)
//	httputil.WriteCreated(w, resp)
//
// Error responses share one body shape, {"error": "..."}:
//
//	httputil.WriteBadRequest(w, "invalid event type")
//	httputil.WriteNotFoundError(w, "audit event not found")
//	httputil.WriteInternalError(w) // the cause is logged, never returned
//
// # Request Parsing
//
//	var req audit.LogRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	sortBy := httputil.ParseQueryString(r, "sortBy", "timestamp")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: rate limiting
package httputil
