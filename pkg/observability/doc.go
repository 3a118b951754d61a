// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry tracing and graceful shutdown for the audit log service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("event_id", id).Info("Audit event recorded")
//
// FromContext attaches the request id and active trace to a logger:
//
//	observability.FromContext(ctx, logger).Error("Failed to query audit events")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// The Record and Observe helpers are no-ops on a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, info)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// Routes: /health, /health/live, /health/ready, /health/details and
// /api/v1/health/details. The API server also serves the last one.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "auditlog",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
