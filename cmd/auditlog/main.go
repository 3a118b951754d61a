package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/auditlog/pkg/audit"
	"github.com/platinummonkey/auditlog/pkg/config"
	"github.com/platinummonkey/auditlog/pkg/httputil"
	"github.com/platinummonkey/auditlog/pkg/middleware"
	"github.com/platinummonkey/auditlog/pkg/observability"
	"github.com/platinummonkey/auditlog/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Error("Audit log service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	store, db, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if db != nil {
		shutdown.RegisterShutdownFunc("database", func(context.Context) error { return db.Close() })
	}
	logger.WithField("storage", cfg.Storage.Type).Info("Event store initialized")

	limiter, redisClient, err := newLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	service := audit.NewService(store, logger, audit.WithMetrics(metrics))

	checker := observability.NewHealthChecker(db, redisClient, observability.ServiceInfo{
		Name:                 cfg.Service.Name,
		Version:              cfg.Service.Version,
		Environment:          cfg.Service.Environment,
		Enabled:              cfg.Service.Enabled,
		ConfigurableProperty: cfg.Service.ConfigurableProperty,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      newAPIHandler(service, checker, limiter, metrics, logger, cfg.Server.MaxBodyBytes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           newHealthHandler(checker, registry, cfg.Observability.MetricsEnabled, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer observability.RecoverToError(logger, "api server", &err)
		logger.WithField("addr", apiServer.Addr).Info("Starting audit log API server")
		return serve(apiServer)
	})
	g.Go(func() (err error) {
		defer observability.RecoverToError(logger, "health server", &err)
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		return serve(healthServer)
	})
	g.Go(func() error {
		shutdown.WaitForSignal(gctx)

		// Shutdown gets a fresh context; gctx may already be cancelled
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", server.Addr, err)
	}
	return nil
}

// openStore builds the configured event store. The returned *sql.DB is nil
// for the memory store.
func openStore(ctx context.Context, cfg config.StorageConfig) (audit.EventStore, *sql.DB, error) {
	var driver string
	var dialect audit.Dialect
	switch cfg.Type {
	case config.StorageMemory:
		return audit.NewMemoryStore(), nil, nil
	case config.StorageSQLite:
		driver, dialect = storage.DriverSQLite, audit.DialectSQLite
	case config.StoragePostgres:
		driver, dialect = storage.DriverPostgres, audit.DialectPostgres
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	db, err := storage.Open(ctx, storage.ConnectionConfig{
		Driver:          driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectTimeout:  cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := audit.NewDBStore(db, dialect, audit.WithQueryTimeout(cfg.QueryTimeout))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// newLimiter returns nil when rate limiting is disabled
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (middleware.Limiter, *redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	limitConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.BurstSize,
		MaxKeys:           cfg.MaxKeys,
	}

	if cfg.RedisURL == "" {
		return middleware.NewRateLimiter(limitConfig), nil, nil
	}

	client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return middleware.NewDistributedRateLimiter(client, limitConfig, ""), client, nil
}

func newAPIHandler(service audit.EventService, checker *observability.HealthChecker, limiter middleware.Limiter, metrics *observability.Metrics, logger *observability.Logger, maxBodyBytes int64) http.Handler {
	router := mux.NewRouter()
	router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		observability.HTTPMetricsMiddleware(metrics),
	)
	if limiter != nil {
		router.Use(middleware.NewRateLimitMiddleware(limiter, logger, metrics).Handler)
	}
	if maxBodyBytes > 0 {
		router.Use(httputil.MaxBytesMiddleware(maxBodyBytes))
	}
	router.Use(httputil.ContentTypeMiddleware)

	audit.NewHandlers(service, logger).RegisterRoutes(router)
	if checker != nil {
		router.HandleFunc(observability.HealthDetailsPath, checker.Details).Methods(http.MethodGet)
	}

	return otelhttp.NewHandler(router, "auditlog-api")
}

// newHealthHandler serves health checks and /metrics on the health port. It skips the
// API's logging and rate limiting so health checks stay cheap.
func newHealthHandler(checker *observability.HealthChecker, registry *prometheus.Registry, metricsEnabled bool, logger *observability.Logger) http.Handler {
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if metricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(logger),
	)(healthMux)
}
