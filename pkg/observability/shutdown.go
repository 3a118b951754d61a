package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds the whole shutdown sequence
const DefaultShutdownTimeout = 30 * time.Second

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdownFunc struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager stops HTTP servers and then releases the resources
// registered with it
type ShutdownManager struct {
	logger          *Logger
	servers         []*http.Server
	shutdownFuncs   []namedShutdownFunc
	shutdownTimeout time.Duration
	mu              sync.Mutex
	once            sync.Once
	result          error
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &ShutdownManager{
		logger:          logger,
		shutdownTimeout: timeout,
	}
}

// RegisterServer adds a server to drain on shutdown
func (sm *ShutdownManager) RegisterServer(server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, server)
}

// RegisterShutdownFunc registers a function to call once all servers have stopped.
// Functions run in reverse registration order.
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, namedShutdownFunc{name: name, fn: fn})
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives or ctx is done
func (sm *ShutdownManager) WaitForSignal(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() == nil {
		sm.logger.Info("Received shutdown signal, starting graceful shutdown")
	}
}

// Shutdown drains the servers and runs the shutdown functions. Later calls
// return the result of the first.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.once.Do(func() {
		sm.result = sm.shutdown(ctx)
	})
	return sm.result
}

func (sm *ShutdownManager) shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, sm.shutdownTimeout)
	defer cancel()

	sm.mu.Lock()
	servers := append([]*http.Server(nil), sm.servers...)
	funcs := append([]namedShutdownFunc(nil), sm.shutdownFuncs...)
	sm.mu.Unlock()

	var errs []error

	var wg sync.WaitGroup
	var errMu sync.Mutex
	for _, server := range servers {
		wg.Add(1)
		go func(server *http.Server) {
			defer wg.Done()
			defer RecoverPanic(sm.logger, "shutdown of HTTP server "+server.Addr)
			sm.logger.Infof("Shutting down HTTP server on %s", server.Addr)
			if err := server.Shutdown(ctx); err != nil {
				sm.logger.WithError(err).Error("HTTP server shutdown error")
				errMu.Lock()
				errs = append(errs, fmt.Errorf("HTTP server %s shutdown failed: %w", server.Addr, err))
				errMu.Unlock()
			}
		}(server)
	}
	wg.Wait()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		if ctx.Err() != nil {
			sm.logger.Warn("Shutdown timeout reached, skipping remaining shutdown functions")
			errs = append(errs, fmt.Errorf("shutdown timeout reached before %s", f.name))
			break
		}
		if err := sm.runShutdownFunc(ctx, f); err != nil {
			sm.logger.WithError(err).Errorf("Shutdown of %s failed", f.name)
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		sm.logger.Debugf("Shutdown of %s complete", f.name)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}

// runShutdownFunc keeps a panicking cleanup from aborting the rest of shutdown
func (sm *ShutdownManager) runShutdownFunc(ctx context.Context, f namedShutdownFunc) (err error) {
	defer RecoverToError(sm.logger, "shutdown of "+f.name, &err)
	return f.fn(ctx)
}
