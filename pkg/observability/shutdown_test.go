package observability

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestShutdownManager(timeout time.Duration) *ShutdownManager {
	return NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), timeout)
}

func TestNewShutdownManager(t *testing.T) {
	sm := newTestShutdownManager(0)
	if sm.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("Expected default timeout, got %v", sm.shutdownTimeout)
	}

	sm = newTestShutdownManager(5 * time.Second)
	if sm.shutdownTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", sm.shutdownTimeout)
	}
}

func TestShutdown_ReverseOrder(t *testing.T) {
	sm := newTestShutdownManager(time.Second)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"store", "otel", "redis"} {
		name := name
		sm.RegisterShutdownFunc(name, func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"redis", "otel", "store"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, order)
		}
	}
}

func TestShutdown_CollectsErrors(t *testing.T) {
	sm := newTestShutdownManager(time.Second)
	errFirst := errors.New("first failed")
	errSecond := errors.New("second failed")

	sm.RegisterShutdownFunc("first", func(ctx context.Context) error { return errFirst })
	sm.RegisterShutdownFunc("second", func(ctx context.Context) error { return errSecond })

	err := sm.Shutdown(context.Background())
	if !errors.Is(err, errFirst) || !errors.Is(err, errSecond) {
		t.Errorf("Expected both errors, got %v", err)
	}

	// idempotent
	if again := sm.Shutdown(context.Background()); again != err {
		t.Errorf("Expected the first result on repeated shutdown, got %v", again)
	}
}

func TestShutdown_RecoversPanickingFunc(t *testing.T) {
	sm := newTestShutdownManager(time.Second)

	closed := false
	sm.RegisterShutdownFunc("database", func(ctx context.Context) error {
		closed = true
		return nil
	})
	sm.RegisterShutdownFunc("redis", func(ctx context.Context) error {
		panic("nil client")
	})

	err := sm.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic in shutdown of redis: nil client") {
		t.Errorf("Expected converted panic, got %v", err)
	}
	if !closed {
		t.Error("Expected remaining shutdown funcs to run after a panic")
	}
}

func TestShutdown_DrainsServers(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	server := &http.Server{Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()

	sm := newTestShutdownManager(time.Second)
	sm.RegisterServer(server)

	var closed bool
	sm.RegisterShutdownFunc("store", func(ctx context.Context) error {
		closed = true
		return nil
	})

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Server did not stop")
	}

	if !closed {
		t.Error("Expected shutdown func to run after servers stopped")
	}
}

func TestShutdown_Timeout(t *testing.T) {
	sm := newTestShutdownManager(20 * time.Millisecond)

	var ran bool
	sm.RegisterShutdownFunc("late", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.RegisterShutdownFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := sm.Shutdown(context.Background())
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if ran {
		t.Error("Expected remaining shutdown funcs to be skipped after timeout")
	}
}

func TestWaitForSignal_ContextDone(t *testing.T) {
	sm := newTestShutdownManager(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sm.WaitForSignal(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForSignal did not return after context cancellation")
	}
}

func TestRecoverToError(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})

	run := func() (err error) {
		defer RecoverToError(logger, "test", &err)
		panic("kaboom")
	}

	if err := run(); err == nil || err.Error() != "panic in test: kaboom" {
		t.Errorf("Expected converted panic, got %v", err)
	}

	func() {
		defer RecoverPanic(logger, "swallowed")
		panic("ignored")
	}()
}
