// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/ManuGH/camhls/internal/config"
	"github.com/ManuGH/camhls/internal/log"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ReadTimeout:     1 * time.Second,
		WriteTimeout:    1 * time.Second,
		IdleTimeout:     10 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func waitReady(t *testing.T, m *manager) string {
	t.Helper()
	select {
	case <-m.ready:
		return m.addr()
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not bind in time")
		return ""
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestNewManager_ValidDeps(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: http.NotFoundHandler(),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr == nil {
		t.Fatal("NewManager() returned nil manager")
	}
}

func TestNewManager_InvalidDeps(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		want error
	}{
		{"missing logger", Deps{Logger: zerolog.Nop(), ListenAddr: ":0", APIHandler: http.NotFoundHandler()}, ErrMissingLogger},
		{"missing handler", Deps{Logger: log.WithComponent("test"), ListenAddr: ":0"}, ErrMissingAPIHandler},
		{"missing addr", Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()}, ErrMissingListenAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(testServerConfig(), tt.deps)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewManager() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestManager_StartStop_OK(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: okHandler(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()

	addr := waitReady(t, m)
	if code, body := get(t, "http://"+addr+"/"); code != http.StatusOK || body != "OK" {
		t.Fatalf("GET / = %d %q", code, body)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestManager_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: okHandler(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()
	waitReady(t, m)

	if err := m.Start(ctx); !errors.Is(err, ErrManagerAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want %v", err, ErrManagerAlreadyStarted)
	}
	cancel()
	if err := <-errChan; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestManager_ShutdownHooksRunLIFO(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: okHandler(),
	})

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	m.RegisterShutdownHook("orchestrator", record("orchestrator"))
	m.RegisterShutdownHook("redis", record("redis"))
	m.RegisterShutdownHook("sqlite", record("sqlite"))

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()
	waitReady(t, m)
	cancel()
	if err := <-errChan; err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := strings.Join(order, ","); got != "sqlite,redis,orchestrator" {
		t.Fatalf("hook order = %s", got)
	}
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: okHandler(),
	})
	boom := errors.New("boom")
	m.RegisterShutdownHook("bad", func(context.Context) error { return boom })
	m.RegisterShutdownHook("good", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()
	waitReady(t, m)
	cancel()

	err := <-errChan
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "hook bad") {
		t.Fatalf("error %q does not name the hook", err)
	}
}

func TestManager_Shutdown_TimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	requestStarted := make(chan struct{})
	releaseHandler := make(chan struct{})
	var once sync.Once
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(requestStarted) })
		select {
		case <-r.Context().Done():
		case <-releaseHandler:
		}
	})

	cfg := testServerConfig()
	cfg.ShutdownTimeout = 100 * time.Millisecond
	m := newManager(cfg, Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: handler,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()
	addr := waitReady(t, m)

	requestDone := make(chan struct{})
	go func() {
		defer close(requestDone)
		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+addr, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-requestStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected in-flight request before shutdown")
	}

	cancel()

	select {
	case err := <-errChan:
		if err == nil {
			t.Fatal("expected shutdown timeout error, got nil")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("unexpected shutdown error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	close(releaseHandler)

	select {
	case <-requestDone:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked request did not terminate after shutdown")
	}
}

func TestManager_Shutdown_NotStarted(t *testing.T) {
	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: "127.0.0.1:0",
		APIHandler: http.NotFoundHandler(),
	})
	if err := m.Shutdown(context.Background()); !errors.Is(err, ErrManagerNotStarted) {
		t.Errorf("Shutdown() error = %v, want %v", err, ErrManagerNotStarted)
	}
}

func TestManager_WithMetrics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newManager(testServerConfig(), Deps{
		Logger:      log.WithComponent("test"),
		ListenAddr:  "127.0.0.1:0",
		APIHandler:  okHandler(),
		MetricsAddr: "127.0.0.1:0",
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# HELP test_metric\n"))
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- m.Start(ctx) }()
	waitReady(t, m)

	m.mu.Lock()
	hasMetrics := m.metricsServer != nil
	m.mu.Unlock()
	if !hasMetrics {
		t.Fatal("metrics server not started")
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestManager_PropagatesListenErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	occupied := httptest.NewServer(http.NotFoundHandler())
	defer occupied.Close()

	m := newManager(testServerConfig(), Deps{
		Logger:     log.WithComponent("test"),
		ListenAddr: occupied.Listener.Addr().String(),
		APIHandler: http.NotFoundHandler(),
	})

	hookRan := false
	m.RegisterShutdownHook("cleanup", func(context.Context) error {
		hookRan = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Start(ctx); err == nil {
		t.Fatal("Start() expected error for port conflict, got nil")
	}
	if !hookRan {
		t.Fatal("shutdown hooks must run when binding fails")
	}
}
