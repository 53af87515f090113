package server

import (
	"net/http"
	"syscall"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGracefulServer_SIGHUPDoesNotShutDown(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	go func() {
		if err := gs.Start(); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("Failed to send SIGHUP: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if gs.IsShuttingDown() {
		t.Error("Server should not be shutting down after SIGHUP")
	}

	if err := gs.Shutdown(1 * time.Second); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}
}

func TestGracefulServer_ReloadConfig(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	reloadCalled := false
	gs.SetConfigReloadFunc(func() error {
		reloadCalled = true
		return nil
	})

	if err := gs.ReloadConfig(); err != nil {
		t.Errorf("ReloadConfig() error = %v", err)
	}
	if !reloadCalled {
		t.Error("Config reload function was not called")
	}
}

func TestGracefulServer_ReloadConfigPropagatesError(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	gs.SetConfigReloadFunc(func() error {
		return http.ErrServerClosed
	})

	err := gs.ReloadConfig()
	if err != http.ErrServerClosed {
		t.Errorf("ReloadConfig() error = %v, want %v", err, http.ErrServerClosed)
	}
}

func TestGracefulServer_ReloadConfigWithoutFunc(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	if err := gs.ReloadConfig(); err != nil {
		t.Errorf("ReloadConfig() without a reload func should be a no-op, got %v", err)
	}
}

func TestGracefulServer_ShutdownIsIdempotent(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	go func() {
		_ = gs.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	if err := gs.Shutdown(1 * time.Second); err != nil {
		t.Errorf("First shutdown error: %v", err)
	}
	if err := gs.Shutdown(1 * time.Second); err != nil {
		t.Errorf("Second shutdown error: %v", err)
	}
	if !gs.IsShuttingDown() {
		t.Error("IsShuttingDown should report true after shutdown")
	}
}
