package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/publish-guard/config"
)

func setTestEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "0")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "2s")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	setTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// without a secret every API route is rejected
	resp, err = http.Get("http://" + addr + "/api/v1/settings")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_DRIVER", "oracle")

	err := run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         9000,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 4 * time.Second,
	}}

	srv := newHTTPServer(cfg, http.NotFoundHandler())
	assert.Equal(t, "127.0.0.1:9000", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 4*time.Second, srv.WriteTimeout)
}
