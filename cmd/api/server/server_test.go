package server

import (
	"context"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-service/internal/config"
)

func TestNew_ConfiguresTimeouts(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: "8089"}}

	s := New(cfg, zaptest.NewLogger(t), http.NotFoundHandler())

	assert.Equal(t, ":8089", s.HTTP.Addr)
	assert.Equal(t, 2*time.Second, s.HTTP.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, s.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.HTTP.WriteTimeout)
	assert.Equal(t, 120*time.Second, s.HTTP.IdleTimeout)
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: "0"}}
	s := New(cfg, zaptest.NewLogger(t), http.NotFoundHandler())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	// give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartFailsOnBadAddress(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: "not-a-port"}}
	s := New(cfg, zaptest.NewLogger(t), http.NotFoundHandler())

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serve")
}

func TestWithSignal(t *testing.T) {
	ctx, stop := WithSignal(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled by signal")
	}
}

func TestWithSignal_StopCancels(t *testing.T) {
	ctx, stop := WithSignal(context.Background())
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not cancel the context")
	}
}
