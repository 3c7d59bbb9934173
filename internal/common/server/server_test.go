package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

func TestShutdown_RunsHooksAndStopsServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := DefaultConfig("0")
	srv := New(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var calls []int
	Shutdown(srv, cfg, logger.Discard(), "test",
		func(ctx context.Context) error {
			calls = append(calls, 1)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		},
		func(ctx context.Context) error {
			calls = append(calls, 2)
			return errors.New("ignored")
		},
	)

	assert.Equal(t, []int{1, 2}, calls)
	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("3333")
	assert.Equal(t, ":3333", cfg.Addr)
	assert.Greater(t, cfg.ShutdownTimeout, cfg.DrainTimeout)
}
