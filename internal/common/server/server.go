package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

type ShutdownHook func(ctx context.Context) error

// Run serves until SIGINT or SIGTERM, then runs hooks within the drain
// period and shuts the server down.
func Run(server *http.Server, cfg Config, log *logger.Logger, serviceName string, hooks ...ShutdownHook) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("%s listening on %s", serviceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		log.Fatalf("%s failed to start: %v", serviceName, err)
	case <-quit:
	}

	log.Infof("shutting down %s...", serviceName)
	Shutdown(server, cfg, log, serviceName, hooks...)
}

// Shutdown stops keep-alives, runs hooks and waits for in-flight requests.
func Shutdown(server *http.Server, cfg Config, log *logger.Logger, serviceName string, hooks ...ShutdownHook) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	drainCtx, drainCancel := context.WithTimeout(shutdownCtx, cfg.DrainTimeout)
	defer drainCancel()

	server.SetKeepAlivesEnabled(false)
	for i, hook := range hooks {
		if err := hook(drainCtx); err != nil {
			log.Errorf("%s: shutdown hook %d failed: %v", serviceName, i, err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s forced to shut down: %v", serviceName, err)
		return
	}
	log.Infof("%s stopped gracefully", serviceName)
}
