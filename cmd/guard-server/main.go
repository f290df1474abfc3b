// Command guard-server serves the publish guard HTTP API: items and their
// guarded status transitions, the settings surface and the editor bootstrap.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/app"
	"github.com/upb/publish-guard/config"
	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/routes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, nil); err != nil {
		fmt.Fprintf(os.Stderr, "guard-server: %v\n", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. When ready is not nil it receives the
// bound address once the listener is open.
func run(ctx context.Context, ready chan<- string) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.With(zap.String("service", "guard-server"), zap.String("environment", cfg.Environment))

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(shutdownCtx); err != nil {
			logger.Error("dependency shutdown failed", zap.Error(err))
		}
	}()

	srv := newHTTPServer(cfg, routes.SetupRoutes(deps))

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("guard-server listening",
			zap.String("addr", ln.Addr().String()),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		if cfg.Server.TLS.Enabled {
			errCh <- srv.ServeTLS(ln, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down guard-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-errCh
	return nil
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
}
