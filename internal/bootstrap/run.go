package bootstrap

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/session-authority/config"
)

// RunConfig groups dependencies for Run.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// Run starts the auth state machine and the HTTP server, then blocks until
// SIGINT/SIGTERM and shuts everything down gracefully. The machine owns the
// realtime sync lifecycle: starting it here brings the local session view up
// before traffic consults it.
func Run(ctx context.Context, cfg RunConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Services != nil && cfg.Services.AuthState != nil {
		cfg.Services.AuthState.Start(ctx)
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   cfg.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()

		if cfg.Services != nil {
			if cfg.Services.AuthState != nil {
				cfg.Services.AuthState.Stop()
			}
			if cfg.Services.Events != nil {
				cfg.Services.Events.Close()
			}
		}
		// Shutdown runs on a fresh context; gctx is already canceled.
		return ShutdownHTTPServer(context.Background(), server, cfg.Logger)
	})

	return g.Wait()
}
