// Package app wires configuration, logging, the worker pool and the HTTP
// router into a runnable application.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/api/handlers"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/config"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/logger"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/worker"
)

// App holds the assembled application.
type App struct {
	cfg    *config.Config
	pool   *worker.Pool
	server *http.Server
}

// Bootstrap assembles the application from configuration.
func Bootstrap(cfg *config.Config) (*App, error) {
	pool, err := worker.NewPool("parse", cfg.Engine.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	srv := handlers.NewServer(cfg, pool)
	router := newRouter(cfg, srv)

	return &App{
		cfg:  cfg,
		pool: pool,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// ListenAndServe runs the HTTP server until it fails or Shutdown is called.
func (a *App) ListenAndServe() error {
	logger.Info("listening", zap.String("addr", a.server.Addr))
	return a.server.ListenAndServe()
}

// Shutdown stops the HTTP server and the worker pool.
func (a *App) Shutdown(ctx context.Context) error {
	defer a.pool.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
