// Package handlers implements the HTTP boundary of the log inspector. The
// normalized result JSON returned by these endpoints is the sole contract
// with presentation code.
package handlers

import (
	"github.com/mnecas/forklift-log-inspector-sub000/internal/config"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/worker"
)

// Server bundles the dependencies of all route handlers.
type Server struct {
	cfg  *config.Config
	pool *worker.Pool
}

// NewServer creates a handler server. The pool may be nil, in which case
// archive members parse sequentially.
func NewServer(cfg *config.Config, pool *worker.Pool) *Server {
	return &Server{cfg: cfg, pool: pool}
}
