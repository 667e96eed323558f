// Package app initializes and orchestrates the main components of the
// hook pipeline: configuration, the queue manager, the performance
// monitor, and the HTTP server.
package app

import (
	"log/slog"

	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/internal/server"
)

// App holds the main application components.
type App struct {
	cfg     *config.Config
	server  *server.Server
	queue   core.QueueManager
	monitor *perf.Monitor
	logger  *slog.Logger
}

// New assembles the application from its wired components.
func New(cfg *config.Config, srv *server.Server, queue core.QueueManager, monitor *perf.Monitor, logger *slog.Logger) *App {
	return &App{
		cfg:     cfg,
		server:  srv,
		queue:   queue,
		monitor: monitor,
		logger:  logger,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting hook-warden",
		"server_port", a.cfg.Server.Port,
		"max_workers", a.cfg.Queue.MaxWorkers,
		"max_attempts", a.cfg.Queue.MaxAttempts,
	)
	return a.server.Start()
}

// Stop shuts the application down in dependency order: the HTTP server
// first so no new webhooks arrive, then the queue so in-flight jobs
// drain, then the monitor.
func (a *App) Stop() error {
	a.logger.Info("shutting down hook-warden services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Keep going: the queue still has to drain.
	}

	a.queue.Stop()
	a.monitor.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("hook-warden stopped successfully")
	return nil
}
