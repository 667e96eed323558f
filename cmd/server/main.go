package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/hook-warden/internal/wire"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := wire.InitializeApp()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	slog.Info("starting hook-warden application")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Start()
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("received shutdown signal")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down")
		}
		return app.Stop()
	})

	return g.Wait()
}
