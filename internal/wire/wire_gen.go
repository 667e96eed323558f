// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"fmt"

	"github.com/sevigo/hook-warden/internal/app"
	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/db"
	"github.com/sevigo/hook-warden/internal/server"
	"github.com/sevigo/hook-warden/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp() (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := provideLogger(cfg)

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store := storage.NewStore(dbConn.DB)

	policy, err := providePolicy(cfg, log)
	if err != nil {
		dbCleanup()
		return nil, nil, err
	}

	evaluator, err := provideEngine(policy, log)
	if err != nil {
		dbCleanup()
		return nil, nil, err
	}

	processor := provideProcessor(log)
	monitor := provideMonitor(cfg, log)
	queueManager := provideQueueManager(cfg, processor, evaluator, monitor, store, log)

	httpServer := server.NewServer(cfg, queueManager, monitor, store, log)
	application := app.New(cfg, httpServer, queueManager, monitor, log)

	cleanup := func() {
		dbCleanup()
	}
	return application, cleanup, nil
}
