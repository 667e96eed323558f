//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/sevigo/hook-warden/internal/app"
	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/db"
	"github.com/sevigo/hook-warden/internal/server"
	"github.com/sevigo/hook-warden/internal/storage"
)

// InitializeApp builds the full dependency graph of the service.
func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		app.New,
		server.NewServer,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewStore,
		providePolicy,
		provideEngine,
		provideMonitor,
		provideQueueManager,
		provideProcessor,
		provideLogger,
		provideDBConfig,
	)
	return &app.App{}, nil, nil
}
