package wire

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/engine"
	"github.com/sevigo/hook-warden/internal/events"
	"github.com/sevigo/hook-warden/internal/logger"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/internal/queue"
	"github.com/sevigo/hook-warden/internal/storage"
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging, nil)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func providePolicy(cfg *config.Config, log *slog.Logger) (*core.Policy, error) {
	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		if errors.Is(err, config.ErrPolicyNotFound) {
			log.Warn("policy file not found, using built-in defaults", "path", cfg.PolicyPath)
			return policy, nil
		}
		return nil, fmt.Errorf("failed to load automation policy: %w", err)
	}
	return policy, nil
}

func provideProcessor(log *slog.Logger) core.Processor {
	return events.NewProcessor(log)
}

func provideEngine(policy *core.Policy, log *slog.Logger) (core.Evaluator, error) {
	return engine.New(policy, log)
}

func provideMonitor(cfg *config.Config, log *slog.Logger) *perf.Monitor {
	return perf.NewMonitor(cfg.Monitor.Retention, perf.Thresholds{
		SlowProcessing: cfg.Monitor.SlowProcessing,
		SlowQueueWait:  cfg.Monitor.SlowQueueWait,
	}, log)
}

func provideQueueManager(cfg *config.Config, processor core.Processor, evaluator core.Evaluator, monitor *perf.Monitor, store storage.Store, log *slog.Logger) core.QueueManager {
	return queue.NewManager(queue.Options{
		MaxWorkers:   cfg.Queue.MaxWorkers,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		JobTimeout:   cfg.Queue.JobTimeout,
		RetryToFront: cfg.Queue.RetryToFront,
		Retention:    cfg.Queue.Retention,
	}, processor, evaluator, monitor, store, log)
}
