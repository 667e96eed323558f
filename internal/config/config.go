// Package config loads and validates the application's configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/hook-warden/internal/logger"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// QueueConfig tunes the priority queue manager.
type QueueConfig struct {
	MaxWorkers   int
	MaxAttempts  int
	JobTimeout   time.Duration
	RetryToFront bool
	Retention    time.Duration
}

// WebhookConfig holds the ingestion boundary settings.
type WebhookConfig struct {
	Secret          string
	RateLimitPerMin int
}

// MonitorConfig tunes the performance monitor.
type MonitorConfig struct {
	Retention      time.Duration
	SlowProcessing time.Duration
	SlowQueueWait  time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	Server     ServerConfig
	Logging    logger.Config
	Database   DBConfig
	Queue      QueueConfig
	Webhook    WebhookConfig
	Monitor    MonitorConfig
	PolicyPath string
}

// LoadConfig reads configuration from environment variables and a .env
// file, sets sensible defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "warden")
	viper.SetDefault("DB_NAME", "hookwarden")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINS", 30)
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("MAX_ATTEMPTS", 3)
	viper.SetDefault("JOB_TIMEOUT_SECS", 30)
	viper.SetDefault("RETRY_TO_FRONT", false)
	viper.SetDefault("JOB_RETENTION_MINS", 15)
	viper.SetDefault("RATE_LIMIT_PER_MIN", 120)
	viper.SetDefault("METRIC_RETENTION_MINS", 60)
	viper.SetDefault("SLOW_PROCESSING_MS", 5000)
	viper.SetDefault("SLOW_QUEUE_WAIT_MS", 2000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}
	viper.AutomaticEnv()

	if viper.GetString("WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET must be set")
	}
	if viper.GetInt("MAX_WORKERS") <= 0 {
		return nil, fmt.Errorf("MAX_WORKERS must be positive")
	}
	if viper.GetInt("MAX_ATTEMPTS") <= 0 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be positive")
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSL_MODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME_MINS")) * time.Minute,
		},
		Queue: QueueConfig{
			MaxWorkers:   viper.GetInt("MAX_WORKERS"),
			MaxAttempts:  viper.GetInt("MAX_ATTEMPTS"),
			JobTimeout:   time.Duration(viper.GetInt("JOB_TIMEOUT_SECS")) * time.Second,
			RetryToFront: viper.GetBool("RETRY_TO_FRONT"),
			Retention:    time.Duration(viper.GetInt("JOB_RETENTION_MINS")) * time.Minute,
		},
		Webhook: WebhookConfig{
			Secret:          viper.GetString("WEBHOOK_SECRET"),
			RateLimitPerMin: viper.GetInt("RATE_LIMIT_PER_MIN"),
		},
		Monitor: MonitorConfig{
			Retention:      time.Duration(viper.GetInt("METRIC_RETENTION_MINS")) * time.Minute,
			SlowProcessing: time.Duration(viper.GetInt("SLOW_PROCESSING_MS")) * time.Millisecond,
			SlowQueueWait:  time.Duration(viper.GetInt("SLOW_QUEUE_WAIT_MS")) * time.Millisecond,
		},
		PolicyPath: viper.GetString("POLICY_PATH"),
	}, nil
}
