// Package cli provides common CLI initialization utilities shared by
// cmd/finledger and cmd/finledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finledger/internal/amqp"
	"finledger/internal/config"
	"finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads .env for local development, then the environment.
// Returns the config or exits the process on validation failure.
func LoadConfig() (*config.Config, *log.Logger) {
	dotEnvErr := config.LoadDotEnv()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if dotEnvErr != nil {
		logger.Warn("Ignoring unreadable .env file", log.FieldError, dotEnvErr)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the database and applies migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	if v, dirty, err := storage.SchemaVersion(dbPath); err == nil {
		logger.Info("SQLite ready", "path", dbPath, "schema_version", v, "dirty", dirty)
	}
	return repo
}

// InitAMQP connects to the broker when one is configured. A nil client means
// messaging is disabled.
func InitAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.MessagingEnabled() {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPConfirmedKey)
	if err != nil {
		return nil, err
	}
	logger.WithComponent(log.ComponentAMQP).Info("AMQP client connected",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// NewImportService wires the reconciliation engine. client may be nil.
func NewImportService(cfg *config.Config, repo *storage.SQLiteRepository, client *amqp.Client, logger *log.Logger) *services.ImportService {
	// A typed nil client must not become a non-nil publisher.
	var publisher services.EventPublisher
	if client != nil {
		publisher = client
	}
	return services.NewImportService(repo, publisher, services.ImportConfig{
		Rules: cfg.Rules(),
		Keys:  cfg.NaturalKeys,
	}, logger)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
