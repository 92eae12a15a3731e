// Package backend wires a persistence store, the account cache and a
// change notifier together from configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/amqp"
	"splitledger/internal/events/kafka"
	"splitledger/internal/storage"
	"splitledger/internal/storage/postgres"
	"splitledger/internal/store"
	"splitledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		stores  Stores
		closers []CleanupFunc
	)

	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		stores = Stores{Accounts: repo, Expenses: repo, Directory: repo}
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)

	case PostgresStore:
		pg, err := postgres.NewStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		stores = Stores{Accounts: pg, Expenses: pg, Directory: pg}
		closers = append(closers, pg.Close)
		f.logger.Info("Initialized Postgres store")

	case MemoryStore:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		mem := memory.NewFromFiles(dataDir)
		stores = Stores{Accounts: mem, Expenses: mem, Directory: mem}
		f.logger.Info("Initialized memory store", "data_directory", dataDir)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Store)
	}

	if config.CacheSize > 0 {
		stores.Accounts = store.NewCachedAccounts(stores.Accounts, config.CacheSize, config.CacheTTL)
		f.logger.Info("Account cache enabled", "size", config.CacheSize, "ttl", config.CacheTTL)
	}

	notifier, notifierCleanup, err := f.createNotifier(config)
	if err != nil {
		runCleanups(closers, f.logger)
		return nil, err
	}
	if notifierCleanup != nil {
		closers = append(closers, notifierCleanup)
	}

	return &BackendResult{
		Stores:   stores,
		Notifier: notifier,
		Cleanup:  combineCleanups(closers),
	}, nil
}

func (f *DefaultFactory) createNotifier(config Config) (store.Notifier, CleanupFunc, error) {
	switch config.Notifier {
	case AMQPNotifier:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize amqp notifier: %w", err)
		}
		f.logger.Info("Initialized AMQP notifier",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client, client.Close, nil

	case KafkaNotifier:
		publisher := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		f.logger.Info("Initialized Kafka notifier",
			"brokers", config.KafkaBrokers,
			"topic", config.KafkaTopic)
		return publisher, publisher.Close, nil

	case NoNotifier:
		return nil, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported notifier type: %s", config.Notifier)
	}
}

func combineCleanups(closers []CleanupFunc) CleanupFunc {
	if len(closers) == 0 {
		return nil
	}
	return func() error {
		var firstErr error
		// Close in reverse order of creation
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

func runCleanups(closers []CleanupFunc, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("Cleanup failed", "error", err)
		}
	}
}
