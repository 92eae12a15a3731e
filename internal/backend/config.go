package backend

import (
	"fmt"

	"splitledger/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.StoreBackend)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid store backend in config: %s", appConfig.StoreBackend)
	}

	notifierType := NotifierType(appConfig.Notifier)
	if !notifierType.IsValid() {
		return Config{}, fmt.Errorf("invalid notifier in config: %s", appConfig.Notifier)
	}

	return Config{
		Store:    storeType,
		Notifier: notifierType,

		DataDirectory: appConfig.DataDirectory,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		PostgresDSN:   appConfig.PostgresDSN,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		KafkaBrokers: appConfig.KafkaBrokers,
		KafkaTopic:   appConfig.KafkaTopic,

		CacheSize: appConfig.CacheSize,
		CacheTTL:  appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Store)
	}
	if !c.Notifier.IsValid() {
		return fmt.Errorf("invalid notifier type: %s", c.Notifier)
	}

	switch c.Store {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite store")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres store")
		}
	case MemoryStore:
		// DataDirectory defaults to "data" if empty
	}

	switch c.Notifier {
	case AMQPNotifier:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp notifier")
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP exchange and queue are required for amqp notifier")
		}
	case KafkaNotifier:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("Kafka brokers are required for kafka notifier")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("Kafka topic is required for kafka notifier")
		}
	}

	return nil
}
