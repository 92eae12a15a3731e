package backend

import (
	"context"
	"time"

	"splitledger/internal/store"
)

// Stores bundles the persistence ports a backend provides
type Stores struct {
	Accounts  store.AccountStore
	Expenses  store.ExpenseStore
	Directory store.Directory
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired stores, the change notifier (nil when
// notifications are disabled) and an optional cleanup function
type BackendResult struct {
	Stores   Stores
	Notifier store.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store    StoreType
	Notifier NotifierType

	// Memory specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Kafka specific
	KafkaBrokers []string
	KafkaTopic   string

	// Account cache; zero disables caching
	CacheSize int
	CacheTTL  time.Duration
}

// StoreType represents the persistence backend
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

// String implements fmt.Stringer
func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

// NotifierType represents the change notification transport
type NotifierType string

const (
	NoNotifier    NotifierType = "none"
	AMQPNotifier  NotifierType = "amqp"
	KafkaNotifier NotifierType = "kafka"
)

// String implements fmt.Stringer
func (nt NotifierType) String() string {
	return string(nt)
}

// IsValid returns true if the notifier type is valid
func (nt NotifierType) IsValid() bool {
	switch nt {
	case NoNotifier, AMQPNotifier, KafkaNotifier:
		return true
	default:
		return false
	}
}
