package backend

import (
	"context"
	"time"

	"salesbook/internal/cache"
	"salesbook/internal/services"
	"salesbook/internal/sheets"
)

// Backend is the storage a binary runs against.
type Backend interface {
	sheets.TransactionStore
	sheets.GoalStore
	sheets.OwnerLister
}

// Pinger is implemented by backends with an external dependency to probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Transactions is Backend behind the per-owner list cache.
	Transactions *cache.TransactionStore
	// Publisher is nil when AMQP is not configured.
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional ledger event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CacheMaxOwners int
	CacheTTL       time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
