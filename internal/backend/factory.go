package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"salesbook/internal/amqp"
	"salesbook/internal/cache"
	"salesbook/internal/sheets/memory"
	"salesbook/internal/storage"
)

const (
	defaultCacheOwners = 256
	defaultCacheTTL    = 5 * time.Minute
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
		store   Backend
		closers []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	maxOwners, ttl := config.CacheMaxOwners, config.CacheTTL
	if maxOwners < 1 {
		maxOwners = defaultCacheOwners
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	result := &BackendResult{
		Backend:      store,
		Transactions: cache.NewTransactionStore(store, maxOwners, ttl),
	}

	// AMQP is optional: without a broker the ledger still works, the
	// report worker just stops hearing about changes.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			result.Publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return result, nil
}
