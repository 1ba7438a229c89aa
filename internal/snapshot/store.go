package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yockey88/DotOther/internal/config"
)

// Store defines the interface for all snapshot backends
type Store interface {
	// Get retrieves a value, returning an error wrapping ErrMiss when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; zero means the store default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the store prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	Close() error
}

// ErrMiss is wrapped by Get when the key is absent or expired.
var ErrMiss = errors.New("snapshot miss")

func miss(key string) error {
	return fmt.Errorf("%s: %w", key, ErrMiss)
}

// Options holds configuration common to all backends
type Options struct {
	// DefaultTTL applies when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		DefaultTTL: time.Hour,
		Prefix:     "dotother:",
	}
}

// Open creates the store selected by cfg.
func Open(cfg config.SnapshotConfig) (Store, error) {
	opts := Options{DefaultTTL: cfg.TTL, Prefix: cfg.Prefix}

	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(opts), nil
	case config.BackendRedis:
		return NewRedisStore(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Options:  opts,
		})
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLite.Path, opts)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
