// Package kvs is the key-value layer behind portal sessions, rate limits and
// the development backend's pending registrations. Memory, LevelDB and Redis
// backends share one TTL-aware Store contract.
package kvs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is a key-value store with per-key TTL. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A ttl <= 0 means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// List returns live keys starting with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	Count(ctx context.Context, prefix string) (int, error)

	// Close releases resources. Later calls return ErrClosed.
	Close() error
}

var (
	ErrNotFound = errors.New("kvs: key not found")
	ErrClosed   = errors.New("kvs: store is closed")
)

// Config selects and configures a backend.
type Config struct {
	// Type is "memory" (default), "leveldb" or "redis".
	Type string `yaml:"type" json:"type"`

	// Namespace isolates stores sharing a backend. Memory and Redis use it as
	// a key prefix, LevelDB as a directory suffix when no path is set.
	Namespace string `yaml:"namespace" json:"namespace"`

	Memory  MemoryConfig  `yaml:"memory" json:"memory"`
	LevelDB LevelDBConfig `yaml:"leveldb" json:"leveldb"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// CleanupInterval defaults to 5 minutes.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// LevelDBConfig configures the LevelDB store.
type LevelDBConfig struct {
	// Path defaults to a "turingreg" directory under the user cache dir.
	Path            string        `yaml:"path" json:"path"`
	SyncWrites      bool          `yaml:"sync_writes" json:"sync_writes"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

const defaultCleanupInterval = 5 * time.Minute

type options struct {
	clock clockwork.Clock
}

// Option customizes store construction.
type Option func(*options)

// WithClock makes the memory and LevelDB backends evaluate expiry against c.
// Redis expiry is always server side.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a store for cfg.
func New(cfg Config, opts ...Option) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(cfg.Namespace, cfg.Memory, opts...)
	case "leveldb":
		return NewLevelDBStore(cfg.Namespace, cfg.LevelDB, opts...)
	case "redis":
		return NewRedisStore(cfg.Namespace, cfg.Redis)
	default:
		return nil, fmt.Errorf("kvs: unsupported store type: %s", cfg.Type)
	}
}

// GetJSON loads key and decodes it into v.
func GetJSON(ctx context.Context, store Store, key string, v interface{}) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("kvs: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvs: encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data, ttl)
}
