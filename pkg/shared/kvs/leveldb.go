package kvs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists values on disk. Each value carries an 8-byte
// big-endian expiry header (unix nanoseconds, 0 = never).
type LevelDBStore struct {
	namespace       string
	db              *leveldb.DB
	clock           clockwork.Clock
	writeOpts       *opt.WriteOptions
	cleanupInterval time.Duration

	mu     sync.RWMutex
	closed bool

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewLevelDBStore opens (or creates) a LevelDB store.
func NewLevelDBStore(namespace string, cfg LevelDBConfig, opts ...Option) (*LevelDBStore, error) {
	o := buildOptions(opts)

	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = defaultLevelDBPath(namespace)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: failed to create directory: %w", err)
	}

	db, err := leveldb.OpenFile(dbPath, &opt.Options{Compression: opt.SnappyCompression})
	if err != nil {
		var corrupted *lderrors.ErrCorrupted
		if errors.As(err, &corrupted) {
			db, err = leveldb.RecoverFile(dbPath, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("kvs/leveldb: failed to open database at %s: %w", dbPath, err)
		}
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	l := &LevelDBStore{
		namespace:       namespace,
		db:              db,
		clock:           o.clock,
		writeOpts:       &opt.WriteOptions{Sync: cfg.SyncWrites},
		cleanupInterval: interval,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}

	go l.cleanupLoop()

	return l, nil
}

func defaultLevelDBPath(namespace string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}

	name := "turingreg"
	if namespace != "" {
		name += "-" + strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			default:
				return '-'
			}
		}, namespace)
	}

	return filepath.Join(base, name)
}

func (l *LevelDBStore) key(key string) []byte {
	return []byte(l.namespace + key)
}

func (l *LevelDBStore) encode(value []byte, ttl time.Duration) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = l.clock.Now().Add(ttl).UnixNano()
	}

	encoded := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(encoded[:8], uint64(expiresAt))
	copy(encoded[8:], value)
	return encoded
}

// decode returns the payload and whether it has expired.
func (l *LevelDBStore) decode(encoded []byte) ([]byte, bool, error) {
	if len(encoded) < 8 {
		return nil, false, errors.New("kvs/leveldb: invalid encoded value (too short)")
	}

	expiresAt := int64(binary.BigEndian.Uint64(encoded[:8]))
	if expiresAt > 0 && l.clock.Now().UnixNano() > expiresAt {
		return nil, true, nil
	}

	return encoded[8:], false, nil
}

func (l *LevelDBStore) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Get retrieves a value by key.
func (l *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	if l.isClosed() {
		return nil, ErrClosed
	}

	encoded, err := l.db.Get(l.key(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kvs/leveldb: get failed: %w", err)
	}

	value, expired, err := l.decode(encoded)
	if err != nil {
		return nil, err
	}
	if expired {
		_ = l.db.Delete(l.key(key), nil)
		return nil, ErrNotFound
	}

	return value, nil
}

// Set stores a value with optional TTL.
func (l *LevelDBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if l.isClosed() {
		return ErrClosed
	}

	if err := l.db.Put(l.key(key), l.encode(value, ttl), l.writeOpts); err != nil {
		return fmt.Errorf("kvs/leveldb: set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (l *LevelDBStore) Delete(ctx context.Context, key string) error {
	if l.isClosed() {
		return ErrClosed
	}

	if err := l.db.Delete(l.key(key), l.writeOpts); err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("kvs/leveldb: delete failed: %w", err)
	}
	return nil
}

// Exists checks if a key exists and has not expired.
func (l *LevelDBStore) Exists(ctx context.Context, key string) (bool, error) {
	if l.isClosed() {
		return false, ErrClosed
	}

	encoded, err := l.db.Get(l.key(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("kvs/leveldb: exists check failed: %w", err)
	}

	_, expired, err := l.decode(encoded)
	if err != nil {
		return false, err
	}
	return !expired, nil
}

// List returns live keys with the given prefix.
func (l *LevelDBStore) List(ctx context.Context, prefix string) ([]string, error) {
	if l.isClosed() {
		return nil, ErrClosed
	}

	var keys []string
	err := l.scan(prefix, func(k []byte) {
		keys = append(keys, strings.TrimPrefix(string(k), l.namespace))
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Count returns the number of live keys with the given prefix.
func (l *LevelDBStore) Count(ctx context.Context, prefix string) (int, error) {
	if l.isClosed() {
		return 0, ErrClosed
	}

	count := 0
	if err := l.scan(prefix, func([]byte) { count++ }); err != nil {
		return 0, err
	}
	return count, nil
}

// scan calls fn for each live key under prefix. Malformed entries are skipped.
func (l *LevelDBStore) scan(prefix string, fn func(key []byte)) error {
	iter := l.db.NewIterator(util.BytesPrefix(l.key(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		if _, expired, err := l.decode(iter.Value()); err != nil || expired {
			continue
		}
		fn(iter.Key())
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("kvs/leveldb: iteration failed: %w", err)
	}
	return nil
}

// Close stops the cleanup loop and closes the database.
func (l *LevelDBStore) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stopCleanup)
	<-l.cleanupDone

	if err := l.db.Close(); err != nil {
		return fmt.Errorf("kvs/leveldb: close failed: %w", err)
	}
	return nil
}

func (l *LevelDBStore) cleanupLoop() {
	defer close(l.cleanupDone)

	ticker := l.clock.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup deletes expired keys in one batch.
func (l *LevelDBStore) cleanup() {
	if l.isClosed() {
		return
	}

	iter := l.db.NewIterator(util.BytesPrefix([]byte(l.namespace)), nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		if _, expired, err := l.decode(iter.Value()); err == nil && expired {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()

	if batch.Len() > 0 {
		_ = l.db.Write(batch, nil)
	}
}
