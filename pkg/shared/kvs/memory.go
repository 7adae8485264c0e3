package kvs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryStore keeps values in a map. A background loop evicts expired keys.
type MemoryStore struct {
	namespace       string
	clock           clockwork.Clock
	cleanupInterval time.Duration

	mu     sync.RWMutex
	items  map[string]*memoryItem
	closed bool

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(namespace string, cfg MemoryConfig, opts ...Option) (*MemoryStore, error) {
	o := buildOptions(opts)

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	m := &MemoryStore{
		namespace:       namespace,
		clock:           o.clock,
		cleanupInterval: interval,
		items:           make(map[string]*memoryItem),
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}

	go m.cleanupLoop()

	return m, nil
}

func (m *MemoryStore) key(key string) string {
	return m.namespace + key
}

// Get retrieves a copy of the value.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	item, ok := m.items[m.key(key)]
	if !ok || item.expired(m.clock.Now()) {
		return nil, ErrNotFound
	}

	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, nil
}

// Set stores a copy of value.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	item := &memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.clock.Now().Add(ttl)
	}

	m.items[m.key(key)] = item
	return nil
}

// Delete removes a key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.items, m.key(key))
	return nil
}

// Exists reports whether key is present and live.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	item, ok := m.items[m.key(key)]
	return ok && !item.expired(m.clock.Now()), nil
}

// List returns live keys with the given prefix, namespace stripped.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	full := m.key(prefix)
	now := m.clock.Now()
	var keys []string
	for k, item := range m.items {
		if !strings.HasPrefix(k, full) || item.expired(now) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(k, m.namespace))
	}

	return keys, nil
}

// Count returns the number of live keys with the given prefix.
func (m *MemoryStore) Count(ctx context.Context, prefix string) (int, error) {
	keys, err := m.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close stops the cleanup loop and drops all items.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCleanup)
	<-m.cleanupDone

	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) cleanupLoop() {
	defer close(m.cleanupDone)

	ticker := m.clock.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	now := m.clock.Now()
	for k, item := range m.items {
		if item.expired(now) {
			delete(m.items, k)
		}
	}
}

// size returns the raw item count, including expired but not yet evicted keys.
func (m *MemoryStore) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
