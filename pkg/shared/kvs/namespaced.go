package kvs

import (
	"context"
	"strings"
	"sync"
	"time"
)

// NamespacedStore prefixes every key so several logical stores can share
// one backend ("session:", "ratelimit:", "pending:").
type NamespacedStore struct {
	store  Store
	prefix string
}

// NewNamespacedStore wraps store. An empty prefix returns store unchanged.
func NewNamespacedStore(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &NamespacedStore{store: store, prefix: prefix}
}

func (n *NamespacedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *NamespacedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return n.store.Set(ctx, n.prefix+key, value, ttl)
}

func (n *NamespacedStore) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}

func (n *NamespacedStore) Exists(ctx context.Context, key string) (bool, error) {
	return n.store.Exists(ctx, n.prefix+key)
}

// List returns keys with the namespace prefix removed.
func (n *NamespacedStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.store.List(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, n.prefix)
	}
	return keys, nil
}

func (n *NamespacedStore) Count(ctx context.Context, prefix string) (int, error) {
	return n.store.Count(ctx, n.prefix+prefix)
}

// Close closes the shared underlying store. Callers sharing a backend should
// close the base store once instead.
func (n *NamespacedStore) Close() error {
	return n.store.Close()
}

// Share wraps one open store under several prefixes. Closing a returned store
// releases only that handle; store itself is closed with the last one.
func Share(store Store, prefixes ...string) []Store {
	base := &sharedBase{store: store, refs: len(prefixes)}
	stores := make([]Store, len(prefixes))
	for i, p := range prefixes {
		stores[i] = &NamespacedStore{store: &sharedHandle{Store: store, base: base}, prefix: p}
	}
	return stores
}

type sharedBase struct {
	mu    sync.Mutex
	store Store
	refs  int
}

func (b *sharedBase) release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs--
	if b.refs > 0 {
		return nil
	}
	return b.store.Close()
}

type sharedHandle struct {
	Store
	base *sharedBase
	once sync.Once
}

func (h *sharedHandle) Close() error {
	err := ErrClosed
	h.once.Do(func() { err = h.base.release() })
	return err
}
