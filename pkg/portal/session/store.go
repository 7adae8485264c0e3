// Package session persists portal flow state in a KVS and ties it to the
// visitor through a cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 24 * time.Hour

// Store implements flow.Sessions on top of any kvs.Store. Every save
// refreshes the TTL.
type Store struct {
	kvs kvs.Store
	ttl time.Duration
}

// NewStore wraps store. A non-positive ttl uses DefaultTTL.
func NewStore(store kvs.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kvs: store, ttl: ttl}
}

// Load returns the state for id or flow.ErrStateNotFound.
func (s *Store) Load(ctx context.Context, id string) (*flow.State, error) {
	var st flow.State
	if err := kvs.GetJSON(ctx, s.kvs, id, &st); err != nil {
		if errors.Is(err, kvs.ErrNotFound) {
			return nil, flow.ErrStateNotFound
		}
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}
	return &st, nil
}

// Save stores st under its ID.
func (s *Store) Save(ctx context.Context, st *flow.State) error {
	if st.ID == "" {
		return errors.New("session: state has no id")
	}
	if err := kvs.SetJSON(ctx, s.kvs, st.ID, st, s.ttl); err != nil {
		return fmt.Errorf("session: save %s: %w", st.ID, err)
	}
	return nil
}
