package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

func stores(t *testing.T) map[string]kvs.Store {
	t.Helper()

	mem, err := kvs.NewMemoryStore("sessions", kvs.MemoryConfig{})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds, err := kvs.NewRedisStore("sessions", kvs.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = mem.Close()
		_ = rds.Close()
	})
	return map[string]kvs.Store{"memory": mem, "redis": rds}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, backend := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(backend, time.Hour)

			_, err := s.Load(ctx, "missing")
			assert.ErrorIs(t, err, flow.ErrStateNotFound)

			st := flow.NewState("abc", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
			st.Step = flow.StepVerifying
			st.Context.Email = "2412345@akgec.ac.in"
			st.Draft.Set(form.FieldName, "Jane Doe")
			st.Grid.Fill("AB1")
			st.Backend.Cookies = map[string]string{"sid": "x"}
			st.Backend.ClientIP = "203.0.113.9"
			st.Notify(flow.NoticeSuccess, "ok")
			require.NoError(t, s.Save(ctx, st))

			got, err := s.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, flow.StepVerifying, got.Step)
			assert.Equal(t, "2412345@akgec.ac.in", got.Context.Email)
			assert.Equal(t, "Jane Doe", got.Draft.Get(form.FieldName))
			assert.Equal(t, st.Grid, got.Grid)
			assert.Equal(t, "x", got.Backend.Cookies["sid"])
			assert.Empty(t, got.Backend.ClientIP, "client address is per request")
			assert.Equal(t, st.Notices, got.Notices)
			assert.True(t, st.CreatedAt.Equal(got.CreatedAt))

			n, err := backend.Count(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, backend.Delete(ctx, "abc"))
			_, err = s.Load(ctx, "abc")
			assert.ErrorIs(t, err, flow.ErrStateNotFound)
		})
	}
}

func TestStore_RejectsEmptyID(t *testing.T) {
	mem, err := kvs.NewMemoryStore("", kvs.MemoryConfig{})
	require.NoError(t, err)
	defer mem.Close()

	assert.Error(t, NewStore(mem, 0).Save(context.Background(), &flow.State{}))
}

func TestStore_DefaultTTL(t *testing.T) {
	mem, err := kvs.NewMemoryStore("", kvs.MemoryConfig{})
	require.NoError(t, err)
	defer mem.Close()

	assert.Equal(t, DefaultTTL, NewStore(mem, 0).ttl)
	assert.Equal(t, time.Minute, NewStore(mem, time.Minute).ttl)
}
