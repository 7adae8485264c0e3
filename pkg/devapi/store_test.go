package devapi

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

func TestStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	base, err := kvs.New(kvs.Config{Type: "redis", Namespace: "devapi", Redis: kvs.RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	defer base.Close()

	clock := clockwork.NewFakeClock()
	s := NewStore(base, 30*time.Minute, 2*time.Minute, clock)
	ctx := context.Background()
	reg := janeDoe()

	stored, err := s.SavePending(ctx, reg)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("devapi:pending:jane2412345@akgec.ac.in"))

	// a second registration keeps the first one's data
	other := reg
	other.FullName = "Someone Else"
	stored, err = s.SavePending(ctx, other)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := s.Pending(ctx, "JANE2412345@akgec.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)

	require.NoError(t, s.IssueOTP(ctx, reg.StudentEmail, "AB123"))
	ok, err := s.ConsumeOTP(ctx, reg.StudentEmail, "AB124")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.ConsumeOTP(ctx, reg.StudentEmail, "AB123")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ConsumeOTP(ctx, reg.StudentEmail, "AB123")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")

	st, err := s.Promote(ctx, reg.StudentEmail)
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)

	verified, err := s.IsVerified(ctx, reg.StudentEmail)
	require.NoError(t, err)
	assert.True(t, verified)

	dups, err := s.Duplicates(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, Duplicates{StudentNumber: true, RollNumber: true, StudentEmail: true}, dups)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{VerifiedStudents: 1}, stats)
}

func TestStore_OTPExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	base, err := kvs.New(kvs.Config{Type: "memory"}, kvs.WithClock(clock))
	require.NoError(t, err)
	defer base.Close()

	s := NewStore(base, 30*time.Minute, 2*time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, s.IssueOTP(ctx, "a@akgec.ac.in", "XY123"))
	clock.Advance(119 * time.Second)
	ok, err := s.ConsumeOTP(ctx, "a@akgec.ac.in", "XY123")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.IssueOTP(ctx, "a@akgec.ac.in", "XY124"))
	clock.Advance(121 * time.Second)
	ok, err = s.ConsumeOTP(ctx, "a@akgec.ac.in", "XY124")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Clients(t *testing.T) {
	base, err := kvs.New(kvs.Config{Type: "memory"})
	require.NoError(t, err)
	defer base.Close()

	s := NewStore(base, time.Minute, time.Minute, nil)
	ctx := context.Background()

	email, err := s.ClientEmail(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, s.RememberClient(ctx, "10.0.0.1", "a@akgec.ac.in"))
	require.NoError(t, s.RememberClient(ctx, "", "ignored@akgec.ac.in"))

	email, err = s.ClientEmail(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "a@akgec.ac.in", email)
}

func TestDuplicates_Messages(t *testing.T) {
	assert.False(t, Duplicates{}.Any())
	assert.Empty(t, Duplicates{}.Messages())
	assert.Equal(t,
		[]string{"Student number is already registered", "College email is already registered"},
		Duplicates{StudentNumber: true, StudentEmail: true}.Messages())
}
