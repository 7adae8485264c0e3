package devapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// Student is a verified registration.
type Student struct {
	ID string `json:"id"`
	api.Registration
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// Duplicates reports which unique fields of a registration already belong to
// a verified student.
type Duplicates struct {
	StudentNumber bool
	RollNumber    bool
	StudentEmail  bool
}

// Any reports whether any field clashes.
func (d Duplicates) Any() bool {
	return d.StudentNumber || d.RollNumber || d.StudentEmail
}

// Messages lists the clashes in a fixed order.
func (d Duplicates) Messages() []string {
	var msgs []string
	if d.StudentNumber {
		msgs = append(msgs, "Student number is already registered")
	}
	if d.RollNumber {
		msgs = append(msgs, "University roll number is already registered")
	}
	if d.StudentEmail {
		msgs = append(msgs, "College email is already registered")
	}
	return msgs
}

type otpEntry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps pending registrations and codes with a TTL, and verified
// students without one.
type Store struct {
	pending  kvs.Store
	otps     kvs.Store
	students kvs.Store
	index    kvs.Store
	clients  kvs.Store

	pendingTTL time.Duration
	otpTTL     time.Duration
	clock      clockwork.Clock

	// serializes check-then-write sequences
	mu sync.Mutex
}

// NewStore lays the backend's collections out in base.
func NewStore(base kvs.Store, pendingTTL, otpTTL time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		pending:    kvs.NewNamespacedStore(base, "pending:"),
		otps:       kvs.NewNamespacedStore(base, "otp:"),
		students:   kvs.NewNamespacedStore(base, "student:"),
		index:      kvs.NewNamespacedStore(base, "index:"),
		clients:    kvs.NewNamespacedStore(base, "client:"),
		pendingTTL: pendingTTL,
		otpTTL:     otpTTL,
		clock:      clock,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SavePending stores reg unless a pending registration for the same email
// exists. It reports whether reg was stored.
func (s *Store) SavePending(ctx context.Context, reg api.Registration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(reg.StudentEmail)
	exists, err := s.pending.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, kvs.SetJSON(ctx, s.pending, key, reg, s.pendingTTL)
}

// Pending returns the pending registration for email, or kvs.ErrNotFound.
func (s *Store) Pending(ctx context.Context, email string) (*api.Registration, error) {
	var reg api.Registration
	if err := kvs.GetJSON(ctx, s.pending, emailKey(email), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// IssueOTP replaces any code for email.
func (s *Store) IssueOTP(ctx context.Context, email, code string) error {
	entry := otpEntry{Code: code, ExpiresAt: s.clock.Now().Add(s.otpTTL)}
	return kvs.SetJSON(ctx, s.otps, emailKey(email), entry, s.otpTTL)
}

// ConsumeOTP reports whether code is the live code for email. A matching code
// is deleted, as is an expired one.
func (s *Store) ConsumeOTP(ctx context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(email)
	var entry otpEntry
	err := kvs.GetJSON(ctx, s.otps, key, &entry)
	if errors.Is(err, kvs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if s.clock.Now().After(entry.ExpiresAt) {
		return false, s.otps.Delete(ctx, key)
	}
	if entry.Code != code {
		return false, nil
	}
	return true, s.otps.Delete(ctx, key)
}

// Duplicates checks reg's unique fields against verified students.
func (s *Store) Duplicates(ctx context.Context, reg api.Registration) (Duplicates, error) {
	var d Duplicates
	var err error
	if d.StudentNumber, err = s.index.Exists(ctx, "number:"+reg.StudentNumber); err != nil {
		return d, err
	}
	if d.RollNumber, err = s.index.Exists(ctx, "roll:"+reg.RollNumber); err != nil {
		return d, err
	}
	if d.StudentEmail, err = s.index.Exists(ctx, "email:"+emailKey(reg.StudentEmail)); err != nil {
		return d, err
	}
	return d, nil
}

// Promote turns the pending registration for email into a verified student.
// It returns kvs.ErrNotFound when the pending registration has expired.
func (s *Store) Promote(ctx context.Context, email string) (*Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(email)
	var reg api.Registration
	if err := kvs.GetJSON(ctx, s.pending, key, &reg); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	st := &Student{
		ID:           uuid.NewString(),
		Registration: reg,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
		VerifiedAt:   now,
	}
	if err := kvs.SetJSON(ctx, s.students, st.ID, st, 0); err != nil {
		return nil, fmt.Errorf("save student: %w", err)
	}

	for _, ik := range []string{"number:" + reg.StudentNumber, "roll:" + reg.RollNumber, "email:" + key} {
		if err := s.index.Set(ctx, ik, []byte(st.ID), 0); err != nil {
			return nil, fmt.Errorf("index student: %w", err)
		}
	}

	if err := s.pending.Delete(ctx, key); err != nil {
		return nil, err
	}
	return st, nil
}

// IsVerified reports whether email belongs to a verified student.
func (s *Store) IsVerified(ctx context.Context, email string) (bool, error) {
	return s.index.Exists(ctx, "email:"+emailKey(email))
}

// Students returns every verified student, oldest first.
func (s *Store) Students(ctx context.Context) ([]Student, error) {
	ids, err := s.students.List(ctx, "")
	if err != nil {
		return nil, err
	}

	out := make([]Student, 0, len(ids))
	for _, id := range ids {
		var st Student
		if err := kvs.GetJSON(ctx, s.students, id, &st); err != nil {
			if errors.Is(err, kvs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RememberClient records which email a client address last registered.
func (s *Store) RememberClient(ctx context.Context, clientIP, email string) error {
	if clientIP == "" {
		return nil
	}
	return s.clients.Set(ctx, clientIP, []byte(email), s.pendingTTL)
}

// ClientEmail returns the email remembered for clientIP, or "".
func (s *Store) ClientEmail(ctx context.Context, clientIP string) (string, error) {
	if clientIP == "" {
		return "", nil
	}
	v, err := s.clients.Get(ctx, clientIP)
	if errors.Is(err, kvs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Stats counts live pending registrations and codes.
type Stats struct {
	PendingRegistrations int `json:"pending_registrations"`
	ActiveOTPs           int `json:"active_otps"`
	VerifiedStudents     int `json:"verified_students"`
}

// Stats returns current counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.PendingRegistrations, err = s.pending.Count(ctx, ""); err != nil {
		return st, err
	}
	if st.ActiveOTPs, err = s.otps.Count(ctx, ""); err != nil {
		return st, err
	}
	if st.VerifiedStudents, err = s.students.Count(ctx, ""); err != nil {
		return st, err
	}
	return st, nil
}
