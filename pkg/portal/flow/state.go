// Package flow drives a visitor through registration, verification and the
// success page. Each visitor's progress is a State persisted between requests.
package flow

import (
	"context"
	"errors"
	"time"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/portal/otp"
)

// Step is the visitor's position in the flow.
type Step string

const (
	StepRegistering Step = "registering"
	StepVerifying   Step = "verifying"
	StepSucceeded   Step = "succeeded"
)

// Path returns the page that renders s.
func (s Step) Path() string {
	switch s {
	case StepVerifying:
		return "/Verify"
	case StepSucceeded:
		return "/Success"
	default:
		return "/"
	}
}

// Context carries the one value shared across steps: the email of the
// registration in progress. Only a successful register replaces it, so the
// later steps see it read-only.
type Context struct {
	Email string `json:"email,omitempty"`
}

// State is everything the portal remembers about one visitor.
type State struct {
	ID         string          `json:"id"`
	Step       Step            `json:"step"`
	Context    Context         `json:"context"`
	Draft      *form.Draft     `json:"draft"`
	Grid       otp.Grid        `json:"grid"`
	LastResend time.Time       `json:"last_resend,omitempty"`
	Backend    api.Credentials `json:"backend"`
	Notices    []Notice        `json:"notices,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewState returns a fresh registration for session id.
func NewState(id string, now time.Time) *State {
	return &State{
		ID:        id,
		Step:      StepRegistering,
		Draft:     form.NewDraft(),
		CreatedAt: now,
	}
}

// Restart begins a new registration in the same session. Backend cookies
// survive so the backend keeps recognizing the visitor.
func (s *State) Restart(now time.Time) {
	creds := s.Backend
	*s = *NewState(s.ID, now)
	s.Backend = creds
}

// ErrStateNotFound is returned by Sessions when no state exists for an id.
var ErrStateNotFound = errors.New("flow: state not found")

// Sessions loads and saves visitor state.
type Sessions interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, state *State) error
}

// Backend is the subset of the registration API the flow calls.
type Backend interface {
	ValidateCaptcha(ctx context.Context, token string, creds *api.Credentials) error
	Register(ctx context.Context, reg api.Registration, creds *api.Credentials) (*api.Result, error)
	Verify(ctx context.Context, code, email string, creds *api.Credentials) (*api.Result, error)
	ResendOTP(ctx context.Context, email string, creds *api.Credentials) (*api.Result, error)
}
