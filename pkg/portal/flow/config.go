package flow

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

var (
	// ErrInFlight is returned when the same operation is already running for
	// the session. The request is ignored.
	ErrInFlight = errors.New("flow: operation already in flight")

	// ErrNoRegistration is returned by verification operations when the
	// session has no registration email yet.
	ErrNoRegistration = errors.New("flow: no registration in progress")
)

// Config wires the registrar and verifier.
type Config struct {
	Backend  Backend
	Sessions Sessions
	Rules    *form.Rules
	Guard    *Guard
	Clock    clockwork.Clock
	// Cooldown is the wait between resends.
	Cooldown time.Duration
	Logger   logging.Logger
}

func (c Config) withDefaults() Config {
	if c.Rules == nil {
		c.Rules = form.DefaultRules()
	}
	if c.Guard == nil {
		c.Guard = NewGuard()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logging.NewSimpleLogger("flow", logging.LevelInfo, false)
	}
	return c
}

// loadState returns the stored state for id, or a fresh one.
func loadState(ctx context.Context, sessions Sessions, id string, now time.Time) (*State, error) {
	st, err := sessions.Load(ctx, id)
	if errors.Is(err, ErrStateNotFound) {
		return NewState(id, now), nil
	}
	if err != nil {
		return nil, err
	}
	if st.Draft == nil {
		st.Draft = form.NewDraft()
	}
	return st, nil
}
