package otp

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCooldown is the wait between resend requests.
const DefaultCooldown = 60 * time.Second

// Cooldown computes how long a resend stays blocked after the last
// successful one. The last resend time is kept by the caller so it can live
// in a session.
type Cooldown struct {
	clock  clockwork.Clock
	period time.Duration
}

// NewCooldown creates a cooldown. A nil clock uses the real clock and a
// non-positive period uses DefaultCooldown.
func NewCooldown(clock clockwork.Clock, period time.Duration) *Cooldown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = DefaultCooldown
	}
	return &Cooldown{clock: clock, period: period}
}

// Now returns the current time on the cooldown's clock.
func (c *Cooldown) Now() time.Time { return c.clock.Now() }

// Remaining returns the time left since last. A zero last means no resend
// has happened and nothing is blocked.
func (c *Cooldown) Remaining(last time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}
	left := c.period - c.clock.Since(last)
	if left < 0 {
		return 0
	}
	if left > c.period {
		return c.period
	}
	return left
}

// Seconds returns Remaining rounded up to whole seconds, as shown on the
// resend control.
func (c *Cooldown) Seconds(last time.Time) int {
	left := c.Remaining(last)
	return int((left + time.Second - 1) / time.Second)
}

// Active reports whether a resend is currently blocked.
func (c *Cooldown) Active(last time.Time) bool {
	return c.Remaining(last) > 0
}
