package flow

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/otp"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// Notice texts shown by the verification step.
const (
	MsgCodeIncomplete  = "Please enter the complete 5-character verification code."
	MsgVerified        = "Email verified successfully! Registration completed."
	MsgCodeInvalid     = "Invalid or expired verification code. Please try again."
	MsgVerifyFailed    = "Verification failed. Please try again."
	MsgResent          = "New verification code sent to your email!"
	MsgResendFailed    = "Failed to resend verification code. Please try again."
	msgResendThrottled = "Please wait %d seconds before requesting a new code."
)

// Entry is one press of the verify button.
type Entry struct {
	// Slots are the raw slot values as typed. Invalid values leave their
	// slot empty.
	Slots    [otp.Length]string
	ClientIP string
}

// Verifier handles code submission and resend.
type Verifier struct {
	backend  Backend
	sessions Sessions
	guard    *Guard
	clock    clockwork.Clock
	cooldown *otp.Cooldown
	logger   logging.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg Config) *Verifier {
	cfg = cfg.withDefaults()
	return &Verifier{
		backend:  cfg.Backend,
		sessions: cfg.Sessions,
		guard:    cfg.Guard,
		clock:    cfg.Clock,
		cooldown: otp.NewCooldown(cfg.Clock, cfg.Cooldown),
		logger:   cfg.Logger.WithModule("verify"),
	}
}

// Cooldown exposes the resend cooldown for rendering the countdown.
func (v *Verifier) Cooldown() *otp.Cooldown { return v.cooldown }

// begin claims the session's verification slot. Verify and resend share it
// so a slow resend cannot save over the outcome of a verify.
func (v *Verifier) begin(ctx context.Context, id string) (*State, func(), error) {
	release, ok := v.guard.TryAcquire(id + "/verify")
	if !ok {
		return nil, nil, ErrInFlight
	}

	st, err := loadState(ctx, v.sessions, id, v.clock.Now())
	if err != nil {
		release()
		return nil, nil, err
	}
	if st.Context.Email == "" {
		release()
		return st, nil, ErrNoRegistration
	}
	return st, release, nil
}

// Verify submits the entered code for the session's registration email.
func (v *Verifier) Verify(ctx context.Context, id string, entry Entry) (*State, error) {
	st, release, err := v.begin(ctx, id)
	if err != nil {
		return st, err
	}
	defer release()

	if st.Step == StepSucceeded {
		return st, nil
	}

	st.Grid.Clear()
	for i, s := range entry.Slots {
		st.Grid.Input(i, s)
	}

	v.verify(ctx, st, entry.ClientIP)

	if err := v.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (v *Verifier) verify(ctx context.Context, st *State, clientIP string) {
	code, ok := st.Grid.Code()
	if !ok {
		st.Notify(NoticeError, MsgCodeIncomplete)
		return
	}

	st.Backend.ClientIP = clientIP
	email := st.Context.Email

	if _, err := v.backend.Verify(ctx, code, email, &st.Backend); err != nil {
		v.logger.Warn("Verification failed", "email", logging.MaskEmail(email), "error", err)
		if kind, _ := api.Classify(err); kind == api.KindBadRequest {
			st.Notify(NoticeError, MsgCodeInvalid)
		} else {
			st.Notify(NoticeError, MsgVerifyFailed)
		}
		return
	}

	v.logger.Info("Email verified", "email", logging.MaskEmail(email))
	st.Grid.Clear()
	st.Step = StepSucceeded
	st.Notify(NoticeSuccess, MsgVerified)
}

// Resend asks the backend for a new code unless the cooldown is running.
func (v *Verifier) Resend(ctx context.Context, id string, clientIP string) (*State, error) {
	st, release, err := v.begin(ctx, id)
	if err != nil {
		return st, err
	}
	defer release()

	if st.Step == StepSucceeded {
		return st, nil
	}

	v.resend(ctx, st, clientIP)

	if err := v.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (v *Verifier) resend(ctx context.Context, st *State, clientIP string) {
	if v.cooldown.Active(st.LastResend) {
		st.Notify(NoticeWarning, fmt.Sprintf(msgResendThrottled, v.cooldown.Seconds(st.LastResend)))
		return
	}

	st.Backend.ClientIP = clientIP
	email := st.Context.Email

	if _, err := v.backend.ResendOTP(ctx, email, &st.Backend); err != nil {
		v.logger.Warn("Resend failed", "email", logging.MaskEmail(email), "error", err)
		st.Notify(NoticeError, MsgResendFailed)
		return
	}

	v.logger.Info("Verification code resent", "email", logging.MaskEmail(email))
	st.LastResend = v.cooldown.Now()
	st.Grid.Clear()
	st.Notify(NoticeSuccess, MsgResent)
}

// ResendIn returns the whole seconds until resend is allowed for st.
func (v *Verifier) ResendIn(st *State) int {
	return v.cooldown.Seconds(st.LastResend)
}
