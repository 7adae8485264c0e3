package flow

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// Notice texts shown by the registration step.
const (
	MsgCaptchaNotLoaded    = "Security verification not loaded. Please refresh and try again."
	MsgCaptchaEmpty        = "reCAPTCHA verification failed. Please try again."
	MsgCaptchaRejected     = "Security verification failed. Please try again."
	MsgRegistered          = "Registration successful! Please check your email for verification code."
	MsgRegisterBadRequest  = "Registration failed. Please check your details."
	MsgRegisterServerError = "Server error. Please try again later."
	MsgRegisterFailed      = "Registration failed. Please try again."
)

// Submission is one press of the register button.
type Submission struct {
	// Values are the posted form fields. They replace the draft's values.
	Values map[form.Field]string
	// Challenge is nil when the widget never loaded.
	Challenge captcha.Challenge
	ClientIP  string
}

// Registrar handles registration submits.
type Registrar struct {
	backend  Backend
	sessions Sessions
	rules    *form.Rules
	guard    *Guard
	clock    clockwork.Clock
	logger   logging.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(cfg Config) *Registrar {
	cfg = cfg.withDefaults()
	return &Registrar{
		backend:  cfg.Backend,
		sessions: cfg.Sessions,
		rules:    cfg.Rules,
		guard:    cfg.Guard,
		clock:    cfg.Clock,
		logger:   cfg.Logger.WithModule("register"),
	}
}

// Validate applies one field event to the session's draft and returns the
// updated draft.
func (r *Registrar) Validate(ctx context.Context, id string, field form.Field, value string, trigger form.Trigger) (*form.Draft, error) {
	st, err := loadState(ctx, r.sessions, id, r.clock.Now())
	if err != nil {
		return nil, err
	}
	st.Draft.Apply(r.rules, field, value, trigger)
	if err := r.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st.Draft, nil
}

// Submit runs the submission checks, the bot check and the register call.
// The outcome is recorded on the returned state as a notice and, on
// success, as a move to the verification step. ErrInFlight means another
// submit for the session is still running.
func (r *Registrar) Submit(ctx context.Context, id string, sub Submission) (*State, error) {
	release, ok := r.guard.TryAcquire(id + "/register")
	if !ok {
		r.logger.Debug("Ignoring duplicate submit", "session", id)
		return nil, ErrInFlight
	}
	defer release()

	st, err := loadState(ctx, r.sessions, id, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if st.Step == StepSucceeded {
		st.Restart(r.clock.Now())
	}

	r.submit(ctx, st, sub)

	if err := r.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *Registrar) submit(ctx context.Context, st *State, sub Submission) {
	for f, v := range sub.Values {
		st.Draft.Set(f, v)
	}
	st.Draft.ValidateAll(r.rules)

	if problem, ok := st.Draft.Precheck(); !ok {
		st.Notify(NoticeError, string(problem))
		return
	}

	ch := sub.Challenge
	if ch == nil {
		st.Notify(NoticeError, MsgCaptchaNotLoaded)
		return
	}

	token, err := ch.Execute(ctx)
	if err != nil {
		r.logger.Warn("Challenge failed", "error", err)
		st.Notify(NoticeError, MsgCaptchaRejected)
		ch.Reset()
		return
	}
	if token == "" {
		st.Notify(NoticeError, MsgCaptchaEmpty)
		ch.Reset()
		return
	}

	st.Backend.ClientIP = sub.ClientIP

	if err := r.backend.ValidateCaptcha(ctx, token, &st.Backend); err != nil {
		r.logger.Warn("Challenge rejected by backend", "error", err)
		st.Notify(NoticeError, MsgCaptchaRejected)
		ch.Reset()
		return
	}

	defer ch.Reset()

	reg := registrationFrom(st.Draft)
	if _, err := r.backend.Register(ctx, reg, &st.Backend); err != nil {
		r.logger.Warn("Registration failed", "email", logging.MaskEmail(reg.StudentEmail), "error", err)
		st.Notify(NoticeError, registerFailureText(err))
		return
	}

	r.logger.Info("Registration accepted", "email", logging.MaskEmail(reg.StudentEmail))

	// a successful register opens a new registration context
	st.Context = Context{Email: reg.StudentEmail}
	st.Draft.Clear()
	st.Grid.Clear()
	st.LastResend = time.Time{}
	st.Step = StepVerifying
	st.Notify(NoticeSuccess, MsgRegistered)
}

func registerFailureText(err error) string {
	kind, detail := api.Classify(err)
	switch kind {
	case api.KindBadRequest:
		if detail != "" {
			return detail
		}
		return MsgRegisterBadRequest
	case api.KindServerError:
		return MsgRegisterServerError
	default:
		return MsgRegisterFailed
	}
}

func registrationFrom(d *form.Draft) api.Registration {
	return api.Registration{
		FullName:      d.Get(form.FieldName),
		Branch:        d.Get(form.FieldBranch),
		RollNumber:    d.Get(form.FieldUnivRoll),
		Gender:        d.Get(form.FieldGender),
		Scholar:       d.Get(form.FieldScholarType),
		StudentNumber: d.Get(form.FieldStudentNumber),
		StudentEmail:  d.Get(form.FieldEmail),
		MobileNumber:  d.Get(form.FieldMobile),
		Domain:        d.Get(form.FieldDomain),
	}
}
