package flow

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// memSessions round-trips states through JSON like the real store does.
type memSessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string][]byte)}
}

func (m *memSessions) Load(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, ErrStateNotFound
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *memSessions) Save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[st.ID] = raw
	return nil
}

func (m *memSessions) put(st *State) {
	_ = m.Save(context.Background(), st)
}

type fakeBackend struct {
	mu sync.Mutex

	captchaErr  error
	registerErr error
	verifyErr   error
	resendErr   error

	// block, when set, holds Register, Verify and ResendOTP until closed.
	block   chan struct{}
	entered chan struct{}

	captchaTokens []string
	registrations []api.Registration
	verified      []api.Verification
	resent        []string
	clientIPs     []string
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.captchaTokens) + len(f.registrations) + len(f.verified) + len(f.resent)
}

func (f *fakeBackend) ValidateCaptcha(ctx context.Context, token string, creds *api.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captchaTokens = append(f.captchaTokens, token)
	return f.captchaErr
}

func (f *fakeBackend) pause() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeBackend) Register(ctx context.Context, reg api.Registration, creds *api.Credentials) (*api.Result, error) {
	f.pause()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, reg)
	f.clientIPs = append(f.clientIPs, creds.ClientIP)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &api.Result{Success: true}, nil
}

func (f *fakeBackend) Verify(ctx context.Context, code, email string, creds *api.Credentials) (*api.Result, error) {
	f.pause()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, api.Verification{OTP: code, Email: email})
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &api.Result{Success: true}, nil
}

func (f *fakeBackend) ResendOTP(ctx context.Context, email string, creds *api.Credentials) (*api.Result, error) {
	f.pause()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resent = append(f.resent, email)
	if f.resendErr != nil {
		return nil, f.resendErr
	}
	return &api.Result{Success: true}, nil
}

type recordingChallenge struct {
	token  string
	err    error
	resets int
}

func (c *recordingChallenge) Execute(ctx context.Context) (string, error) {
	return c.token, c.err
}

func (c *recordingChallenge) Reset() {
	c.resets++
	c.token = ""
}

type harness struct {
	backend   *fakeBackend
	sessions  *memSessions
	clock     *clockwork.FakeClock
	registrar *Registrar
	verifier  *Verifier
}

func newHarness() *harness {
	h := &harness{
		backend:  &fakeBackend{},
		sessions: newMemSessions(),
		clock:    clockwork.NewFakeClock(),
	}
	cfg := Config{
		Backend:  h.backend,
		Sessions: h.sessions,
		Clock:    h.clock,
		Logger:   logging.NewTestLogger(),
	}
	h.registrar = NewRegistrar(cfg)
	h.verifier = NewVerifier(cfg)
	return h
}

func janeDoe() map[form.Field]string {
	return map[form.Field]string{
		form.FieldName:          "Jane Doe",
		form.FieldBranch:        "CSE",
		form.FieldUnivRoll:      "2400100123456",
		form.FieldGender:        "female",
		form.FieldScholarType:   "day",
		form.FieldStudentNumber: "2412345",
		form.FieldEmail:         "2412345@akgec.ac.in",
		form.FieldMobile:        "9876543210",
		form.FieldDomain:        "Web Developer",
	}
}

// verifying stores a session that has just registered.
func (h *harness) verifying(id, email string) {
	st := NewState(id, h.clock.Now())
	st.Step = StepVerifying
	st.Context.Email = email
	h.sessions.put(st)
}
