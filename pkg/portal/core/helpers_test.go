package core

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/session"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/mlcoe/turingreg/pkg/shared/ratelimit"
)

type stubBackend struct {
	mu sync.Mutex

	registerErr error
	verifyErr   error
	resendErr   error

	captchaCalls  int
	registrations []api.Registration
	codes         []string
	resends       int
}

func (b *stubBackend) ValidateCaptcha(ctx context.Context, token string, creds *api.Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captchaCalls++
	return nil
}

func (b *stubBackend) Register(ctx context.Context, reg api.Registration, creds *api.Credentials) (*api.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrations = append(b.registrations, reg)
	if b.registerErr != nil {
		return nil, b.registerErr
	}
	return &api.Result{Success: true}, nil
}

func (b *stubBackend) Verify(ctx context.Context, code, email string, creds *api.Credentials) (*api.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes = append(b.codes, code)
	if b.verifyErr != nil {
		return nil, b.verifyErr
	}
	return &api.Result{Success: true}, nil
}

func (b *stubBackend) ResendOTP(ctx context.Context, email string, creds *api.Credentials) (*api.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resends++
	if b.resendErr != nil {
		return nil, b.resendErr
	}
	return &api.Result{Success: true}, nil
}

type testPortal struct {
	portal  *Portal
	backend *stubBackend
	clock   *clockwork.FakeClock
	server  *httptest.Server
	client  *http.Client
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Captcha.Disabled = true
	return cfg
}

func newTestPortal(t *testing.T, mutate func(*config.Config)) *testPortal {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	store, err := kvs.NewMemoryStore("test", kvs.MemoryConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := clockwork.NewFakeClock()
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.SubmitPerMinute > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.SubmitPerMinute, time.Minute, kvs.NewNamespacedStore(store, "rl"), clock)
	}

	backend := &stubBackend{}
	p, err := New(cfg,
		session.NewStore(kvs.NewNamespacedStore(store, "session"), 0),
		backend,
		captcha.NewStatic(cfg.Captcha.DevToken),
		limiter,
		logging.NewTestLogger(),
		WithClock(clock),
	)
	require.NoError(t, err)
	p.SetReady()

	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar
	t.Cleanup(client.CloseIdleConnections)

	return &testPortal{portal: p, backend: backend, clock: clock, server: srv, client: client}
}

// get follows redirects and returns the final path and body.
func (tp *testPortal) get(t *testing.T, path string) (string, string) {
	t.Helper()
	resp, err := tp.client.Get(tp.server.URL + path)
	require.NoError(t, err)
	return finish(t, resp)
}

func (tp *testPortal) post(t *testing.T, path string, form url.Values) (string, string) {
	t.Helper()
	resp, err := tp.client.PostForm(tp.server.URL+path, form)
	require.NoError(t, err)
	return finish(t, resp)
}

func finish(t *testing.T, resp *http.Response) (string, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return resp.Request.URL.Path, string(body)
}

func janeDoeForm() url.Values {
	return url.Values{
		"name":          {"Jane Doe"},
		"branch":        {"CSE"},
		"domain":        {"Web Developer"},
		"univRoll":      {"2400100123456"},
		"gender":        {"female"},
		"scholarType":   {"day"},
		"studentNumber": {"2412345"},
		"email":         {"2412345@akgec.ac.in"},
		"mobile":        {"9876543210"},
	}
}

func codeForm(code string) url.Values {
	v := url.Values{}
	for i, c := range strings.Split(code, "") {
		v.Set("otp-"+string(rune('0'+i)), c)
	}
	return v
}
