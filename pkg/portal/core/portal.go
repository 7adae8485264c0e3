// Package core is the registration portal's HTTP surface: the form, the
// verification page and the success page, rendered on the server with
// post/redirect/get between steps.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/portal/session"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/mlcoe/turingreg/pkg/shared/ratelimit"
)

// Portal serves every portal route. It implements http.Handler.
type Portal struct {
	config    *config.Config
	sessions  flow.Sessions
	registrar *flow.Registrar
	verifier  *flow.Verifier
	captcha   captcha.Provider
	limiter   *ratelimit.Limiter
	cookie    session.Cookie
	options   form.Options
	templates *Templates
	clock     clockwork.Clock
	logger    logging.Logger

	successDelay time.Duration

	since    time.Time
	ready    atomic.Bool
	draining atomic.Bool
}

// Option customizes a Portal.
type Option func(*options)

type options struct {
	clock clockwork.Clock
	guard *flow.Guard
}

// WithClock drives cooldowns and session timestamps from c.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithGuard shares an in-flight guard, so a reloaded portal keeps blocking
// requests started by the previous one.
func WithGuard(g *flow.Guard) Option {
	return func(o *options) { o.guard = g }
}

// New creates a portal. limiter may be nil to disable submit throttling.
func New(
	cfg *config.Config,
	sessions flow.Sessions,
	backend flow.Backend,
	provider captcha.Provider,
	limiter *ratelimit.Limiter,
	logger logging.Logger,
	opts ...Option,
) (*Portal, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	rules, err := cfg.Registration.Rules()
	if err != nil {
		return nil, fmt.Errorf("portal: %w", err)
	}
	cooldown, err := cfg.Verification.GetResendCooldown()
	if err != nil {
		return nil, fmt.Errorf("portal: resend cooldown: %w", err)
	}
	delay, err := cfg.Verification.GetSuccessDelay()
	if err != nil {
		return nil, fmt.Errorf("portal: success delay: %w", err)
	}
	expire, err := cfg.Session.Cookie.GetExpireDuration()
	if err != nil {
		return nil, fmt.Errorf("portal: cookie expire: %w", err)
	}

	tmpl, err := newTemplates()
	if err != nil {
		return nil, fmt.Errorf("portal: templates: %w", err)
	}

	fcfg := flow.Config{
		Backend:  backend,
		Sessions: sessions,
		Rules:    rules,
		Guard:    o.guard,
		Clock:    o.clock,
		Cooldown: cooldown,
		Logger:   logger,
	}

	return &Portal{
		config:    cfg,
		sessions:  sessions,
		registrar: flow.NewRegistrar(fcfg),
		verifier:  flow.NewVerifier(fcfg),
		captcha:   provider,
		limiter:   limiter,
		cookie: session.Cookie{
			Name:     cfg.Session.Cookie.Name,
			MaxAge:   expire,
			Secure:   cfg.Session.Cookie.Secure,
			SameSite: session.ParseSameSite(cfg.Session.Cookie.SameSite),
		},
		options:      cfg.Registration.Options(),
		templates:    tmpl,
		clock:        o.clock,
		logger:       logger.WithModule("portal"),
		successDelay: delay,
		since:        o.clock.Now().UTC(),
	}, nil
}

// ServeHTTP dispatches on the request path.
func (p *Portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		p.route(w, r, p.handleRegisterPage, p.handleRegisterSubmit)
	case "/validate":
		p.route(w, r, nil, p.handleValidate)
	case "/Verify":
		p.route(w, r, p.handleVerifyPage, p.handleVerifySubmit)
	case "/Verify/resend":
		p.route(w, r, nil, p.handleResend)
	case "/Success":
		p.route(w, r, p.handleSuccessPage, nil)
	case "/assets/main.css":
		p.handleMainCSS(w, r)
	case "/assets/portal.js":
		p.handlePortalJS(w, r)
	case "/health":
		p.handleHealth(w, r)
	case "/ready":
		p.handleReady(w, r)
	default:
		p.handle404(w, r)
	}
}

// route picks the GET or POST handler. A nil handler means the method is not
// allowed on the path.
func (p *Portal) route(w http.ResponseWriter, r *http.Request, get, post http.HandlerFunc) {
	switch {
	case (r.Method == http.MethodGet || r.Method == http.MethodHead) && get != nil:
		get(w, r)
	case r.Method == http.MethodPost && post != nil:
		post(w, r)
	default:
		allow := make([]string, 0, 2)
		if get != nil {
			allow = append(allow, http.MethodGet)
		}
		if post != nil {
			allow = append(allow, http.MethodPost)
		}
		p.handle405(w, r, allow)
	}
}

// SetReady marks the portal as ready to serve traffic.
func (p *Portal) SetReady() { p.ready.Store(true) }

// SetDraining makes readiness probes fail while the server shuts down.
func (p *Portal) SetDraining() { p.draining.Store(true) }

// load returns the visitor's state, or a fresh one that is not yet stored.
func (p *Portal) load(ctx context.Context, id string) (*flow.State, error) {
	st, err := p.sessions.Load(ctx, id)
	if errors.Is(err, flow.ErrStateNotFound) {
		return flow.NewState(id, p.clock.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	if st.Draft == nil {
		st.Draft = form.NewDraft()
	}
	return st, nil
}

// notify queues a notice on a visitor's state outside the flow operations.
func (p *Portal) notify(ctx context.Context, id string, kind flow.NoticeKind, text string) error {
	st, err := p.load(ctx, id)
	if err != nil {
		return err
	}
	st.Notify(kind, text)
	return p.sessions.Save(ctx, st)
}

func (p *Portal) clientIP(r *http.Request) string {
	return session.ClientIP(r, p.config.Server.TrustProxy)
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
