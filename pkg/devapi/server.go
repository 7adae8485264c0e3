// Package devapi is a development stand-in for the registration backend. It
// serves the student endpoints the portal calls, keeps pending registrations
// and codes in a kvs.Store, and emails codes through a configurable sender.
package devapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/mlcoe/turingreg/pkg/shared/ratelimit"
)

// Server is the development backend's HTTP handler.
type Server struct {
	cfg      Config
	store    *Store
	sender   Sender
	template *EmailTemplate
	captcha  CaptchaChecker
	resend   *ratelimit.Limiter
	logger   logging.Logger
	clock    clockwork.Clock
	router   chi.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithClock sets the clock used for timestamps, code expiry and rate limits.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithSender replaces the sender built from the email config.
func WithSender(sender Sender) Option {
	return func(s *Server) { s.sender = sender }
}

// WithCaptchaChecker replaces the checker built from the config.
func WithCaptchaChecker(c CaptchaChecker) Option {
	return func(s *Server) { s.captcha = c }
}

// New creates a Server storing its data in base. The caller owns base.
func New(cfg Config, base kvs.Store, logger logging.Logger, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if logger == nil {
		logger = logging.NewSimpleLogger("devapi", logging.LevelInfo, false)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.WithModule("devapi"),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sender == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("devapi: %w", err)
		}
		sender, err := NewSender(cfg.Email, s.logger)
		if err != nil {
			return nil, fmt.Errorf("devapi: %w", err)
		}
		s.sender = sender
	}
	if s.captcha == nil {
		s.captcha = NewCaptchaChecker(cfg)
	}

	s.store = NewStore(base, cfg.PendingTTL, cfg.OTPTTL, s.clock)
	s.template = NewEmailTemplate(cfg.EventName, "", s.clock.Now())
	if cfg.ResendPerHour > 0 {
		s.resend = ratelimit.NewLimiter(cfg.ResendPerHour, time.Hour, kvs.NewNamespacedStore(base, "resend:"), s.clock)
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1/student", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/verify", s.handleVerify)
		r.Get("/resend-otp", s.handleResend)
		r.Post("/validate", s.handleValidate)
	})

	if s.cfg.AdminToken != "" {
		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/export", s.handleExport)
			r.Get("/stats", s.handleStats)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store exposes the backing store, for export from the CLI.
func (s *Server) Store() *Store { return s.store }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "elapsed", time.Since(start))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := []byte("Bearer " + s.cfg.AdminToken)
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
