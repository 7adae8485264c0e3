package factory

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/core"
	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/session"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/mlcoe/turingreg/pkg/shared/ratelimit"
)

// DefaultFactory is the default implementation of Factory.
type DefaultFactory struct {
	logger logging.Logger
	clock  clockwork.Clock
	guard  *flow.Guard
}

// NewDefaultFactory creates a new DefaultFactory
func NewDefaultFactory(logger logging.Logger) *DefaultFactory {
	if logger == nil {
		logger = logging.NewSimpleLogger("factory", logging.LevelInfo, false)
	}
	return &DefaultFactory{
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock sets the clock handed to every component.
func (f *DefaultFactory) WithClock(c clockwork.Clock) *DefaultFactory {
	f.clock = c
	return f
}

// WithGuard makes every portal built by f share g, so a reloaded portal sees
// requests the previous one still has in flight.
func (f *DefaultFactory) WithGuard(g *flow.Guard) *DefaultFactory {
	f.guard = g
	return f
}

// CreatePortal creates a complete Portal with all components
func (f *DefaultFactory) CreatePortal(cfg *config.Config, sessionKVS, rateLimitKVS kvs.Store) (*core.Portal, error) {
	sessions, err := f.CreateSessionStore(cfg, sessionKVS)
	if err != nil {
		return nil, err
	}

	backend, err := f.CreateBackend(cfg)
	if err != nil {
		return nil, err
	}

	provider := f.CreateCaptchaProvider(cfg)
	limiter := f.CreateLimiter(cfg, rateLimitKVS)

	opts := []core.Option{core.WithClock(f.clock)}
	if f.guard != nil {
		opts = append(opts, core.WithGuard(f.guard))
	}

	portal, err := core.New(cfg, sessions, backend, provider, limiter, f.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal: %w", err)
	}
	return portal, nil
}

// CreateKVSStores creates the session and rate limit stores. Each one uses
// its dedicated config when present, otherwise the default config under its
// namespace.
func (f *DefaultFactory) CreateKVSStores(cfg *config.Config) (sessionKVS kvs.Store, rateLimitKVS kvs.Store, err error) {
	cfg.KVS.Namespaces.SetDefaults()

	if cfg.KVS.Default.Type == "" {
		cfg.KVS.Default.Type = "memory"
	}

	if cfg.KVS.Session == nil && cfg.KVS.RateLimit == nil && sharesDatabase(cfg.KVS.Default) {
		return f.openShared(cfg.KVS.Default, cfg.KVS.Namespaces.Session, cfg.KVS.Namespaces.RateLimit)
	}

	sessionKVS, err = f.openStore("session", cfg.KVS.Session, cfg.KVS.Default, cfg.KVS.Namespaces.Session)
	if err != nil {
		return nil, nil, err
	}

	rateLimitKVS, err = f.openStore("rate limit", cfg.KVS.RateLimit, cfg.KVS.Default, cfg.KVS.Namespaces.RateLimit)
	if err != nil {
		_ = sessionKVS.Close()
		return nil, nil, err
	}

	return sessionKVS, rateLimitKVS, nil
}

// sharesDatabase reports whether stores built from cfg would all open the
// same LevelDB directory. LevelDB locks its directory, so such stores must
// share one handle.
func sharesDatabase(cfg kvs.Config) bool {
	return cfg.Type == "leveldb" && cfg.LevelDB.Path != ""
}

// openShared opens the default store once and splits it into the session
// and rate limit namespaces.
func (f *DefaultFactory) openShared(shared kvs.Config, sessionNS, rateLimitNS string) (kvs.Store, kvs.Store, error) {
	shared.Namespace = ""
	base, err := kvs.New(shared, kvs.WithClock(f.clock))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create shared KVS: %w", err)
	}
	stores := kvs.Share(base, sessionNS+":", rateLimitNS+":")
	f.logger.Debug("KVS initialized (shared database)", "type", shared.Type, "path", shared.LevelDB.Path,
		"namespaces", []string{sessionNS, rateLimitNS})
	return stores[0], stores[1], nil
}

func (f *DefaultFactory) openStore(label string, dedicated *kvs.Config, shared kvs.Config, namespace string) (kvs.Store, error) {
	opts := []kvs.Option{kvs.WithClock(f.clock)}

	if dedicated != nil {
		store, err := kvs.New(*dedicated, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s KVS: %w", label, err)
		}
		f.logger.Debug("KVS initialized (dedicated)", "store", label, "type", dedicated.Type, "namespace", dedicated.Namespace)
		return store, nil
	}

	storeCfg := shared
	storeCfg.Namespace = namespace
	store, err := kvs.New(storeCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s KVS: %w", label, err)
	}
	f.logger.Debug("KVS initialized (default)", "store", label, "type", storeCfg.Type, "namespace", namespace)
	return store, nil
}

// CreateSessionStore wraps store with the configured session lifetime.
func (f *DefaultFactory) CreateSessionStore(cfg *config.Config, store kvs.Store) (*session.Store, error) {
	ttl := session.DefaultTTL
	if cfg.Session.Cookie.Expire != "" {
		d, err := cfg.Session.Cookie.GetExpireDuration()
		if err != nil {
			return nil, fmt.Errorf("invalid session expire: %w", err)
		}
		ttl = d
	}
	return session.NewStore(store, ttl), nil
}

// CreateBackend creates the registration API client
func (f *DefaultFactory) CreateBackend(cfg *config.Config) (*api.Client, error) {
	timeout, err := cfg.Backend.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid backend timeout: %w", err)
	}
	client := api.NewClient(cfg.Backend.APIURL, timeout, f.logger)
	f.logger.Debug("Backend client initialized", "api_url", client.BaseURL(), "timeout", timeout)
	return client, nil
}

// CreateCaptchaProvider returns the reCAPTCHA provider, or a static token
// provider when the widget is disabled.
func (f *DefaultFactory) CreateCaptchaProvider(cfg *config.Config) captcha.Provider {
	if cfg.Captcha.Disabled {
		f.logger.Warn("Captcha disabled, submitting a fixed token", "token", cfg.Captcha.DevToken)
		return captcha.NewStatic(cfg.Captcha.DevToken)
	}
	return captcha.NewRecaptcha(cfg.Captcha.SiteKey)
}

// CreateLimiter creates the per-client submit limiter
func (f *DefaultFactory) CreateLimiter(cfg *config.Config, store kvs.Store) *ratelimit.Limiter {
	if cfg.RateLimit.SubmitPerMinute <= 0 || store == nil {
		f.logger.Debug("Submit rate limit disabled")
		return nil
	}
	f.logger.Debug("Submit rate limit initialized", "per_minute", cfg.RateLimit.SubmitPerMinute)
	return ratelimit.NewLimiter(cfg.RateLimit.SubmitPerMinute, time.Minute, store, f.clock)
}
