package factory

import (
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/core"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// TestingFactory builds portals on in-memory stores with the captcha widget
// replaced by a fixed token, regardless of configuration.
type TestingFactory struct {
	*DefaultFactory
}

// NewTestingFactory creates a TestingFactory with a quiet logger.
func NewTestingFactory() *TestingFactory {
	return NewTestingFactoryWithLogger(logging.NewSimpleLogger("test", logging.LevelError, false))
}

// NewTestingFactoryWithLogger creates a TestingFactory with a custom logger.
func NewTestingFactoryWithLogger(logger logging.Logger) *TestingFactory {
	return &TestingFactory{DefaultFactory: NewDefaultFactory(logger)}
}

// CreatePortal is DefaultFactory.CreatePortal with the test captcha.
func (f *TestingFactory) CreatePortal(cfg *config.Config, sessionKVS, rateLimitKVS kvs.Store) (*core.Portal, error) {
	sessions, err := f.CreateSessionStore(cfg, sessionKVS)
	if err != nil {
		return nil, err
	}
	backend, err := f.CreateBackend(cfg)
	if err != nil {
		return nil, err
	}

	opts := []core.Option{core.WithClock(f.clock)}
	if f.guard != nil {
		opts = append(opts, core.WithGuard(f.guard))
	}
	return core.New(cfg, sessions, backend, f.CreateCaptchaProvider(cfg), f.CreateLimiter(cfg, rateLimitKVS), f.logger, opts...)
}

// CreateKVSStores always returns memory stores.
func (f *TestingFactory) CreateKVSStores(cfg *config.Config) (sessionKVS kvs.Store, rateLimitKVS kvs.Store, err error) {
	cfg.KVS.Namespaces.SetDefaults()

	sessionKVS, err = kvs.New(kvs.Config{Type: "memory", Namespace: cfg.KVS.Namespaces.Session}, kvs.WithClock(f.clock))
	if err != nil {
		return nil, nil, err
	}
	rateLimitKVS, err = kvs.New(kvs.Config{Type: "memory", Namespace: cfg.KVS.Namespaces.RateLimit}, kvs.WithClock(f.clock))
	if err != nil {
		_ = sessionKVS.Close()
		return nil, nil, err
	}
	return sessionKVS, rateLimitKVS, nil
}

// CreateCaptchaProvider always returns the static provider.
func (f *TestingFactory) CreateCaptchaProvider(cfg *config.Config) captcha.Provider {
	token := cfg.Captcha.DevToken
	if token == "" {
		token = "test-token"
	}
	return captcha.NewStatic(token)
}

var (
	_ Factory = (*DefaultFactory)(nil)
	_ Factory = (*TestingFactory)(nil)
)
