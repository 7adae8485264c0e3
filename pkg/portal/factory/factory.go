// Package factory assembles a Portal and its collaborators from a Config.
package factory

import (
	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/core"
	"github.com/mlcoe/turingreg/pkg/portal/session"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/ratelimit"
)

// Factory creates the portal and its components. Embed DefaultFactory to
// override individual methods.
type Factory interface {
	// CreatePortal builds a complete Portal on top of stores created with
	// CreateKVSStores.
	CreatePortal(cfg *config.Config, sessionKVS, rateLimitKVS kvs.Store) (*core.Portal, error)

	// CreateKVSStores opens the session and rate limit stores. The caller
	// owns both and must close them.
	CreateKVSStores(cfg *config.Config) (session kvs.Store, rateLimit kvs.Store, err error)

	CreateSessionStore(cfg *config.Config, store kvs.Store) (*session.Store, error)

	CreateBackend(cfg *config.Config) (*api.Client, error)

	CreateCaptchaProvider(cfg *config.Config) captcha.Provider

	// CreateLimiter returns nil when submit throttling is disabled.
	CreateLimiter(cfg *config.Config, store kvs.Store) *ratelimit.Limiter
}
