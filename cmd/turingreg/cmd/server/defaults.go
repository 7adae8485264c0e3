package server

import (
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// DefaultPortalConfig returns the portal configuration used when no config
// file is given. The captcha widget is replaced by a fixed token and the
// backend URL is filled in by the caller.
func DefaultPortalConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Development = true
	cfg.Captcha.Disabled = true
	cfg.Captcha.SiteKey = ""
	cfg.RateLimit.SubmitPerMinute = 10
	cfg.KVS.Default = kvs.Config{Type: "memory"}
	return cfg
}
