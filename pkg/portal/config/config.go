// Package config loads and validates the portal configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// Config represents the portal configuration
type Config struct {
	Service      ServiceConfig      `yaml:"service" json:"service"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	Backend      BackendConfig      `yaml:"backend" json:"backend"`
	Captcha      CaptchaConfig      `yaml:"captcha" json:"captcha"`
	Registration RegistrationConfig `yaml:"registration" json:"registration"`
	Verification VerificationConfig `yaml:"verification" json:"verification"`
	Session      SessionConfig      `yaml:"session" json:"session"`
	RateLimit    RateLimitConfig    `yaml:"ratelimit" json:"ratelimit"`
	KVS          KVSConfig          `yaml:"kvs" json:"kvs"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// ServiceConfig contains the event branding shown on every page
type ServiceConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	Development bool   `yaml:"development" json:"development"` // Relaxes CSP and enables the in-process backend
	TrustProxy  bool   `yaml:"trust_proxy" json:"trust_proxy"` // Take the client address from X-Forwarded-For
}

// BackendConfig points at the registration API
type BackendConfig struct {
	APIURL  string `yaml:"api_url" json:"api_url"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// GetTimeout returns the HTTP client timeout (default 15s)
func (b BackendConfig) GetTimeout() (time.Duration, error) {
	if b.Timeout == "" {
		return 15 * time.Second, nil
	}
	return time.ParseDuration(b.Timeout)
}

// CaptchaConfig contains bot check settings
type CaptchaConfig struct {
	SiteKey  string `yaml:"site_key" json:"site_key"`
	Disabled bool   `yaml:"disabled" json:"disabled"`   // Skip the widget and send DevToken instead
	DevToken string `yaml:"dev_token" json:"dev_token"` // Token used when Disabled (default "dev-token")
}

// RegistrationConfig describes who may register and what they can pick
type RegistrationConfig struct {
	EmailDomain         string   `yaml:"email_domain" json:"email_domain"`
	StudentNumberPrefix string   `yaml:"student_number_prefix" json:"student_number_prefix"`
	Branches            []string `yaml:"branches" json:"branches"`
	Domains             []string `yaml:"domains" json:"domains"`
}

// Rules compiles the field rules for this configuration
func (r RegistrationConfig) Rules() (*form.Rules, error) {
	return form.NewRules(r.EmailDomain, r.StudentNumberPrefix)
}

// Options returns the select options, falling back to the built-in lists
func (r RegistrationConfig) Options() form.Options {
	var o form.Options
	for _, b := range r.Branches {
		o.Branches = append(o.Branches, form.Option{Value: b, Label: b})
	}
	for _, d := range r.Domains {
		o.Domains = append(o.Domains, form.Option{Value: d, Label: d})
	}
	return o.WithDefaults()
}

// VerificationConfig contains verification page timings
type VerificationConfig struct {
	ResendCooldown string `yaml:"resend_cooldown" json:"resend_cooldown"`
	SuccessDelay   string `yaml:"success_delay" json:"success_delay"`
}

// GetResendCooldown returns the wait between resends (default 60s)
func (v VerificationConfig) GetResendCooldown() (time.Duration, error) {
	if v.ResendCooldown == "" {
		return 60 * time.Second, nil
	}
	return time.ParseDuration(v.ResendCooldown)
}

// GetSuccessDelay returns the pause before leaving the verify page (default 2s)
func (v VerificationConfig) GetSuccessDelay() (time.Duration, error) {
	if v.SuccessDelay == "" {
		return 2 * time.Second, nil
	}
	return time.ParseDuration(v.SuccessDelay)
}

// SessionConfig contains portal session settings
type SessionConfig struct {
	Cookie CookieConfig `yaml:"cookie" json:"cookie"`
}

// CookieConfig contains session cookie settings
type CookieConfig struct {
	Name     string `yaml:"name" json:"name"`
	Expire   string `yaml:"expire" json:"expire"`
	Secure   bool   `yaml:"secure" json:"secure"`
	SameSite string `yaml:"samesite" json:"samesite"`
}

// GetExpireDuration returns the cookie and session lifetime
func (c CookieConfig) GetExpireDuration() (time.Duration, error) {
	return time.ParseDuration(c.Expire)
}

// RateLimitConfig throttles registration submits per client address
type RateLimitConfig struct {
	SubmitPerMinute int `yaml:"submit_per_minute" json:"submit_per_minute"` // 0 disables the limit
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string             `yaml:"level" json:"level"`
	Color bool               `yaml:"color" json:"color"`
	File  *FileLoggingConfig `yaml:"file,omitempty" json:"file,omitempty"`
}

// FileLoggingConfig contains file logging and rotation settings
type FileLoggingConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"` // default 100
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty"` // default 3
	MaxAge     int    `yaml:"max_age,omitempty" json:"max_age,omitempty"`         // days, default 28
	Compress   bool   `yaml:"compress,omitempty" json:"compress,omitempty"`
}

// KVSConfig contains the shared KVS with optional dedicated backends.
type KVSConfig struct {
	Default kvs.Config `yaml:"default" json:"default"`

	// Optional overrides; nil uses Default under the namespace prefix
	Session   *kvs.Config `yaml:"session,omitempty" json:"session,omitempty"`
	RateLimit *kvs.Config `yaml:"ratelimit,omitempty" json:"ratelimit,omitempty"`

	Namespaces NamespaceConfig `yaml:"namespaces" json:"namespaces"`
}

// NamespaceConfig defines the key prefixes used when sharing a KVS
type NamespaceConfig struct {
	Session   string `yaml:"session" json:"session"`     // Default: "session"
	RateLimit string `yaml:"ratelimit" json:"ratelimit"` // Default: "ratelimit"
}

// SetDefaults sets default namespace names if not specified
func (n *NamespaceConfig) SetDefaults() {
	if n.Session == "" {
		n.Session = "session"
	}
	if n.RateLimit == "" {
		n.RateLimit = "ratelimit"
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks if the configuration is valid
// Returns a ValidationError containing all validation errors found
func (c *Config) Validate() error {
	verr := NewValidationError()

	if c.Service.Name == "" {
		verr.Add(ErrServiceNameRequired)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		verr.Add(fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port))
	}

	if c.Backend.APIURL == "" {
		verr.Add(ErrAPIURLRequired)
	} else if !strings.HasPrefix(c.Backend.APIURL, "http://") && !strings.HasPrefix(c.Backend.APIURL, "https://") {
		verr.Add(fmt.Errorf("%w: %s", ErrInvalidAPIURL, c.Backend.APIURL))
	}

	if !c.Captcha.Disabled && c.Captcha.SiteKey == "" {
		verr.Add(ErrSiteKeyRequired)
	}

	if _, err := c.Registration.Rules(); err != nil {
		verr.Add(fmt.Errorf("registration: %w", err))
	}

	verr.Add(checkDuration("backend.timeout", c.Backend.Timeout))
	verr.Add(checkDuration("verification.resend_cooldown", c.Verification.ResendCooldown))
	verr.Add(checkDuration("verification.success_delay", c.Verification.SuccessDelay))
	verr.Add(checkDuration("session.cookie.expire", c.Session.Cookie.Expire))

	if c.RateLimit.SubmitPerMinute < 0 {
		verr.Add(ErrInvalidRateLimit)
	}

	if c.Logging.File != nil && c.Logging.File.Path == "" {
		verr.Add(ErrLogFilePathRequired)
	}

	return verr.ErrorOrNil()
}

func checkDuration(name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", name, value)
	}
	return nil
}

// envOr returns the named environment variable, or fallback when unset.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        "The Turing Test 25",
			Description: "Registration for The Turing Test 25",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 4180,
		},
	}
	applyDefaults(cfg)
	return cfg
}

