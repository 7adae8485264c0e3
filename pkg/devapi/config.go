package devapi

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// Config configures the development backend.
type Config struct {
	// EventName appears in email subjects and the root endpoint.
	EventName string `yaml:"event_name" json:"event_name"`

	// PendingTTL bounds how long an unverified registration is kept (default 30m).
	PendingTTL time.Duration `yaml:"pending_ttl" json:"pending_ttl"`
	// OTPTTL bounds how long an issued code is accepted (default 2m).
	OTPTTL time.Duration `yaml:"otp_ttl" json:"otp_ttl"`

	// ResendPerHour caps resends per email address. 0 disables the cap.
	ResendPerHour int `yaml:"resend_per_hour" json:"resend_per_hour"`

	// RecaptchaSecret enables Google siteverify. Empty accepts any non-empty token.
	RecaptchaSecret string `yaml:"recaptcha_secret" json:"recaptcha_secret"`
	// SiteVerifyURL overrides the verification endpoint.
	SiteVerifyURL string `yaml:"siteverify_url" json:"siteverify_url"`

	// AdminToken protects the export endpoint. Empty disables it.
	AdminToken string `yaml:"admin_token" json:"admin_token"`

	Email EmailConfig `yaml:"email" json:"email"`
	KVS   kvs.Config  `yaml:"kvs" json:"kvs"`
}

// EmailConfig selects how codes and confirmations are delivered.
type EmailConfig struct {
	// SenderType is "log" (default), "smtp" or "sendgrid".
	SenderType string         `yaml:"sender_type" json:"sender_type"`
	From       string         `yaml:"from" json:"from"`
	FromName   string         `yaml:"from_name" json:"from_name"`
	SMTP       SMTPConfig     `yaml:"smtp" json:"smtp"`
	SendGrid   SendGridConfig `yaml:"sendgrid" json:"sendgrid"`
}

// SMTPConfig contains SMTP server settings
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// TLS dials with implicit TLS instead of STARTTLS.
	TLS bool `yaml:"tls" json:"tls"`
}

// SendGridConfig contains SendGrid API settings
type SendGridConfig struct {
	APIKey      string `yaml:"api_key" json:"api_key"`
	EndpointURL string `yaml:"endpoint_url" json:"endpoint_url"`
}

const (
	DefaultPendingTTL    = 30 * time.Minute
	DefaultOTPTTL        = 2 * time.Minute
	DefaultResendPerHour = 5
	DefaultSiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
)

var (
	ErrUnknownSender    = errors.New("unknown email sender type")
	ErrSMTPHostRequired = errors.New("email.smtp.host is required for the smtp sender")
	ErrAPIKeyRequired   = errors.New("email.sendgrid.api_key is required for the sendgrid sender")
	ErrFromRequired     = errors.New("email.from is required")
)

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.EventName == "" {
		c.EventName = "The Turing Test 25"
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = DefaultPendingTTL
	}
	if c.OTPTTL <= 0 {
		c.OTPTTL = DefaultOTPTTL
	}
	if c.SiteVerifyURL == "" {
		c.SiteVerifyURL = DefaultSiteVerifyURL
	}
	if c.Email.SenderType == "" {
		c.Email.SenderType = "log"
	}
	if c.Email.SMTP.Port == 0 {
		c.Email.SMTP.Port = 587
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.SMTP.Username
	}
	if c.KVS.Type == "" {
		c.KVS.Type = "memory"
	}
	if c.KVS.Namespace == "" {
		c.KVS.Namespace = "devapi"
	}
}

// Validate checks the email sender settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Email.SenderType {
	case "log":
	case "smtp":
		if c.Email.SMTP.Host == "" {
			errs = append(errs, ErrSMTPHostRequired)
		}
		if c.Email.From == "" {
			errs = append(errs, ErrFromRequired)
		}
	case "sendgrid":
		if c.Email.SendGrid.APIKey == "" {
			errs = append(errs, ErrAPIKeyRequired)
		}
		if c.Email.From == "" {
			errs = append(errs, ErrFromRequired)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownSender, c.Email.SenderType))
	}
	if c.ResendPerHour < 0 {
		errs = append(errs, fmt.Errorf("resend_per_hour must not be negative: %d", c.ResendPerHour))
	}
	return errors.Join(errs...)
}

// ConfigFromEnv reads the backend's environment variables. Real email is only
// sent when ENABLE_EMAIL_SENDING is true and credentials are present, otherwise
// codes are written to the log.
func ConfigFromEnv() Config {
	cfg := Config{
		EventName:       os.Getenv("EVENT_NAME"),
		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET_KEY"),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		ResendPerHour:   DefaultResendPerHour,
	}
	if n, err := strconv.Atoi(os.Getenv("RESEND_PER_HOUR")); err == nil {
		cfg.ResendPerHour = n
	}

	cfg.Email.From = os.Getenv("FROM_EMAIL")
	cfg.Email.FromName = os.Getenv("FROM_NAME")
	cfg.Email.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_SERVER"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	if port, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		cfg.Email.SMTP.Port = port
	}
	if cfg.Email.SMTP.Host == "" {
		cfg.Email.SMTP.Host = "smtp.gmail.com"
	}
	cfg.Email.SendGrid.APIKey = os.Getenv("SENDGRID_API_KEY")

	if strings.EqualFold(os.Getenv("ENABLE_EMAIL_SENDING"), "true") {
		switch {
		case cfg.Email.SendGrid.APIKey != "":
			cfg.Email.SenderType = "sendgrid"
		case cfg.Email.SMTP.Username != "" && cfg.Email.SMTP.Password != "":
			cfg.Email.SenderType = "smtp"
		}
	}

	switch os.Getenv("DEVAPI_KVS") {
	case "leveldb":
		cfg.KVS = kvs.Config{Type: "leveldb", LevelDB: kvs.LevelDBConfig{Path: os.Getenv("DEVAPI_LEVELDB_PATH")}}
	case "redis":
		cfg.KVS = kvs.Config{Type: "redis", Redis: kvs.RedisConfig{Addr: os.Getenv("DEVAPI_REDIS_ADDR")}}
	}

	cfg.SetDefaults()
	return cfg
}
