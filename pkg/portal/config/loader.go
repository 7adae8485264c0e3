package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/captcha"
	sharedconfig "github.com/mlcoe/turingreg/pkg/shared/config"
)

// Loader is an interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// FileLoader loads configuration from a YAML or JSON file
type FileLoader struct {
	path string
}

// NewFileLoader creates a new FileLoader
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Path returns the file being loaded
func (l *FileLoader) Path() string { return l.path }

// Load reads and parses the configuration file. The format follows the
// extension (.yaml, .yml or .json). ${VAR} and ${VAR:-default} are expanded
// before parsing. Validation is left to the caller so every problem can be
// reported at once.
func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, l.path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data = sharedconfig.ExpandEnvBytes(data)

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(l.path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults sets default values for optional fields. The backend URL and
// site key fall back to API_URL and RECAPTCHA_SITE_KEY, then to the
// production values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4180
	}

	if cfg.Backend.APIURL == "" {
		cfg.Backend.APIURL = envOr("API_URL", api.DefaultBaseURL)
	}
	cfg.Backend.APIURL = strings.TrimRight(cfg.Backend.APIURL, "/")

	if cfg.Captcha.SiteKey == "" && !cfg.Captcha.Disabled {
		cfg.Captcha.SiteKey = envOr("RECAPTCHA_SITE_KEY", captcha.DefaultSiteKey)
	}
	if cfg.Captcha.DevToken == "" {
		cfg.Captcha.DevToken = "dev-token"
	}

	if cfg.Registration.EmailDomain == "" {
		cfg.Registration.EmailDomain = "akgec.ac.in"
	}
	if cfg.Registration.StudentNumberPrefix == "" {
		cfg.Registration.StudentNumberPrefix = "24"
	}

	if cfg.Session.Cookie.Name == "" {
		cfg.Session.Cookie.Name = "_turingreg"
	}
	if cfg.Session.Cookie.Expire == "" {
		cfg.Session.Cookie.Expire = "24h"
	}
	if cfg.Session.Cookie.SameSite == "" {
		cfg.Session.Cookie.SameSite = "lax"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	cfg.KVS.Namespaces.SetDefaults()
}
