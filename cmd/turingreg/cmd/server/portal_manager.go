package server

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/core"
	"github.com/mlcoe/turingreg/pkg/portal/factory"
	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/shared/filewatcher"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// PortalManager owns the running portal and swaps it when the config file
// changes. Stores and the in-flight guard outlive reloads so sessions and
// pending submits survive them; KVS changes need a restart.
type PortalManager struct {
	portal atomic.Value // *core.Portal

	configPath    string
	defaultConfig *config.Config
	backendURL    string

	factory      factory.Factory
	sessionKVS   kvs.Store
	rateLimitKVS kvs.Store
	kvsConfig    config.KVSConfig

	draining atomic.Bool
	mu       sync.Mutex // serializes reloads
	logger   logging.Logger
}

// NewPortalManager builds the initial portal from configPath, or from
// defaultConfig when configPath is empty. A non-empty backendURL replaces
// backend.api_url on every load.
func NewPortalManager(configPath string, defaultConfig *config.Config, backendURL string, logger logging.Logger) (*PortalManager, error) {
	if logger == nil {
		logger = logging.NewSimpleLogger("portal-manager", logging.LevelInfo, true)
	}
	f := factory.NewDefaultFactory(logger).WithGuard(flow.NewGuard())
	return newPortalManager(configPath, defaultConfig, backendURL, f, logger)
}

func newPortalManager(configPath string, defaultConfig *config.Config, backendURL string, f factory.Factory, logger logging.Logger) (*PortalManager, error) {
	m := &PortalManager{
		configPath:    configPath,
		defaultConfig: defaultConfig,
		backendURL:    backendURL,
		factory:       f,
		logger:        logger,
	}

	cfg, err := m.loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	m.sessionKVS, m.rateLimitKVS, err = f.CreateKVSStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create KVS stores: %w", err)
	}
	m.kvsConfig = cfg.KVS

	portal, err := f.CreatePortal(cfg, m.sessionKVS, m.rateLimitKVS)
	if err != nil {
		m.Close()
		return nil, err
	}
	portal.SetReady()
	m.portal.Store(portal)

	source := configPath
	if source == "" {
		source = "(defaults)"
	}
	logger.Info("Portal manager initialized", "config", source, "backend", cfg.Backend.APIURL)
	return m, nil
}

func (m *PortalManager) loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		if m.defaultConfig == nil {
			return nil, config.ErrConfigFileNotFound
		}
		copied := *m.defaultConfig
		cfg = &copied
	} else {
		loaded, err := config.NewFileLoader(path).Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if m.backendURL != "" {
		cfg.Backend.APIURL = m.backendURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OnFileChange implements filewatcher.ChangeListener
func (m *PortalManager) OnFileChange(event filewatcher.ChangeEvent) {
	if event.Error != nil {
		m.logger.Error("File change event error", "error", event.Error)
		return
	}
	m.logger.Info("Config content change detected, starting reload", "path", event.Path)
	m.reload(event.Path)
}

func (m *PortalManager) reload(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadConfig(path)
	if err != nil {
		m.logger.Error("Failed to reload portal config, keeping current configuration", "error", err, "path", path)
		return
	}

	cfg.KVS.Namespaces.SetDefaults()
	if cfg.KVS.Default.Type == "" {
		cfg.KVS.Default.Type = m.kvsConfig.Default.Type
	}
	if !reflect.DeepEqual(cfg.KVS, m.kvsConfig) {
		m.logger.Warn("KVS settings changed; restart to apply them")
	}

	portal, err := m.factory.CreatePortal(cfg, m.sessionKVS, m.rateLimitKVS)
	if err != nil {
		m.logger.Error("Failed to rebuild portal, keeping current configuration", "error", err)
		return
	}
	portal.SetReady()
	if m.draining.Load() {
		portal.SetDraining()
	}
	m.portal.Store(portal)
	m.logger.Info("Configuration reloaded successfully")
}

// Current returns the portal serving requests.
func (m *PortalManager) Current() *core.Portal {
	return m.portal.Load().(*core.Portal)
}

// Handler returns a handler that always dispatches to the current portal.
func (m *PortalManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Current().ServeHTTP(w, r)
	})
}

// SetDraining makes readiness probes fail, including on portals built by
// later reloads.
func (m *PortalManager) SetDraining() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draining.Store(true)
	m.Current().SetDraining()
}

// Close releases the stores.
func (m *PortalManager) Close() {
	if m.sessionKVS != nil {
		_ = m.sessionKVS.Close()
	}
	if m.rateLimitKVS != nil {
		_ = m.rateLimitKVS.Close()
	}
}
