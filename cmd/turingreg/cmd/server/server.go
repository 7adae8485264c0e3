package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mlcoe/turingreg/pkg/devapi"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/shared/filewatcher"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// Config carries the command-line settings for Run.
type Config struct {
	ConfigPath string
	Host       string
	Port       int
	HostSet    bool // --host given explicitly; overrides server.host
	PortSet    bool // --port given explicitly; overrides server.port
	Logger     logging.Logger
	Version    string

	// DevAPI configures the development backend started when no config file
	// is used or the file enables development mode.
	DevAPI devapi.Config
}

// ResolvedConfig is the listener setup after flags and file are merged.
type ResolvedConfig struct {
	Host        string
	Port        int
	Development bool
}

const shutdownTimeout = 30 * time.Second

// Run starts the portal and blocks until ctx is cancelled, a shutdown signal
// arrives or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewSimpleLogger("main", logging.LevelInfo, true)
	}

	logger.Info("Starting turingreg", "version", cfg.Version)

	useDefaultConfig := false
	configPath := cfg.ConfigPath
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			logger.Warn("Config file not found, using default configuration", "path", configPath)
			useDefaultConfig = true
			configPath = ""
		}
	} else {
		logger.Warn("No config file specified, using default configuration")
		useDefaultConfig = true
	}

	resolved, err := resolveServerConfig(cfg, configPath, logger)
	if err != nil {
		return formatConfigError("portal", err)
	}

	var defaultConfig *config.Config
	if useDefaultConfig {
		logDefaultConfigWarnings(logger)
		defaultConfig = DefaultPortalConfig()
	}

	var devBackend *DevBackend
	backendURL := ""
	if useDefaultConfig || resolved.Development {
		devBackend, err = StartDevBackend("", cfg.DevAPI, logger.WithModule("devapi"))
		if err != nil {
			return fmt.Errorf("failed to start development backend: %w", err)
		}
		defer devBackend.Stop()
		backendURL = devBackend.APIURL()
		logger.Warn("Using DEVELOPMENT backend (for development only)", "url", backendURL)
	}

	manager, err := NewPortalManager(configPath, defaultConfig, backendURL, logger)
	if err != nil {
		return formatConfigError("portal", err)
	}
	defer manager.Close()

	sigCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if configPath != "" {
		watcher, err := filewatcher.NewWatcher(configPath, 100*time.Millisecond)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer func() {
			cancel()
			_ = watcher.Close()
		}()
		watcher.AddListener(manager)

		go func() {
			if err := watcher.Start(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("File watcher error", "error", err)
			}
		}()
		logger.Info("File watcher initialized for hot reload", "config_file", configPath)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	addr := fmt.Sprintf("%s:%d", resolved.Host, resolved.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           manager.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Portal listening", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		} else {
			errChan <- nil
		}
	}()

	select {
	case <-stop:
		logger.Info("Received shutdown signal, draining portal")
	case <-ctx.Done():
		logger.Info("Context done, draining portal")
	case err := <-errChan:
		if err != nil {
			logger.Error("Server stopped with error", "error", err)
		}
		return err
	}

	cancel()
	manager.SetDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := <-errChan; err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}

	logger.Info("Portal stopped")
	return nil
}

// resolveServerConfig merges the listener settings. Explicit flags win over
// the config file, which wins over flag defaults.
func resolveServerConfig(cfg Config, configPath string, logger logging.Logger) (ResolvedConfig, error) {
	resolved := ResolvedConfig{Host: cfg.Host, Port: cfg.Port}

	if configPath == "" {
		return resolved, nil
	}

	fileCfg, err := config.NewFileLoader(configPath).Load()
	if err != nil {
		return resolved, err
	}
	resolved.Development = fileCfg.Server.Development

	// The loader fills host and port defaults, so the file always has a value.
	if !cfg.HostSet {
		resolved.Host = fileCfg.Server.Host
		logger.Debug("Host taken from config file", "host", resolved.Host)
	} else {
		logger.Debug("Host taken from --host", "host", resolved.Host)
	}

	if !cfg.PortSet {
		resolved.Port = fileCfg.Server.Port
		logger.Debug("Port taken from config file", "port", resolved.Port)
	} else {
		logger.Debug("Port taken from --port", "port", resolved.Port)
	}

	return resolved, nil
}

// formatConfigError turns load and validation failures into operator-facing
// messages, listing every problem when there are several.
func formatConfigError(component string, err error) error {
	var validationErr *config.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Errors) > 1 {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Configuration validation failed for %s with %d error(s):\n\n", component, len(validationErr.Errors)))
		for i, e := range validationErr.Errors {
			sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, e))
		}
		sb.WriteString("\nPlease fix the errors above in your configuration file.")
		return errors.New(sb.String())
	}

	if errors.Is(err, config.ErrConfigFileNotFound) {
		return fmt.Errorf("configuration file not found: %v - please create a configuration file or specify the correct path with --config flag", err)
	}

	if validationErr != nil ||
		errors.Is(err, config.ErrServiceNameRequired) ||
		errors.Is(err, config.ErrAPIURLRequired) ||
		errors.Is(err, config.ErrInvalidAPIURL) ||
		errors.Is(err, config.ErrSiteKeyRequired) {
		return fmt.Errorf("configuration validation error in %s: %v - please check your configuration file and fix the issue above", component, err)
	}

	return fmt.Errorf("failed to initialize %s: %v", component, err)
}

// logDefaultConfigWarnings reminds operators that the defaults are for
// development only.
func logDefaultConfigWarnings(logger logging.Logger) {
	logger.Warn("----------------------------------------")
	logger.Warn("Running with built-in development defaults")
	logger.Warn("DO NOT USE IN PRODUCTION")
	logger.Warn("----------------------------------------")
	logger.Warn("  - Backend: development backend (auto-started, codes written to the log)")
	logger.Warn("  - Captcha: disabled, a fixed token is submitted")
	logger.Warn("  - Sessions: in memory, lost on restart")
	logger.Warn("----------------------------------------")
}
