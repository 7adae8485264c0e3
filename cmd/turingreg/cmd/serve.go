package cmd

import (
	"context"
	"fmt"

	"github.com/mlcoe/turingreg/cmd/turingreg/cmd/server"
	"github.com/mlcoe/turingreg/pkg/devapi"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registration portal",
	Long: `Start the registration portal with the specified configuration.

The server will:
- Load the configuration file (or fall back to development defaults)
- Start the development backend when running in development mode
- Initialize session storage (memory, LevelDB or Redis)
- Reload the configuration when the file changes
- Handle graceful shutdown on SIGTERM/SIGINT`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := loggerFromConfig(cfgFile)
	if err != nil {
		return err
	}

	cfg := server.Config{
		ConfigPath: cfgFile,
		Host:       host,
		Port:       port,
		HostSet:    cmd.Flags().Changed("host"),
		PortSet:    cmd.Flags().Changed("port"),
		Logger:     logger,
		Version:    version,
		DevAPI:     devapi.ConfigFromEnv(),
	}

	return server.Run(context.Background(), cfg)
}

// loggerFromConfig builds the main logger from the logging section of path.
// When the file cannot be loaded the console defaults are used and the error
// is left for the server to report.
func loggerFromConfig(path string) (logging.Logger, error) {
	var logCfg config.LoggingConfig
	if path != "" {
		if appConfig, err := config.NewFileLoader(path).Load(); err == nil {
			logCfg = appConfig.Logging
		}
	}

	level := logging.ParseLevel(logCfg.Level)
	var fileRotationConfig *logging.FileRotationConfig
	if logCfg.File != nil && logCfg.File.Path != "" {
		fileRotationConfig = &logging.FileRotationConfig{
			Path:       logCfg.File.Path,
			MaxSizeMB:  logCfg.File.MaxSizeMB,
			MaxBackups: logCfg.File.MaxBackups,
			MaxAge:     logCfg.File.MaxAge,
			Compress:   logCfg.File.Compress,
		}
	}

	logger, err := logging.NewLoggerWithFile("main", level, logCfg.Color, fileRotationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
