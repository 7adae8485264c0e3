package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/mlcoe/turingreg/cmd/turingreg/cmd/server"
	"github.com/mlcoe/turingreg/pkg/devapi"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
	"github.com/spf13/cobra"
)

var (
	devapiAddr string
	exportOut  string
)

// devapiCmd runs the registration backend on its own
var devapiCmd = &cobra.Command{
	Use:   "devapi",
	Short: "Run the development registration backend",
	Long: `Run the registration backend without the portal.

Settings are read from the environment (EVENT_NAME, RECAPTCHA_SECRET_KEY,
ENABLE_EMAIL_SENDING, SMTP_*, SENDGRID_API_KEY, ADMIN_TOKEN, DEVAPI_KVS).
Point the portal at it with backend.api_url: http://<addr>/api/v1`,
	RunE: runDevAPI,
}

// exportCmd dumps verified students as CSV
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export verified students as CSV",
	Long: `Export verified students from the backend's store as CSV.

Only persistent stores (DEVAPI_KVS=leveldb or redis) hold data between runs.`,
	RunE: runExport,
}

func init() {
	devapiCmd.Flags().StringVar(&devapiAddr, "addr", "127.0.0.1:8000", "Listen address")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	devapiCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(devapiCmd)
}

func runDevAPI(cmd *cobra.Command, args []string) error {
	logger := logging.NewSimpleLogger("devapi", logging.LevelInfo, true)

	backend, err := server.StartDevBackend(devapiAddr, devapi.ConfigFromEnv(), logger)
	if err != nil {
		return err
	}
	defer backend.Stop()

	logger.Info("Student API ready", "url", backend.APIURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping backend...")
	case <-backend.Done():
		return fmt.Errorf("development backend stopped unexpectedly")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := devapi.ConfigFromEnv()

	base, err := kvs.New(cfg.KVS)
	if err != nil {
		return fmt.Errorf("failed to open devapi KVS: %w", err)
	}
	defer func() { _ = base.Close() }()

	store := devapi.NewStore(base, cfg.PendingTTL, cfg.OTPTTL, clockwork.NewRealClock())
	students, err := store.Students(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := devapi.WriteCSV(w, students); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if exportOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d student(s) to %s\n", len(students), exportOut)
	}
	return nil
}
