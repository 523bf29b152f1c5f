package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
	"github.com/silentcmz/careate-hot-code-push/internal/service/updater"
	"github.com/silentcmz/careate-hot-code-push/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// configURL overrides the application config endpoint from settings.
	configURL string
	// workerID tags the run's outcome for host-side correlation.
	workerID string
	// interval enables poll mode when positive.
	interval time.Duration

	// rootCmd represents the base command for checking and staging releases.
	rootCmd = &cobra.Command{
		Use:   "chcp-updater",
		Short: "Check for a new content release and stage it for installation",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				ConfigURL:  configURL,
				WorkerID:   workerID,
				Interval:   interval,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the chcp-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&configURL, "url", "u", "", "application config URL (overrides configuration file)")
	rootCmd.Flags().StringVarP(&workerID, "worker-id", "w", "", "identifier attached to the reported outcome")
	rootCmd.Flags().
		DurationVarP(&interval, "interval", "i", 0, "poll for updates on this interval instead of checking once")
}
