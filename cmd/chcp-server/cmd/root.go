package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/silentcmz/careate-hot-code-push/internal/service/server"
	"github.com/silentcmz/careate-hot-code-push/internal/version"
)

var (
	// listenAddress is the host:port the server binds to.
	listenAddress string

	// rootCmd represents the base command for serving packaged content.
	rootCmd = &cobra.Command{
		Use:   "chcp-server [content-folder]",
		Short: "Serve a packaged content directory over HTTP",
		Long: `Starts an HTTP server that exposes a packaged content directory.

Point the updater's config_url at <server>/chcp.json to consume releases
from it. Intended for development and small deployments; production
releases normally sit behind a CDN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ListenAddress: listenAddress,
				ContentDir:    args[0],
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the chcp-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().
		StringVarP(&listenAddress, "listen", "l", server.DefaultServerAddress, "address to serve content on")
}
