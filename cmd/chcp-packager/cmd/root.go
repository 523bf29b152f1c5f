package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/silentcmz/careate-hot-code-push/internal/service/packager"
	"github.com/silentcmz/careate-hot-code-push/internal/version"
)

var (
	// contentURL is the base URL the release will be served from.
	contentURL string
	// releaseVersion overrides the generated release token.
	releaseVersion string
	// minimumNativeVersion is the lowest host build the release supports.
	minimumNativeVersion int
	// updatePolicy advises hosts when to install the release.
	updatePolicy string

	// rootCmd represents the base command for building release documents.
	rootCmd = &cobra.Command{
		Use:   "chcp-packager [content-folder]",
		Short: "Build release documents for a content directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ContentDir:           args[0],
				ContentURL:           contentURL,
				ReleaseVersion:       releaseVersion,
				MinimumNativeVersion: minimumNativeVersion,
				UpdatePolicy:         updatePolicy,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the chcp-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&contentURL, "url", "u", "", "base URL the packaged release will be uploaded to")
	rootCmd.Flags().StringVarP(&releaseVersion, "release", "r", "", "release version token (generated when omitted)")
	rootCmd.Flags().
		IntVarP(&minimumNativeVersion, "min-native", "m", 0, "lowest native build version the release supports")
	rootCmd.Flags().StringVarP(&updatePolicy, "policy", "p", "", "installation timing hint: start, resume or now")
}
