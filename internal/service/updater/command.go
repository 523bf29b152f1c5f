package updater

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/logger"
	"github.com/silentcmz/careate-hot-code-push/internal/network"
	"github.com/silentcmz/careate-hot-code-push/internal/output"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/prefs"
)

var errUpdaterAlreadyRunning = errors.New("the updater is already running")

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// ConfigURL overrides the application config endpoint from settings.
	ConfigURL string
	// WorkerID overrides the generated worker identifier.
	WorkerID string
	// Interval enables poll mode: a fresh check runs on every tick.
	Interval time.Duration
}

// Run executes the update check and is the public entry point for the CLI.
// It guards against parallel runs with a marker file, performs a single
// check, or keeps polling when an interval is set.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "chcp-updater")

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line argument overrides the configured endpoint.
	configURL := settings.ConfigURL
	if opts.ConfigURL != "" {
		configURL = opts.ConfigURL
	}

	if IsUpdaterRunningNow(ctx) {
		return errUpdaterAlreadyRunning
	}

	if err = createMarker(); err != nil {
		return fmt.Errorf("create update marker: %w", err)
	}

	defer func() {
		if removeErr := removeMarker(); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove update marker", "error", removeErr)
		}
	}()

	if opts.Interval > 0 {
		return poll(ctx, settings, configURL, opts)
	}

	outcome, err := check(ctx, settings, configURL, opts.WorkerID)
	if err != nil {
		return err
	}

	reportOutcome(outcome)

	if outcome.Kind == OutcomeError {
		return fmt.Errorf("update check failed: %s", outcome.Error)
	}

	return nil
}

// poll runs a fresh update check on every tick until the context is canceled.
// Each tick produces its own worker and outcome; a failed check does not
// stop the loop.
func poll(ctx context.Context, settings *config.Config, configURL string, opts *Options) error {
	logger.InfoKV(ctx, "Polling for content updates",
		"config_url", configURL, "interval", opts.Interval.String())

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if err := touchMarker(); err != nil {
				logger.WarnKV(ctx, "Unable to refresh update marker", "error", err)
			}

			outcome, err := check(ctx, settings, configURL, opts.WorkerID)
			if err != nil {
				return err
			}

			reportOutcome(outcome)
		}
	}
}

// check resolves the installed release and runs one acquisition pass over it.
func check(ctx context.Context, settings *config.Config, configURL, workerID string) (Outcome, error) {
	worker, err := NewWorker(WorkerConfig{
		WorkerID:           workerID,
		ConfigURL:          configURL,
		NativeBuildVersion: settings.NativeVersion,
		Layout:             resolveLayout(ctx, settings),
		Fetcher:            network.NewDownloader(network.WithTimeout(settings.Timeout)),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create worker: %w", err)
	}

	return worker.Run(ctx), nil
}

// resolveLayout binds the release layout to whatever release is currently
// installed. A host without installed content yields a layout bound to an
// empty release, and the worker reports the missing installed config.
func resolveLayout(ctx context.Context, settings *config.Config) *layout.Layout {
	repo := prefs.NewFileRepository(filepath.Join(settings.ContentRoot, layout.StateFileName))

	state, err := repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			logger.WarnKV(ctx, "Unable to read installation state", "error", err)
		}

		return layout.New(settings.ContentRoot, "")
	}

	return layout.New(settings.ContentRoot, state.CurrentRelease)
}

// reportOutcome prints the one-line human summary for a finished check.
func reportOutcome(outcome Outcome) {
	switch outcome.Kind {
	case OutcomeReadyToInstall:
		output.PrintSuccess("Release %s is downloaded and ready to install", outcome.Config.ReleaseVersion)
	case OutcomeNothingToUpdate:
		output.PrintInfo("Nothing to update, release %s is current", outcome.Config.ReleaseVersion)
	case OutcomeError:
		output.PrintError("Update check failed: %s", outcome.Error)
	}
}
