package updater

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/fsutil"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/logger"
	"github.com/silentcmz/careate-hot-code-push/internal/network"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/document"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/prefs"
)

var (
	errConfigURLRequired = errors.New("config URL is required")
	errLayoutRequired    = errors.New("release layout is required")
	errContentURLMissing = errors.New("application config has no content URL")
)

// Fetcher retrieves release documents and content files from the update server.
type Fetcher interface {
	FetchApplicationConfig(ctx context.Context, url string) (*release.ApplicationConfig, error)
	FetchContentManifest(ctx context.Context, baseURL string) (*release.ContentManifest, error)
	FetchFiles(ctx context.Context, destFolder, baseURL string, files []release.ManifestFile) error
}

// FileSystem isolates the folder mutations a worker performs while staging.
type FileSystem interface {
	Delete(path string) error
	EnsureDirectoryExists(path string) error
}

// WorkerConfig carries the inputs and collaborators of a single worker.
// Nil collaborators are replaced with the file- and HTTP-backed defaults.
type WorkerConfig struct {
	// WorkerID tags outcomes; defaults to the run start time in milliseconds.
	WorkerID string
	// ConfigURL is the endpoint serving the remote application config.
	ConfigURL string
	// NativeBuildVersion is the host build number checked against the
	// minimum the release requires.
	NativeBuildVersion int
	// Layout resolves release folders; bound to the installed release.
	Layout *layout.Layout
	// Fetcher downloads remote documents and content files.
	Fetcher Fetcher
	// FileSystem prepares and discards staging folders.
	FileSystem FileSystem
	// Configs loads and stores application config documents.
	Configs document.ConfigStorage
	// Manifests loads and stores content manifest documents.
	Manifests document.ManifestStorage
	// Prefs records which release is staged and ready to install.
	Prefs prefs.Repository
	// Sink receives the single outcome of the run.
	Sink Sink
}

// Worker executes one update acquisition pass: check the remote release,
// download what changed into a staging folder, report one outcome.
type Worker struct {
	id            string
	configURL     string
	nativeVersion int
	layout        *layout.Layout
	fetcher       Fetcher
	fs            FileSystem
	configs       document.ConfigStorage
	manifests     document.ManifestStorage
	prefs         prefs.Repository
	sink          Sink
}

// NewWorker validates the configuration and fills in default collaborators.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.ConfigURL == "" {
		return nil, errConfigURLRequired
	}

	if cfg.Layout == nil {
		return nil, errLayoutRequired
	}

	if cfg.WorkerID == "" {
		cfg.WorkerID = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	if cfg.Fetcher == nil {
		cfg.Fetcher = network.NewDownloader()
	}

	if cfg.FileSystem == nil {
		cfg.FileSystem = fsutil.OS{}
	}

	if cfg.Configs == nil {
		cfg.Configs = document.NewFileConfigStorage()
	}

	if cfg.Manifests == nil {
		cfg.Manifests = document.NewFileManifestStorage()
	}

	if cfg.Prefs == nil {
		cfg.Prefs = prefs.NewFileRepository(cfg.Layout.StatePath())
	}

	if cfg.Sink == nil {
		cfg.Sink = noopSink{}
	}

	// The worker owns its layout copy: switching it to the new release
	// must not leak to the caller.
	ownLayout := *cfg.Layout

	return &Worker{
		id:            cfg.WorkerID,
		configURL:     cfg.ConfigURL,
		nativeVersion: cfg.NativeBuildVersion,
		layout:        &ownLayout,
		fetcher:       cfg.Fetcher,
		fs:            cfg.FileSystem,
		configs:       cfg.Configs,
		manifests:     cfg.Manifests,
		prefs:         cfg.Prefs,
		sink:          cfg.Sink,
	}, nil
}

// ID returns the identifier stamped on this worker's outcomes.
func (w *Worker) ID() string {
	return w.id
}

// Run executes one acquisition pass. It never returns an error: every failure
// is folded into the outcome, and exactly one outcome is dispatched to the
// sink before returning.
func (w *Worker) Run(ctx context.Context) Outcome {
	ctx = logger.WithKV(ctx, "worker_id", w.id)

	logger.Info(ctx, "Checking for content updates")

	outcome := w.run(ctx)
	w.sink.Dispatch(ctx, outcome)

	return outcome
}

// run walks the acquisition states in order:
// load installed documents, fetch the remote config, gate on release token
// and native version, fetch the remote manifest, diff, then either refresh
// the installed documents or stage the new release.
func (w *Worker) run(ctx context.Context) Outcome {
	// Installed paths are resolved once; switching the layout to the new
	// release later does not move them.
	installed := w.layout.ResolveInstalledPaths()

	installedConfig, err := w.configs.Load(ctx, installed.Folder)
	if err != nil {
		return w.failure(ctx, ErrorLocalConfigNotFound, nil, err)
	}

	installedManifest, err := w.manifests.Load(ctx, installed.Folder)
	if err != nil {
		return w.failure(ctx, ErrorLocalManifestNotFound, nil, err)
	}

	remoteConfig, err := w.fetcher.FetchApplicationConfig(ctx, w.configURL)
	if err != nil {
		return w.failure(ctx, ErrorFailedToDownloadApplicationConfig, nil, err)
	}

	// Release tokens are opaque: equality is the only comparison.
	if remoteConfig.ReleaseVersion == installedConfig.ReleaseVersion {
		logger.InfoKV(ctx, "Installed release is current", "release", remoteConfig.ReleaseVersion)
		return w.nothingToUpdate(remoteConfig)
	}

	// The compatibility gate runs before any content is requested.
	// A zero minimum means the release does not constrain the host.
	if remoteConfig.MinimumNativeVersion != 0 && remoteConfig.MinimumNativeVersion > w.nativeVersion {
		return w.failure(ctx, ErrorNativeVersionTooLow, remoteConfig,
			fmt.Errorf("release requires native build %d, host build is %d",
				remoteConfig.MinimumNativeVersion, w.nativeVersion))
	}

	if remoteConfig.ContentURL == "" {
		return w.failure(ctx, ErrorFailedToDownloadContentManifest, remoteConfig, errContentURLMissing)
	}

	remoteManifest, err := w.fetcher.FetchContentManifest(ctx, remoteConfig.ContentURL)
	if err != nil {
		return w.failure(ctx, ErrorFailedToDownloadContentManifest, remoteConfig, err)
	}

	// Diffed by value even when the documents look identical.
	diff := release.Diff(installedManifest, remoteManifest)
	if diff.IsEmpty() {
		logger.InfoKV(ctx, "Content is unchanged, refreshing installed documents",
			"release", remoteConfig.ReleaseVersion)
		w.refreshInstalledDocuments(ctx, installed, remoteConfig, remoteManifest)

		return w.nothingToUpdate(remoteConfig)
	}

	return w.stageRelease(ctx, remoteConfig, remoteManifest, diff)
}

// refreshInstalledDocuments rewrites the installed document pair after an
// empty diff, so metadata-only changes (minimum native version, update
// policy) land without a download. The manifest goes first; when it cannot
// be written the config write is skipped and the pair stays consistent.
// Failures do not change the outcome.
func (w *Worker) refreshInstalledDocuments(
	ctx context.Context,
	installed layout.InstalledPaths,
	cfg *release.ApplicationConfig,
	manifest *release.ContentManifest,
) {
	if err := w.manifests.Store(ctx, manifest, installed.Folder); err != nil {
		logger.WarnKV(ctx, "Unable to refresh installed manifest", "error", err)
		return
	}

	if err := w.configs.Store(ctx, cfg, installed.Folder); err != nil {
		logger.WarnKV(ctx, "Unable to refresh installed config", "error", err)
	}
}

// stageRelease downloads the changed files of the new release into its
// staging folder. The release documents are committed last, after every
// content file landed.
func (w *Worker) stageRelease(
	ctx context.Context,
	cfg *release.ApplicationConfig,
	manifest *release.ContentManifest,
	diff *release.ManifestDiff,
) Outcome {
	w.layout.SwitchToRelease(cfg.ReleaseVersion)

	logger.InfoKV(ctx, "Staging release",
		"release", cfg.ReleaseVersion,
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"removed", len(diff.Removed))

	downloadFolder := w.layout.DownloadFolder()

	if err := w.recreateFolder(downloadFolder); err != nil {
		return w.stagingFailure(ctx, cfg, fmt.Errorf("prepare download folder: %w", err))
	}

	if err := w.fetcher.FetchFiles(ctx, downloadFolder, cfg.ContentURL, diff.UpdateFiles()); err != nil {
		return w.stagingFailure(ctx, cfg, err)
	}

	if err := w.manifests.Store(ctx, manifest, downloadFolder); err != nil {
		return w.stagingFailure(ctx, cfg, fmt.Errorf("store staged manifest: %w", err))
	}

	if err := w.configs.Store(ctx, cfg, downloadFolder); err != nil {
		return w.stagingFailure(ctx, cfg, fmt.Errorf("store staged config: %w", err))
	}

	w.markReadyForInstallation(ctx, cfg.ReleaseVersion)

	logger.InfoKV(ctx, "Release is staged and ready to install", "release", cfg.ReleaseVersion)

	return w.readyToInstall(cfg)
}

// recreateFolder guarantees an existing empty staging folder.
func (w *Worker) recreateFolder(path string) error {
	if err := w.fs.Delete(path); err != nil {
		return err
	}

	return w.fs.EnsureDirectoryExists(path)
}

// stagingFailure discards everything staged for the new release and reports
// the failure. Partially downloaded content is never left behind.
func (w *Worker) stagingFailure(ctx context.Context, cfg *release.ApplicationConfig, err error) Outcome {
	contentFolder := w.layout.ContentFolder()
	if cleanupErr := w.fs.Delete(contentFolder); cleanupErr != nil {
		logger.WarnKV(ctx, "Unable to discard staged release",
			"path", contentFolder, "error", cleanupErr)
	}

	return w.failure(ctx, ErrorFailedToDownloadUpdateFiles, cfg, err)
}

// markReadyForInstallation records the staged release in the installation
// state. The staged content is valid even when the pointer cannot be saved,
// so failures are only logged.
func (w *Worker) markReadyForInstallation(ctx context.Context, version string) {
	state, err := w.prefs.Load(ctx)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			logger.WarnKV(ctx, "Unable to load installation state", "error", err)
			return
		}

		state = &prefs.Preferences{}
	}

	state.ReadyRelease = version

	if err = w.prefs.Save(ctx, state); err != nil {
		logger.WarnKV(ctx, "Unable to record staged release", "release", version, "error", err)
	}
}

// failure logs the terminal failure and wraps it into an error outcome.
func (w *Worker) failure(ctx context.Context, kind ErrorKind, cfg *release.ApplicationConfig, err error) Outcome {
	logger.ErrorKV(ctx, "Update check failed", "error_kind", string(kind), "error", err)

	return Outcome{
		WorkerID: w.id,
		Kind:     OutcomeError,
		Error:    kind,
		Config:   cfg,
		Err:      err,
	}
}

func (w *Worker) nothingToUpdate(cfg *release.ApplicationConfig) Outcome {
	return Outcome{
		WorkerID: w.id,
		Kind:     OutcomeNothingToUpdate,
		Config:   cfg,
	}
}

func (w *Worker) readyToInstall(cfg *release.ApplicationConfig) Outcome {
	return Outcome{
		WorkerID: w.id,
		Kind:     OutcomeReadyToInstall,
		Config:   cfg,
	}
}

// noopSink is the default sink for hosts that only consume the returned outcome.
type noopSink struct{}

func (noopSink) Dispatch(context.Context, Outcome) {}
