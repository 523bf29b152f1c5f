package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/fsutil"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/logger"
	"github.com/silentcmz/careate-hot-code-push/internal/output"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/document"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/prefs"
)

var (
	errNothingToInstall  = errors.New("no release is ready for installation")
	errUpdateIsCorrupted = errors.New("staged release is corrupted")
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// runner holds the state of a single installation.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	layout    *layout.Layout
	prefs     prefs.Repository
	configs   document.ConfigStorage
	manifests document.ManifestStorage

	state *prefs.Preferences
	// installedManifest describes the currently installed content.
	// Nil when no release is installed yet (bootstrap install).
	installedManifest *release.ContentManifest
	// installedFolder is the www folder of the current release, "" on bootstrap.
	installedFolder string
	stagedConfig    *release.ApplicationConfig
	stagedManifest  *release.ContentManifest
	diff            *release.ManifestDiff
}

// Run promotes the release recorded as ready for installation to the
// installed content and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "chcp-installer")

	r, err := newRunner(ctx, opts)
	if err != nil {
		if errors.Is(err, errNothingToInstall) {
			logger.Info(ctx, "No release is ready for installation")
			output.PrintInfo("Nothing to install")

			return nil
		}

		return err
	}

	if err = r.install(ctx); err != nil {
		logger.ErrorKV(ctx, "Installation failed", "error", err)
		return err
	}

	output.PrintSuccess("Release %s is installed", r.stagedConfig.ReleaseVersion)

	return nil
}

// newRunner loads settings and state, binds the layout to the staged
// release, and reads the staged documents.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	r := &runner{
		prefs:     prefs.NewFileRepository(filepath.Join(settings.ContentRoot, layout.StateFileName)),
		configs:   document.NewFileConfigStorage(),
		manifests: document.NewFileManifestStorage(),
	}

	r.state, err = r.prefs.Load(ctx)
	if err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			return nil, errNothingToInstall
		}

		return nil, fmt.Errorf("load installation state: %w", err)
	}

	if r.state.ReadyRelease == "" {
		return nil, errNothingToInstall
	}

	r.layout = layout.New(settings.ContentRoot, r.state.ReadyRelease)

	if err = r.loadDocuments(ctx, settings.ContentRoot); err != nil {
		return nil, err
	}

	// Changes are computed against the installed content, so only the
	// staged delta is validated and applied.
	r.diff = release.Diff(r.installedManifest, r.stagedManifest)

	return r, nil
}

// loadDocuments reads the staged document pair and, unless this is a
// bootstrap install, the manifest of the currently installed release.
func (r *runner) loadDocuments(ctx context.Context, contentRoot string) error {
	downloadFolder := r.layout.DownloadFolder()

	var err error

	r.stagedConfig, err = r.configs.Load(ctx, downloadFolder)
	if err != nil {
		return fmt.Errorf("%w: staged config: %v", errUpdateIsCorrupted, err)
	}

	r.stagedManifest, err = r.manifests.Load(ctx, downloadFolder)
	if err != nil {
		return fmt.Errorf("%w: staged manifest: %v", errUpdateIsCorrupted, err)
	}

	if r.state.CurrentRelease == "" {
		return nil
	}

	r.installedFolder = layout.New(contentRoot, r.state.CurrentRelease).InstalledFolder()

	r.installedManifest, err = r.manifests.Load(ctx, r.installedFolder)
	if err != nil {
		return fmt.Errorf("load installed manifest: %w", err)
	}

	return nil
}

// install validates the staged content, assembles the new installed folder,
// and activates it. Failures before activation leave the installed release
// untouched.
func (r *runner) install(ctx context.Context) error {
	logger.InfoKV(ctx, "Installing release",
		"release", r.stagedConfig.ReleaseVersion,
		"added", len(r.diff.Added),
		"updated", len(r.diff.Updated),
		"removed", len(r.diff.Removed))

	if err := r.validateStagedFiles(ctx); err != nil {
		r.discardStagedRelease(ctx)
		return err
	}

	if err := r.buildRelease(ctx); err != nil {
		r.removePartialBuild(ctx)
		return fmt.Errorf("assemble release: %w", err)
	}

	if err := r.activate(ctx); err != nil {
		r.removePartialBuild(ctx)
		return fmt.Errorf("activate release: %w", err)
	}

	r.prune(ctx)

	return nil
}

// validateStagedFiles checks every downloaded file against its manifest
// fingerprint before anything is modified. A single mismatch rejects the
// whole release.
func (r *runner) validateStagedFiles(ctx context.Context) error {
	downloadFolder := r.layout.DownloadFolder()

	for _, file := range r.diff.UpdateFiles() {
		if err := fsutil.ValidateRelativePath(file.Path); err != nil {
			return fmt.Errorf("%w: %s: %v", errUpdateIsCorrupted, file.Path, err)
		}

		fingerprint, err := release.FileFingerprint(filepath.Join(downloadFolder, filepath.FromSlash(file.Path)))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", errUpdateIsCorrupted, file.Path, err)
		}

		if fingerprint != file.Hash {
			return fmt.Errorf("%w: %s: fingerprint mismatch", errUpdateIsCorrupted, file.Path)
		}
	}

	logger.DebugKV(ctx, "Staged files validated", "files", len(r.diff.UpdateFiles()))

	return nil
}

// buildRelease assembles the new installed folder inside the release's temp
// folder: current content first, staged changes applied over it, removed
// files dropped, documents written last.
func (r *runner) buildRelease(ctx context.Context) error {
	tempFolder := r.layout.TempFolder()

	if err := fsutil.RecreateFolder(tempFolder); err != nil {
		return fmt.Errorf("prepare temp folder: %w", err)
	}

	if r.installedFolder != "" {
		if err := fsutil.CopyDirectory(r.installedFolder, tempFolder); err != nil {
			return fmt.Errorf("copy installed content: %w", err)
		}
	}

	for _, file := range r.diff.UpdateFiles() {
		if err := r.applyStagedFile(ctx, file, tempFolder); err != nil {
			return fmt.Errorf("apply %s: %w", file.Path, err)
		}
	}

	for _, file := range r.diff.Removed {
		if err := fsutil.Delete(filepath.Join(tempFolder, filepath.FromSlash(file.Path))); err != nil {
			return fmt.Errorf("remove %s: %w", file.Path, err)
		}
	}

	if err := r.manifests.Store(ctx, r.stagedManifest, tempFolder); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	if err := r.configs.Store(ctx, r.stagedConfig, tempFolder); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	return nil
}

// applyStagedFile writes one staged file into the assembled folder with its
// fingerprint verified again at apply time.
func (r *runner) applyStagedFile(ctx context.Context, file release.ManifestFile, destFolder string) error {
	sourcePath := filepath.Join(r.layout.DownloadFolder(), filepath.FromSlash(file.Path))

	data, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return err
	}

	checksum, err := release.DecodeFingerprint(file.Hash)
	if err != nil {
		return err
	}

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}

	targetPath := filepath.Join(destFolder, filepath.FromSlash(file.Path))
	if err = fsutil.EnsureDirectoryExists(filepath.Dir(targetPath)); err != nil {
		return err
	}

	// The apply library expects an existing target.
	if _, err = os.Stat(targetPath); err != nil && os.IsNotExist(err) {
		var created *os.File

		if created, err = os.Create(filepath.Clean(targetPath)); err != nil {
			return err
		}

		if err = created.Close(); err != nil {
			return err
		}
	}

	logger.DebugKV(ctx, "Applying staged file", "file", file.Path)

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: sourceInfo.Mode(),
		Checksum:   checksum,
		Hash:       release.FingerprintHash,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return err
	}

	oldPath := targetPath + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}

// activate swaps the assembled folder in as the release's installed content
// and moves the installation pointers forward.
func (r *runner) activate(ctx context.Context) error {
	installedFolder := r.layout.InstalledFolder()

	if err := fsutil.Delete(installedFolder); err != nil {
		return fmt.Errorf("clear previous attempt: %w", err)
	}

	if err := os.Rename(r.layout.TempFolder(), installedFolder); err != nil {
		return fmt.Errorf("promote assembled content: %w", err)
	}

	next := r.state.Clone()
	next.PreviousRelease = next.CurrentRelease
	next.CurrentRelease = r.stagedConfig.ReleaseVersion
	next.ReadyRelease = ""

	// The pointer swap happens before the staged download is dropped, so a
	// failure here still leaves a complete staging folder for a retry.
	if err := r.prefs.Save(ctx, next); err != nil {
		return fmt.Errorf("update installation state: %w", err)
	}

	r.state = next

	if err := fsutil.Delete(r.layout.DownloadFolder()); err != nil {
		logger.WarnKV(ctx, "Unable to remove download folder", "error", err)
	}

	logger.InfoKV(ctx, "Release activated",
		"current", next.CurrentRelease, "previous", next.PreviousRelease)

	return nil
}

// prune removes release folders other than the current and previous ones.
// Failures here never fail the installation.
func (r *runner) prune(ctx context.Context) {
	entries, err := os.ReadDir(r.layout.Root())
	if err != nil {
		logger.WarnKV(ctx, "Unable to list content root", "error", err)
		return
	}

	keep := map[string]struct{}{
		r.state.CurrentRelease:  {},
		r.state.PreviousRelease: {},
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if _, found := keep[entry.Name()]; found {
			continue
		}

		stale := filepath.Join(r.layout.Root(), entry.Name())
		if err = fsutil.Delete(stale); err != nil {
			logger.WarnKV(ctx, "Unable to prune release folder", "path", stale, "error", err)
			continue
		}

		logger.InfoKV(ctx, "Pruned old release", "release", entry.Name())
	}
}

// discardStagedRelease drops a corrupted staged release and clears the
// ready pointer so the updater can stage it afresh.
func (r *runner) discardStagedRelease(ctx context.Context) {
	if err := fsutil.Delete(r.layout.DownloadFolder()); err != nil {
		logger.WarnKV(ctx, "Unable to discard staged release", "error", err)
	}

	next := r.state.Clone()
	next.ReadyRelease = ""

	if err := r.prefs.Save(ctx, next); err != nil {
		logger.WarnKV(ctx, "Unable to clear ready release", "error", err)
		return
	}

	r.state = next
}

// removePartialBuild deletes the folders a failed assembly may have left.
// The staged download and the ready pointer are kept for a retry.
func (r *runner) removePartialBuild(ctx context.Context) {
	if err := fsutil.Delete(r.layout.TempFolder()); err != nil {
		logger.WarnKV(ctx, "Unable to remove temp folder", "error", err)
	}

	// Only an inactive release folder is removed here: activation either
	// failed before the prefs swap or did not happen at all.
	if r.state.CurrentRelease != r.stagedConfig.ReleaseVersion {
		if err := fsutil.Delete(r.layout.InstalledFolder()); err != nil {
			logger.WarnKV(ctx, "Unable to remove partial installed folder", "error", err)
		}
	}
}
