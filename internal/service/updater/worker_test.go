package updater

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/document"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/prefs"
)

const (
	testRoot      = "/content"
	testConfigURL = "http://server/chcp.json"
	testWorkerID  = "worker-1"
)

// fakeFetcher serves canned remote documents and records what was requested.
type fakeFetcher struct {
	config      *release.ApplicationConfig
	configErr   error
	manifest    *release.ContentManifest
	manifestErr error
	filesErr    error

	manifestCalls int
	filesCalls    int
	lastDest      string
	lastBase      string
	lastFiles     []release.ManifestFile
}

func (f *fakeFetcher) FetchApplicationConfig(_ context.Context, _ string) (*release.ApplicationConfig, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}

	return f.config, nil
}

func (f *fakeFetcher) FetchContentManifest(_ context.Context, _ string) (*release.ContentManifest, error) {
	f.manifestCalls++

	if f.manifestErr != nil {
		return nil, f.manifestErr
	}

	return f.manifest, nil
}

func (f *fakeFetcher) FetchFiles(_ context.Context, destFolder, baseURL string, files []release.ManifestFile) error {
	f.filesCalls++
	f.lastDest = destFolder
	f.lastBase = baseURL
	f.lastFiles = files

	return f.filesErr
}

// fakeFS records folder mutations without touching the disk.
type fakeFS struct {
	deleted   []string
	created   []string
	deleteErr error
	ensureErr error
}

func (f *fakeFS) Delete(path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, path)

	return nil
}

func (f *fakeFS) EnsureDirectoryExists(path string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}

	f.created = append(f.created, path)

	return nil
}

// fakeConfigs keeps application config documents per folder in memory.
type fakeConfigs struct {
	docs     map[string]*release.ApplicationConfig
	storeErr error
}

func (f *fakeConfigs) Load(_ context.Context, folder string) (*release.ApplicationConfig, error) {
	cfg, ok := f.docs[folder]
	if !ok {
		return nil, document.ErrNotFound
	}

	return cfg, nil
}

func (f *fakeConfigs) Store(_ context.Context, cfg *release.ApplicationConfig, folder string) error {
	if f.storeErr != nil {
		return f.storeErr
	}

	f.docs[folder] = cfg

	return nil
}

// fakeManifests keeps content manifest documents per folder in memory.
type fakeManifests struct {
	docs     map[string]*release.ContentManifest
	storeErr error
}

func (f *fakeManifests) Load(_ context.Context, folder string) (*release.ContentManifest, error) {
	manifest, ok := f.docs[folder]
	if !ok {
		return nil, document.ErrNotFound
	}

	return manifest, nil
}

func (f *fakeManifests) Store(_ context.Context, manifest *release.ContentManifest, folder string) error {
	if f.storeErr != nil {
		return f.storeErr
	}

	f.docs[folder] = manifest

	return nil
}

// fakePrefs keeps the installation pointers in memory.
type fakePrefs struct {
	state   *prefs.Preferences
	saveErr error
}

func (f *fakePrefs) Load(_ context.Context) (*prefs.Preferences, error) {
	if f.state == nil {
		return nil, prefs.ErrNotFound
	}

	return f.state.Clone(), nil
}

func (f *fakePrefs) Save(_ context.Context, state *prefs.Preferences) error {
	if f.saveErr != nil {
		return f.saveErr
	}

	f.state = state.Clone()

	return nil
}

// fakeSink collects dispatched outcomes.
type fakeSink struct {
	outcomes []Outcome
}

func (s *fakeSink) Dispatch(_ context.Context, outcome Outcome) {
	s.outcomes = append(s.outcomes, outcome)
}

// fixture wires a worker over in-memory collaborators with release r1
// installed and release r2 published remotely.
type fixture struct {
	layout    *layout.Layout
	fetcher   *fakeFetcher
	fs        *fakeFS
	configs   *fakeConfigs
	manifests *fakeManifests
	prefs     *fakePrefs
	sink      *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	installedLayout := layout.New(testRoot, "r1")
	installedFolder := installedLayout.InstalledFolder()

	installedConfig := &release.ApplicationConfig{
		ReleaseVersion: "r1",
		ContentURL:     "http://server/releases/r1",
	}
	installedManifest := manifestOf(t, map[string]string{
		"index.html": "h-index-1",
		"app.js":     "h-app-1",
		"old.css":    "h-old-1",
	})

	return &fixture{
		layout: installedLayout,
		fetcher: &fakeFetcher{
			config: &release.ApplicationConfig{
				ReleaseVersion: "r2",
				ContentURL:     "http://server/releases/r2",
			},
			manifest: manifestOf(t, map[string]string{
				"index.html": "h-index-1",
				"app.js":     "h-app-2",
				"style.css":  "h-style-1",
			}),
		},
		fs: &fakeFS{},
		configs: &fakeConfigs{
			docs: map[string]*release.ApplicationConfig{installedFolder: installedConfig},
		},
		manifests: &fakeManifests{
			docs: map[string]*release.ContentManifest{installedFolder: installedManifest},
		},
		prefs: &fakePrefs{},
		sink:  &fakeSink{},
	}
}

func (f *fixture) worker(t *testing.T) *Worker {
	t.Helper()

	worker, err := NewWorker(WorkerConfig{
		WorkerID:           testWorkerID,
		ConfigURL:          testConfigURL,
		NativeBuildVersion: 5,
		Layout:             f.layout,
		Fetcher:            f.fetcher,
		FileSystem:         f.fs,
		Configs:            f.configs,
		Manifests:          f.manifests,
		Prefs:              f.prefs,
		Sink:               f.sink,
	})
	require.NoError(t, err)

	return worker
}

func manifestOf(t *testing.T, entries map[string]string) *release.ContentManifest {
	t.Helper()

	files := make([]release.ManifestFile, 0, len(entries))
	for path, hash := range entries {
		files = append(files, release.ManifestFile{Path: path, Hash: hash})
	}

	manifest, err := release.NewContentManifest(files)
	require.NoError(t, err)

	return manifest
}

// TestNewWorker_Validation covers required configuration fields and defaults.
func TestNewWorker_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewWorker(WorkerConfig{Layout: layout.New(testRoot, "r1")})
	require.ErrorIs(t, err, errConfigURLRequired)

	_, err = NewWorker(WorkerConfig{ConfigURL: testConfigURL})
	require.ErrorIs(t, err, errLayoutRequired)

	worker, err := NewWorker(WorkerConfig{
		ConfigURL: testConfigURL,
		Layout:    layout.New(testRoot, "r1"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, worker.ID())
}

// TestWorker_Run_ReadyToInstall walks the full staging path for a new release.
func TestWorker_Run_ReadyToInstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeReadyToInstall, outcome.Kind)
	require.Equal(t, testWorkerID, outcome.WorkerID)
	require.Equal(t, f.fetcher.config, outcome.Config)
	require.NoError(t, outcome.Err)

	staged := layout.New(testRoot, "r2")
	downloadFolder := staged.DownloadFolder()

	// The staging folder was recreated before downloading into it.
	require.Contains(t, f.fs.deleted, downloadFolder)
	require.Contains(t, f.fs.created, downloadFolder)

	// Only changed files were requested, from the new release's content URL.
	require.Equal(t, 1, f.fetcher.filesCalls)
	require.Equal(t, downloadFolder, f.fetcher.lastDest)
	require.Equal(t, "http://server/releases/r2", f.fetcher.lastBase)
	require.Equal(t, []release.ManifestFile{
		{Path: "app.js", Hash: "h-app-2"},
		{Path: "style.css", Hash: "h-style-1"},
	}, f.fetcher.lastFiles)

	// The release documents landed in the staging folder.
	require.Equal(t, f.fetcher.manifest, f.manifests.docs[downloadFolder])
	require.Equal(t, f.fetcher.config, f.configs.docs[downloadFolder])

	// The staged release was recorded as ready.
	require.NotNil(t, f.prefs.state)
	require.Equal(t, "r2", f.prefs.state.ReadyRelease)

	// Exactly one outcome reached the sink.
	require.Equal(t, []Outcome{outcome}, f.sink.outcomes)
}

// TestWorker_Run_RemovalOnlyRelease stages a release that only removes files:
// nothing is downloaded, yet documents are committed and the release is ready.
func TestWorker_Run_RemovalOnlyRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.manifest = manifestOf(t, map[string]string{
		"index.html": "h-index-1",
		"app.js":     "h-app-1",
	})

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeReadyToInstall, outcome.Kind)
	require.Equal(t, 1, f.fetcher.filesCalls)
	require.Empty(t, f.fetcher.lastFiles)

	downloadFolder := layout.New(testRoot, "r2").DownloadFolder()
	require.Equal(t, f.fetcher.manifest, f.manifests.docs[downloadFolder])
	require.Equal(t, "r2", f.prefs.state.ReadyRelease)
}

// TestWorker_Run_SameRelease reports nothing to update without fetching content.
func TestWorker_Run_SameRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.config = &release.ApplicationConfig{
		ReleaseVersion: "r1",
		ContentURL:     "http://server/releases/r1",
	}

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeNothingToUpdate, outcome.Kind)
	require.Equal(t, f.fetcher.config, outcome.Config)
	require.Zero(t, f.fetcher.manifestCalls)
	require.Zero(t, f.fetcher.filesCalls)
	require.Empty(t, f.fs.deleted)
	require.Len(t, f.sink.outcomes, 1)
}

// TestWorker_Run_EmptyDiff refreshes the installed documents when the new
// release carries identical content.
func TestWorker_Run_EmptyDiff(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	installedFolder := layout.New(testRoot, "r1").InstalledFolder()
	f.fetcher.manifest = f.manifests.docs[installedFolder]

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeNothingToUpdate, outcome.Kind)
	require.Zero(t, f.fetcher.filesCalls)

	// The new documents replaced the installed pair in place.
	require.Equal(t, f.fetcher.config, f.configs.docs[installedFolder])
	require.Equal(t, f.fetcher.manifest, f.manifests.docs[installedFolder])

	// No release was staged or recorded.
	require.Nil(t, f.prefs.state)
	require.Empty(t, f.fs.deleted)
}

// TestWorker_Run_EmptyDiff_RefreshFailure keeps the outcome and skips the
// config write when the manifest cannot be refreshed.
func TestWorker_Run_EmptyDiff_RefreshFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	installedFolder := layout.New(testRoot, "r1").InstalledFolder()
	installedConfig := f.configs.docs[installedFolder]
	f.fetcher.manifest = f.manifests.docs[installedFolder]
	f.manifests.storeErr = errors.New("disk full")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeNothingToUpdate, outcome.Kind)

	// The installed config was not touched, so the pair stays consistent.
	require.Equal(t, installedConfig, f.configs.docs[installedFolder])
}

// TestWorker_Run_LocalDocumentsMissing classifies absent installed documents.
func TestWorker_Run_LocalDocumentsMissing(t *testing.T) {
	t.Parallel()

	t.Run("config", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.configs.docs = map[string]*release.ApplicationConfig{}

		outcome := f.worker(t).Run(context.Background())

		require.Equal(t, OutcomeError, outcome.Kind)
		require.Equal(t, ErrorLocalConfigNotFound, outcome.Error)
		require.Nil(t, outcome.Config)
		require.ErrorIs(t, outcome.Err, document.ErrNotFound)
	})

	t.Run("manifest", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.manifests.docs = map[string]*release.ContentManifest{}

		outcome := f.worker(t).Run(context.Background())

		require.Equal(t, OutcomeError, outcome.Kind)
		require.Equal(t, ErrorLocalManifestNotFound, outcome.Error)
		require.Nil(t, outcome.Config)
	})
}

// TestWorker_Run_ConfigDownloadFailure classifies a failed remote config fetch.
func TestWorker_Run_ConfigDownloadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.configErr = errors.New("connection refused")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, ErrorFailedToDownloadApplicationConfig, outcome.Error)
	require.Nil(t, outcome.Config)
	require.Len(t, f.sink.outcomes, 1)
}

// TestWorker_Run_NativeVersionTooLow rejects the release before any
// manifest is requested.
func TestWorker_Run_NativeVersionTooLow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.config.MinimumNativeVersion = 9

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, ErrorNativeVersionTooLow, outcome.Error)
	require.Equal(t, f.fetcher.config, outcome.Config)
	require.Zero(t, f.fetcher.manifestCalls)
}

// TestWorker_Run_ZeroMinimumSkipsGate lets a release without a minimum pass
// even on a zero host build.
func TestWorker_Run_ZeroMinimumSkipsGate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	worker, err := NewWorker(WorkerConfig{
		WorkerID:           testWorkerID,
		ConfigURL:          testConfigURL,
		NativeBuildVersion: 0,
		Layout:             f.layout,
		Fetcher:            f.fetcher,
		FileSystem:         f.fs,
		Configs:            f.configs,
		Manifests:          f.manifests,
		Prefs:              f.prefs,
		Sink:               f.sink,
	})
	require.NoError(t, err)

	outcome := worker.Run(context.Background())

	require.Equal(t, OutcomeReadyToInstall, outcome.Kind)
	require.Equal(t, 1, f.fetcher.manifestCalls)
}

// TestWorker_Run_ManifestDownloadFailure classifies manifest fetch failures,
// including a config that advertises no content URL at all.
func TestWorker_Run_ManifestDownloadFailure(t *testing.T) {
	t.Parallel()

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.fetcher.manifestErr = errors.New("bad gateway")

		outcome := f.worker(t).Run(context.Background())

		require.Equal(t, OutcomeError, outcome.Kind)
		require.Equal(t, ErrorFailedToDownloadContentManifest, outcome.Error)
		require.Equal(t, f.fetcher.config, outcome.Config)
	})

	t.Run("empty content url", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.fetcher.config.ContentURL = ""

		outcome := f.worker(t).Run(context.Background())

		require.Equal(t, OutcomeError, outcome.Kind)
		require.Equal(t, ErrorFailedToDownloadContentManifest, outcome.Error)
		require.Equal(t, f.fetcher.config, outcome.Config)
		require.Zero(t, f.fetcher.manifestCalls)
	})
}

// TestWorker_Run_DownloadFailureDiscardsStagedRelease deletes everything
// staged for the new release when the bulk download fails.
func TestWorker_Run_DownloadFailureDiscardsStagedRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.filesErr = errors.New("connection reset")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, ErrorFailedToDownloadUpdateFiles, outcome.Error)
	require.Equal(t, f.fetcher.config, outcome.Config)
	require.Contains(t, f.fs.deleted, layout.New(testRoot, "r2").ContentFolder())
	require.Nil(t, f.prefs.state)
}

// TestWorker_Run_StagingPrepFailure maps a staging folder failure to the
// download error class without requesting any files.
func TestWorker_Run_StagingPrepFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fs.ensureErr = errors.New("permission denied")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, ErrorFailedToDownloadUpdateFiles, outcome.Error)
	require.Zero(t, f.fetcher.filesCalls)
}

// TestWorker_Run_StagedDocumentWriteFailure discards the staged release when
// its documents cannot be committed.
func TestWorker_Run_StagedDocumentWriteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.manifests.storeErr = errors.New("disk full")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, ErrorFailedToDownloadUpdateFiles, outcome.Error)
	require.Contains(t, f.fs.deleted, layout.New(testRoot, "r2").ContentFolder())
	require.Nil(t, f.prefs.state)
}

// TestWorker_Run_StateSaveFailureKeepsOutcome reports ready to install even
// when the installation pointer cannot be written.
func TestWorker_Run_StateSaveFailureKeepsOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.prefs.saveErr = errors.New("read-only file system")

	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeReadyToInstall, outcome.Kind)
}

// TestWorker_Run_KeepsCallerLayout ensures switching to the new release does
// not rebind the layout the worker was constructed with.
func TestWorker_Run_KeepsCallerLayout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.worker(t).Run(context.Background())

	require.Equal(t, OutcomeReadyToInstall, outcome.Kind)
	require.Equal(t, "r1", f.layout.ReleaseVersion())
}
