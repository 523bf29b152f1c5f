package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/logger"
	"github.com/silentcmz/careate-hot-code-push/internal/output"
	"github.com/silentcmz/careate-hot-code-push/internal/repository/document"
)

var (
	errContentDirRequired    = errors.New("content directory is required")
	errNotADirectory         = errors.New("content path is not a directory")
	errNoContentFiles        = errors.New("content directory has no files")
	errInvalidReleaseVersion = errors.New("release version cannot name a folder")
	errUnknownUpdatePolicy   = errors.New("unknown update policy")
)

// releaseTokenFormat generates release tokens from the packaging time.
const releaseTokenFormat = "2006.01.02-15.04.05"

// maxFingerprintWorkers caps the fingerprint pool size.
const maxFingerprintWorkers = 8

// Options contains inputs for the packager entry point.
type Options struct {
	// ContentDir is the directory holding the web content to package.
	ContentDir string
	// ContentURL is the base URL the release will be uploaded to.
	ContentURL string
	// ReleaseVersion overrides the generated release token.
	ReleaseVersion string
	// MinimumNativeVersion is the lowest host build the release supports.
	MinimumNativeVersion int
	// UpdatePolicy is the advisory installation timing hint (start, resume, now).
	UpdatePolicy string
}

// packager assembles the release documents for a content directory.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type packager struct {
	opts      *Options
	version   string
	policy    release.UpdatePolicy
	manifest  *release.ContentManifest
	configs   document.ConfigStorage
	manifests document.ManifestStorage
}

// fileJob is one content file queued for fingerprinting.
type fileJob struct {
	relPath string
	absPath string
}

// fingerprintResult is the outcome of fingerprinting one file.
type fingerprintResult struct {
	file release.ManifestFile
	err  error
}

// Run executes the packaging workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "chcp-packager")

	p, err := newPackager(opts)
	if err != nil {
		return err
	}

	if err = p.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	return nil
}

// newPackager validates the inputs and resolves the release token.
func newPackager(opts *Options) (*packager, error) {
	if opts.ContentDir == "" {
		return nil, errContentDirRequired
	}

	info, err := os.Stat(opts.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("stat content directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errNotADirectory, opts.ContentDir)
	}

	version := opts.ReleaseVersion
	if version == "" {
		version = time.Now().Format(releaseTokenFormat)
	}

	if !release.ValidReleaseVersion(version) {
		return nil, fmt.Errorf("%w: %q", errInvalidReleaseVersion, version)
	}

	policy, err := parsePolicy(opts.UpdatePolicy)
	if err != nil {
		return nil, err
	}

	return &packager{
		opts:      opts,
		version:   version,
		policy:    policy,
		configs:   document.NewFileConfigStorage(),
		manifests: document.NewFileManifestStorage(),
	}, nil
}

// parsePolicy validates the advisory installation policy value.
func parsePolicy(value string) (release.UpdatePolicy, error) {
	switch policy := release.UpdatePolicy(value); policy {
	case "", release.PolicyOnStart, release.PolicyOnResume, release.PolicyNow:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %s", errUnknownUpdatePolicy, value)
	}
}

// Run fingerprints the content, writes the release documents, and prints
// what to do next.
func (p *packager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Packaging content", "dir", p.opts.ContentDir, "release", p.version)

	if err := p.buildManifest(); err != nil {
		return err
	}

	if err := p.saveDocuments(ctx); err != nil {
		return err
	}

	p.printSummary(ctx)

	return nil
}

// buildManifest walks the content directory and fingerprints every file
// through a bounded worker pool.
func (p *packager) buildManifest() error {
	jobs, err := p.collectFiles()
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		return errNoContentFiles
	}

	workers := runtime.NumCPU()
	if workers > maxFingerprintWorkers {
		workers = maxFingerprintWorkers
	}

	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan fileJob, len(jobs))
	resultCh := make(chan fingerprintResult, len(jobs))

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			fingerprintWorker(jobCh, resultCh)
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}

	close(jobCh)
	wg.Wait()
	close(resultCh)

	files := make([]release.ManifestFile, 0, len(jobs))

	for result := range resultCh {
		if result.err != nil {
			return fmt.Errorf("fingerprint content: %w", result.err)
		}

		files = append(files, result.file)
	}

	p.manifest, err = release.NewContentManifest(files)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}

	return nil
}

// collectFiles lists the regular files to package. Hidden entries and the
// release documents themselves are not content.
func (p *packager) collectFiles() ([]fileJob, error) {
	var jobs []fileJob

	err := filepath.WalkDir(p.opts.ContentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(p.opts.ContentDir, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if rel == layout.ConfigFileName || rel == layout.ManifestFileName {
			return nil
		}

		jobs = append(jobs, fileJob{relPath: rel, absPath: path})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content directory: %w", err)
	}

	return jobs, nil
}

// fingerprintWorker drains the job queue until it is closed.
func fingerprintWorker(jobs <-chan fileJob, results chan<- fingerprintResult) {
	for job := range jobs {
		hash, err := release.FileFingerprint(job.absPath)
		results <- fingerprintResult{
			file: release.ManifestFile{Path: job.relPath, Hash: hash},
			err:  err,
		}
	}
}

// saveDocuments writes the manifest first and the config last, directly into
// the content directory.
func (p *packager) saveDocuments(ctx context.Context) error {
	if err := p.manifests.Store(ctx, p.manifest, p.opts.ContentDir); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	cfg := &release.ApplicationConfig{
		ReleaseVersion:       p.version,
		ContentURL:           p.opts.ContentURL,
		MinimumNativeVersion: p.opts.MinimumNativeVersion,
		UpdatePolicy:         p.policy,
	}

	if err := p.configs.Store(ctx, cfg, p.opts.ContentDir); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	return nil
}

// printSummary tells the operator what was produced and what to do next.
func (p *packager) printSummary(ctx context.Context) {
	output.PrintSuccess("Packaged release %s (%d files)", p.version, p.manifest.Len())
	output.PrintInfo("Upload the contents of %s to your update server", p.opts.ContentDir)

	if p.opts.ContentURL != "" {
		output.PrintInfo("Hosts should fetch %s/%s", strings.TrimRight(p.opts.ContentURL, "/"), layout.ConfigFileName)
	} else {
		output.PrintWarning("No content URL set: hosts will not know where to download files from")
	}

	logger.InfoKV(ctx, "Packager completed", "release", p.version, "files", p.manifest.Len())
}
