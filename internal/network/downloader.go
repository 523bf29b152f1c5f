package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/fsutil"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
	"github.com/silentcmz/careate-hot-code-push/internal/logger"
	"github.com/silentcmz/careate-hot-code-push/internal/version"
)

// DefaultWorkerCount bounds concurrent file downloads.
const DefaultWorkerCount = 4

// errBadHTTPStatus is returned when the server answers anything but 200 OK.
var errBadHTTPStatus = errors.New("unexpected http status")

// Option customizes a Downloader.
type Option func(*Downloader)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithWorkerCount bounds the file download pool size.
func WithWorkerCount(workers int) Option {
	return func(d *Downloader) {
		if workers > 0 {
			d.workers = workers
		}
	}
}

// Downloader fetches release documents and content files over HTTP.
// It performs no retries; callers decide whether a run is repeated.
type Downloader struct {
	// client executes all requests; its timeout applies per request.
	client *http.Client
	// workers is the number of concurrent file downloads.
	workers int
}

// NewDownloader creates a downloader with default timeout and pool size.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:  &http.Client{Timeout: config.DefaultTimeout},
		workers: DefaultWorkerCount,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// FetchApplicationConfig downloads and parses the application config document.
func (d *Downloader) FetchApplicationConfig(ctx context.Context, configURL string) (*release.ApplicationConfig, error) {
	data, err := d.fetch(ctx, configURL)
	if err != nil {
		return nil, err
	}

	cfg, err := release.ParseApplicationConfig(data)
	if err != nil {
		return nil, fmt.Errorf("application config from %s: %w", configURL, err)
	}

	return cfg, nil
}

// FetchContentManifest downloads and parses the manifest published under baseURL.
func (d *Downloader) FetchContentManifest(ctx context.Context, baseURL string) (*release.ContentManifest, error) {
	manifestURL, err := JoinURL(baseURL, layout.ManifestFileName)
	if err != nil {
		return nil, err
	}

	data, err := d.fetch(ctx, manifestURL)
	if err != nil {
		return nil, err
	}

	manifest, err := release.ParseContentManifest(data)
	if err != nil {
		return nil, fmt.Errorf("content manifest from %s: %w", manifestURL, err)
	}

	return manifest, nil
}

// FetchFiles downloads every file under baseURL into destFolder, preserving
// relative paths. The call is all-or-nothing: the first failure cancels the
// remaining downloads and the whole call reports an error, after which the
// caller discards destFolder. Partial content is never reported as success.
func (d *Downloader) FetchFiles(ctx context.Context, destFolder, baseURL string, files []release.ManifestFile) error {
	if len(files) == 0 {
		return nil
	}

	// Reject unsafe destinations before creating anything.
	for _, f := range files {
		if err := fsutil.ValidateRelativePath(f.Path); err != nil {
			return fmt.Errorf("manifest entry %q: %w", f.Path, err)
		}
	}

	workers := d.workers
	if workers > len(files) {
		workers = len(files)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan release.ManifestFile, len(files))
	results := make(chan error, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for f := range jobs {
				err := d.downloadFile(ctx, destFolder, baseURL, f)
				if err != nil {
					// Abort the remaining downloads early.
					cancel()
				}

				results <- err
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			return fmt.Errorf("download update files: %w", err)
		}
	}

	return nil
}

// downloadFile fetches a single content file into its destination path.
func (d *Downloader) downloadFile(ctx context.Context, destFolder, baseURL string, file release.ManifestFile) error {
	fileURL, err := JoinURL(baseURL, file.Path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", fileURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", fileURL, response.Status, errBadHTTPStatus)
	}

	outputPath := filepath.Join(destFolder, filepath.FromSlash(file.Path))
	if err = fsutil.EnsureDirectoryExists(filepath.Dir(outputPath)); err != nil {
		return err
	}

	outputFile, err := os.Create(filepath.Clean(outputPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}

	if _, err = io.Copy(outputFile, response.Body); err != nil {
		_ = outputFile.Close()

		return fmt.Errorf("write %s: %w", file.Path, err)
	}

	if err = outputFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file.Path, err)
	}

	logger.DebugKV(ctx, "Downloaded file", "path", file.Path)

	return nil
}

// fetch downloads a document body, requiring a 200 response.
func (d *Downloader) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", fileURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", fileURL, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileURL, err)
	}

	return data, nil
}

// JoinURL appends path elements to a base URL.
// Use path.Join to normalize duplicate slashes when composing the URL path.
func JoinURL(base string, elements ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", base, err)
	}

	u.Path = path.Join(append([]string{u.Path}, elements...)...)

	return u.String(), nil
}
