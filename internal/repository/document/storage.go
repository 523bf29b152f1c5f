package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
	"github.com/silentcmz/careate-hot-code-push/internal/fsutil"
	"github.com/silentcmz/careate-hot-code-push/internal/layout"
)

// ErrNotFound is returned when a document does not exist in the folder.
var ErrNotFound = errors.New("document not found")

// ConfigStorage persists application config documents per release folder.
// The same storage reads installed copies and writes staged ones; the folder
// argument decides which release is addressed.
type ConfigStorage interface {
	Load(ctx context.Context, folder string) (*release.ApplicationConfig, error)
	Store(ctx context.Context, cfg *release.ApplicationConfig, folder string) error
}

// ManifestStorage persists content manifest documents per release folder.
type ManifestStorage interface {
	Load(ctx context.Context, folder string) (*release.ContentManifest, error)
	Store(ctx context.Context, manifest *release.ContentManifest, folder string) error
}

// FileConfigStorage reads and writes chcp.json inside release folders.
type FileConfigStorage struct{}

// NewFileConfigStorage creates a file-backed application config storage.
func NewFileConfigStorage() *FileConfigStorage {
	return &FileConfigStorage{}
}

// Load reads and parses the application config from the folder.
func (s *FileConfigStorage) Load(_ context.Context, folder string) (*release.ApplicationConfig, error) {
	contents, err := readDocument(filepath.Join(folder, layout.ConfigFileName))
	if err != nil {
		return nil, err
	}

	cfg, err := release.ParseApplicationConfig(contents)
	if err != nil {
		return nil, fmt.Errorf("decode application config: %w", err)
	}

	return cfg, nil
}

// Store writes the application config into the folder.
func (s *FileConfigStorage) Store(_ context.Context, cfg *release.ApplicationConfig, folder string) error {
	data, err := cfg.Bytes()
	if err != nil {
		return err
	}

	return writeDocument(filepath.Join(folder, layout.ConfigFileName), data)
}

// FileManifestStorage reads and writes chcp.manifest inside release folders.
type FileManifestStorage struct{}

// NewFileManifestStorage creates a file-backed content manifest storage.
func NewFileManifestStorage() *FileManifestStorage {
	return &FileManifestStorage{}
}

// Load reads and parses the content manifest from the folder.
func (s *FileManifestStorage) Load(_ context.Context, folder string) (*release.ContentManifest, error) {
	contents, err := readDocument(filepath.Join(folder, layout.ManifestFileName))
	if err != nil {
		return nil, err
	}

	manifest, err := release.ParseContentManifest(contents)
	if err != nil {
		return nil, fmt.Errorf("decode content manifest: %w", err)
	}

	return manifest, nil
}

// Store writes the content manifest into the folder.
func (s *FileManifestStorage) Store(_ context.Context, manifest *release.ContentManifest, folder string) error {
	data, err := manifest.Bytes()
	if err != nil {
		return err
	}

	return writeDocument(filepath.Join(folder, layout.ManifestFileName), data)
}

// readDocument loads a document file, mapping absence to ErrNotFound.
func readDocument(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read document: %w", err)
	}

	return contents, nil
}

// writeDocument replaces a document file through a temp file and rename,
// so readers never observe a half-written document.
func writeDocument(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsutil.EnsureDirectoryExists(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".chcp-doc-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write document: %w", err)
	}

	if err = tmp.Chmod(config.DefaultFilePermissions); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("chmod document: %w", err)
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("close document: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("replace document: %w", err)
	}

	return nil
}
