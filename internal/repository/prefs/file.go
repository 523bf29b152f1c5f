package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/silentcmz/careate-hot-code-push/internal/config"
)

// Preferences tracks which release occupies each installation slot.
type Preferences struct {
	// CurrentRelease is the release whose content the host is serving.
	CurrentRelease string `json:"current_release"`
	// PreviousRelease is the release kept around for rollback.
	PreviousRelease string `json:"previous_release"`
	// ReadyRelease is a fully staged release awaiting installation.
	ReadyRelease string `json:"ready_for_installation"`
}

// Clone returns a copy of the preferences to avoid leaking internal references.
func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}

	cloned := *p

	return &cloned
}

// Repository defines persistence operations for the installation pointers.
type Repository interface {
	Load(ctx context.Context) (*Preferences, error)
	Save(ctx context.Context, prefs *Preferences) error
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("installation state not found")

// FileRepository persists the installation pointers to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the installation pointers from disk.
func (r *FileRepository) Load(_ context.Context) (*Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var prefs Preferences
	if err = json.Unmarshal(contents, &prefs); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &prefs, nil
}

// Save writes the installation pointers to disk.
func (r *FileRepository) Save(_ context.Context, prefs *Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}
