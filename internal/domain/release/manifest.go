package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// errEmptyManifestPath is returned when a manifest entry has no path.
	errEmptyManifestPath = errors.New("manifest entry has an empty path")
	// errEmptyManifestHash is returned when a manifest entry has no fingerprint.
	errEmptyManifestHash = errors.New("manifest entry has an empty fingerprint")
)

// ManifestFile describes one content file of a release.
type ManifestFile struct {
	// Path is the file location relative to the content folder,
	// with forward slashes on every platform.
	Path string `json:"file"`
	// Hash is the lowercase hex fingerprint of the file content.
	Hash string `json:"hash"`
}

// ContentManifest is the set of files that make up one release.
// A parsed manifest is immutable: entries are copied on the way in and out,
// and no two entries share a path.
type ContentManifest struct {
	files []ManifestFile
}

// NewContentManifest builds a manifest from the provided entries.
// Entries are copied and sorted by path; empty paths, empty fingerprints
// and duplicate paths are rejected.
func NewContentManifest(files []ManifestFile) (*ContentManifest, error) {
	seen := make(map[string]struct{}, len(files))

	sorted := make([]ManifestFile, 0, len(files))
	for _, f := range files {
		if f.Path == "" {
			return nil, errEmptyManifestPath
		}

		if f.Hash == "" {
			return nil, fmt.Errorf("%w: %s", errEmptyManifestHash, f.Path)
		}

		if _, ok := seen[f.Path]; ok {
			return nil, fmt.Errorf("duplicate manifest entry: %s", f.Path)
		}

		seen[f.Path] = struct{}{}

		sorted = append(sorted, f)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	return &ContentManifest{files: sorted}, nil
}

// ParseContentManifest decodes a content manifest document.
func ParseContentManifest(data []byte) (*ContentManifest, error) {
	var files []ManifestFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("unmarshal content manifest: %w", err)
	}

	return NewContentManifest(files)
}

// Files returns a copy of the manifest entries, sorted by path.
func (m *ContentManifest) Files() []ManifestFile {
	entries := m.entries()

	out := make([]ManifestFile, len(entries))
	copy(out, entries)

	return out
}

// Len returns the number of files in the manifest.
func (m *ContentManifest) Len() int {
	return len(m.entries())
}

// Hash returns the fingerprint recorded for the given path
// and whether the path is part of the manifest.
func (m *ContentManifest) Hash(path string) (string, bool) {
	for _, f := range m.entries() {
		if f.Path == path {
			return f.Hash, true
		}
	}

	return "", false
}

// Bytes serializes the manifest back to its wire format, sorted by path.
func (m *ContentManifest) Bytes() ([]byte, error) {
	entries := m.entries()
	if entries == nil {
		entries = []ManifestFile{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal content manifest: %w", err)
	}

	return data, nil
}

// entries returns the backing slice, treating a nil manifest as empty.
func (m *ContentManifest) entries() []ManifestFile {
	if m == nil {
		return nil
	}

	return m.files
}

// index maps paths to fingerprints for diff computation.
func (m *ContentManifest) index() map[string]string {
	entries := m.entries()

	idx := make(map[string]string, len(entries))
	for _, f := range entries {
		idx[f.Path] = f.Hash
	}

	return idx
}
