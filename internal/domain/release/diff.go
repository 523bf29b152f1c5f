package release

import "sort"

// ManifestDiff lists how a newer manifest differs from an older one.
// Entries carry the fingerprints of the newer manifest, except Removed,
// which carries the older ones.
type ManifestDiff struct {
	// Added lists files present only in the newer manifest.
	Added []ManifestFile
	// Updated lists files present in both manifests with different fingerprints.
	Updated []ManifestFile
	// Removed lists files present only in the older manifest.
	Removed []ManifestFile
}

// Diff compares two manifests and reports added, updated and removed files.
// Only fingerprints are compared. A nil manifest is treated as empty, and the
// result is always computed from the entries, so passing the same manifest
// twice yields an empty diff. Result slices are sorted by path.
func Diff(oldManifest, newManifest *ContentManifest) *ManifestDiff {
	diff := new(ManifestDiff)

	// Manifest entries are kept sorted, so appends stay in path order.
	oldIndex := oldManifest.index()
	for _, f := range newManifest.entries() {
		oldHash, exists := oldIndex[f.Path]

		switch {
		case !exists:
			diff.Added = append(diff.Added, f)
		case oldHash != f.Hash:
			diff.Updated = append(diff.Updated, f)
		}
	}

	newIndex := newManifest.index()
	for _, f := range oldManifest.entries() {
		if _, exists := newIndex[f.Path]; !exists {
			diff.Removed = append(diff.Removed, f)
		}
	}

	return diff
}

// IsEmpty reports whether the two manifests describe identical content.
func (d *ManifestDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// UpdateFiles returns the files that must be downloaded for the newer
// release: added and updated entries merged, sorted by path.
func (d *ManifestDiff) UpdateFiles() []ManifestFile {
	out := make([]ManifestFile, 0, len(d.Added)+len(d.Updated))
	out = append(out, d.Added...)
	out = append(out, d.Updated...)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})

	return out
}
