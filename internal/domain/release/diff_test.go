package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mustManifest builds a manifest from entries, failing the test on invalid input.
func mustManifest(t *testing.T, files ...ManifestFile) *ContentManifest {
	t.Helper()

	m, err := NewContentManifest(files)
	require.NoError(t, err)

	return m
}

// TestDiff covers the classic mix of added, updated and removed files.
func TestDiff(t *testing.T) {
	t.Parallel()

	oldManifest := mustManifest(t,
		ManifestFile{Path: "index.html", Hash: "1"},
		ManifestFile{Path: "js/app.js", Hash: "2"},
		ManifestFile{Path: "css/site.css", Hash: "3"},
	)
	newManifest := mustManifest(t,
		ManifestFile{Path: "index.html", Hash: "1"},
		ManifestFile{Path: "js/app.js", Hash: "2b"},
		ManifestFile{Path: "img/logo.png", Hash: "4"},
	)

	diff := Diff(oldManifest, newManifest)
	require.False(t, diff.IsEmpty())
	require.Equal(t, []ManifestFile{{Path: "img/logo.png", Hash: "4"}}, diff.Added)
	require.Equal(t, []ManifestFile{{Path: "js/app.js", Hash: "2b"}}, diff.Updated)
	require.Equal(t, []ManifestFile{{Path: "css/site.css", Hash: "3"}}, diff.Removed)

	update := diff.UpdateFiles()
	require.Equal(t, []ManifestFile{
		{Path: "img/logo.png", Hash: "4"},
		{Path: "js/app.js", Hash: "2b"},
	}, update)
}

// TestDiff_Empty confirms identical content yields an empty diff,
// including when both arguments are the same reference.
func TestDiff_Empty(t *testing.T) {
	t.Parallel()

	m := mustManifest(t,
		ManifestFile{Path: "index.html", Hash: "1"},
		ManifestFile{Path: "js/app.js", Hash: "2"},
	)
	same := mustManifest(t,
		ManifestFile{Path: "js/app.js", Hash: "2"},
		ManifestFile{Path: "index.html", Hash: "1"},
	)

	require.True(t, Diff(m, same).IsEmpty())
	require.True(t, Diff(m, m).IsEmpty())
	require.Empty(t, Diff(m, m).UpdateFiles())
}

// TestDiff_NilManifests treats nil as an empty manifest on either side.
func TestDiff_NilManifests(t *testing.T) {
	t.Parallel()

	m := mustManifest(t,
		ManifestFile{Path: "a.js", Hash: "1"},
		ManifestFile{Path: "b.js", Hash: "2"},
	)

	fresh := Diff(nil, m)
	require.Len(t, fresh.Added, 2)
	require.Empty(t, fresh.Updated)
	require.Empty(t, fresh.Removed)

	gone := Diff(m, nil)
	require.Empty(t, gone.Added)
	require.Empty(t, gone.Updated)
	require.Len(t, gone.Removed, 2)

	require.True(t, Diff(nil, nil).IsEmpty())
}

// TestDiff_FingerprintOnly ensures only the fingerprint drives the comparison:
// an entry whose fingerprint is unchanged is never part of the diff.
func TestDiff_FingerprintOnly(t *testing.T) {
	t.Parallel()

	oldManifest := mustManifest(t, ManifestFile{Path: "keep.js", Hash: "same"})
	newManifest := mustManifest(t, ManifestFile{Path: "keep.js", Hash: "same"})

	diff := Diff(oldManifest, newManifest)
	require.True(t, diff.IsEmpty())
}

// TestDiff_SortedResults ensures every result slice comes back ordered by path.
func TestDiff_SortedResults(t *testing.T) {
	t.Parallel()

	oldManifest := mustManifest(t,
		ManifestFile{Path: "z.js", Hash: "1"},
		ManifestFile{Path: "m.js", Hash: "2"},
		ManifestFile{Path: "a.js", Hash: "3"},
	)
	newManifest := mustManifest(t,
		ManifestFile{Path: "y.js", Hash: "4"},
		ManifestFile{Path: "b.js", Hash: "5"},
		ManifestFile{Path: "m.js", Hash: "2b"},
	)

	diff := Diff(oldManifest, newManifest)
	require.Equal(t, []string{"b.js", "y.js"}, pathsOf(diff.Added))
	require.Equal(t, []string{"m.js"}, pathsOf(diff.Updated))
	require.Equal(t, []string{"a.js", "z.js"}, pathsOf(diff.Removed))
	require.Equal(t, []string{"b.js", "m.js", "y.js"}, pathsOf(diff.UpdateFiles()))
}

// pathsOf projects entries onto their paths.
func pathsOf(files []ManifestFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}

	return out
}
