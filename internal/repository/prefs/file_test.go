package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	p, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, p)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal pointers.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "chcp-state.json")
	repo := NewFileRepository(file)

	want := &Preferences{
		CurrentRelease:  "2026.08.20-09.00.00",
		PreviousRelease: "2026.08.01-10.30.00",
		ReadyRelease:    "2026.08.25-14.00.00",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileRepository_CorruptFile surfaces decode errors distinct from absence.
func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "chcp-state.json")
	require.NoError(t, os.WriteFile(file, []byte("not json"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestPreferences_Clone ensures a clone does not alias the original.
func TestPreferences_Clone(t *testing.T) {
	t.Parallel()

	original := &Preferences{CurrentRelease: "a"}
	cloned := original.Clone()
	cloned.CurrentRelease = "b"

	require.Equal(t, "a", original.CurrentRelease)

	var nilPrefs *Preferences
	require.Nil(t, nilPrefs.Clone())
}
