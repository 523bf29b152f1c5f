package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultFolderPermissions is the mode for directories created by this package.
const DefaultFolderPermissions = 0o755

var (
	// errEmptyPath is returned when a relative path is blank.
	errEmptyPath = errors.New("empty path")
	// errAbsolutePath is returned when a relative path is actually absolute.
	errAbsolutePath = errors.New("absolute path not allowed")
	// errPathEscapes is returned when a relative path climbs out of its base.
	errPathEscapes = errors.New("path escapes base directory")
)

// Delete removes the path and everything under it.
// A missing path is a success: the operation is idempotent.
func Delete(target string) error {
	if err := os.RemoveAll(filepath.Clean(target)); err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}

	return nil
}

// EnsureDirectoryExists creates the directory and any missing parents.
// An existing directory is a success: the operation is idempotent.
func EnsureDirectoryExists(target string) error {
	if err := os.MkdirAll(filepath.Clean(target), DefaultFolderPermissions); err != nil {
		return fmt.Errorf("create directory %s: %w", target, err)
	}

	return nil
}

// RecreateFolder deletes the folder and creates it again,
// guaranteeing an existing empty directory on success.
func RecreateFolder(target string) error {
	if err := Delete(target); err != nil {
		return err
	}

	return EnsureDirectoryExists(target)
}

// CopyFile copies a regular file, creating parent directories of dst
// and preserving the source file mode.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if err = EnsureDirectoryExists(filepath.Dir(dst)); err != nil {
		return err
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// CopyDirectory recursively copies the contents of src into dst.
// Symlinks and other irregular entries are skipped.
func CopyDirectory(src, dst string) error {
	err := filepath.WalkDir(src, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, current)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", current, err)
		}

		target := filepath.Join(dst, rel)

		if entry.IsDir() {
			return EnsureDirectoryExists(target)
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		return CopyFile(current, target)
	})
	if err != nil {
		return fmt.Errorf("copy directory %s: %w", src, err)
	}

	return nil
}

// ValidateRelativePath rejects paths that are empty, absolute,
// or would escape the directory they are joined to.
func ValidateRelativePath(p string) error {
	if p == "" {
		return errEmptyPath
	}

	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: %q", errPathEscapes, p)
	}

	if path.IsAbs(p) || filepath.IsAbs(p) {
		return fmt.Errorf("%w: %s", errAbsolutePath, p)
	}

	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %s", errPathEscapes, p)
	}

	return nil
}

// OS adapts the package functions to interfaces that services depend on.
type OS struct{}

// Delete removes the path and everything under it.
func (OS) Delete(target string) error {
	return Delete(target)
}

// EnsureDirectoryExists creates the directory and any missing parents.
func (OS) EnsureDirectoryExists(target string) error {
	return EnsureDirectoryExists(target)
}
