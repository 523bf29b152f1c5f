// Package fsutil provides the small set of filesystem operations the
// services build on: idempotent delete and directory creation, folder
// recreation, recursive copies, and relative-path validation.
package fsutil
