// Package packager produces the release documents for a content directory.
//
// It walks the content, fingerprints every file through a bounded worker
// pool, and writes the content manifest and application config that the
// updater consumes. The directory is then ready to be uploaded as one
// release.
package packager
