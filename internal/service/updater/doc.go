// Package updater implements the update acquisition pipeline.
//
// A worker compares the installed release against a remote application
// config, downloads changed content files into the staging folder of the new
// release, commits the release documents last, and reports exactly one
// outcome per run: ready to install, nothing to update, or a classified
// error. A marker file guards against parallel updater runs.
package updater
