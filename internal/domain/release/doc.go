// Package release contains core domain types for the content update pipeline.
//
// It defines the two release documents, ApplicationConfig (chcp.json) and
// ContentManifest (chcp.manifest), the ManifestDiff between two manifests,
// and the fingerprint helpers used to identify file content. Parsed documents
// are treated as immutable values.
package release
