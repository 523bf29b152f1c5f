// Package network downloads release documents and content files over HTTP.
//
// The Downloader covers the three remote operations of the update pipeline:
// fetching the application config, fetching the content manifest, and
// bulk-downloading changed files through a bounded worker pool. Downloads
// are all-or-nothing and never retried at this layer.
package network
