// Package installer activates a staged release.
//
// It validates every staged file against its manifest fingerprint, assembles
// the new installed folder next to the current one, swaps the installation
// pointers, and prunes releases that are no longer referenced. A failure
// before the pointer swap leaves the installed release untouched.
package installer
