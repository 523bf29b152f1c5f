// Package prefs implements persistence for the installation pointers.
//
// The FileRepository stores which release is current, which one is kept for
// rollback, and which staged release is ready for installation. The updater
// sets the ready pointer after a successful download; the installer consumes
// it when promoting the release.
package prefs
