package layout

import "path/filepath"

const (
	// ConfigFileName is the application config document inside a content folder.
	ConfigFileName = "chcp.json"
	// ManifestFileName is the content manifest document inside a content folder.
	ManifestFileName = "chcp.manifest"
	// StateFileName is the installation pointer state stored at the content root.
	StateFileName = "chcp-state.json"

	installedFolderName = "www"
	downloadFolderName  = "update"
	tempFolderName      = "tmp"
)

// Layout computes release folder paths under a content root.
// It is pure path arithmetic: nothing here touches the filesystem.
type Layout struct {
	// root is the content root holding all release folders.
	root string
	// version is the release the layout is currently bound to.
	version string
}

// InstalledPaths is an immutable snapshot of where the installed release
// lives. A worker resolves it once, so the paths it reads installed state
// from stay stable even after the layout is switched to another release.
type InstalledPaths struct {
	// Folder is the installed (www) folder holding the live content.
	Folder string
	// ConfigPath is the application config document inside Folder.
	ConfigPath string
	// ManifestPath is the content manifest document inside Folder.
	ManifestPath string
	// ContentFolder is the release content folder containing Folder.
	ContentFolder string
}

// New returns a layout bound to the given content root and release version.
func New(root, version string) *Layout {
	return &Layout{
		root:    filepath.Clean(root),
		version: version,
	}
}

// SwitchToRelease rebinds the layout to another release version.
// Only the computed paths change; no folders are created or removed.
func (l *Layout) SwitchToRelease(version string) {
	l.version = version
}

// Root returns the content root.
func (l *Layout) Root() string {
	return l.root
}

// ReleaseVersion returns the release the layout is bound to.
func (l *Layout) ReleaseVersion() string {
	return l.version
}

// ContentFolder returns the folder holding everything of the bound release.
func (l *Layout) ContentFolder() string {
	return filepath.Join(l.root, l.version)
}

// InstalledFolder returns the folder with live, installed content.
func (l *Layout) InstalledFolder() string {
	return filepath.Join(l.ContentFolder(), installedFolderName)
}

// DownloadFolder returns the staging folder updates are downloaded into.
func (l *Layout) DownloadFolder() string {
	return filepath.Join(l.ContentFolder(), downloadFolderName)
}

// TempFolder returns the scratch folder used while assembling a release.
func (l *Layout) TempFolder() string {
	return filepath.Join(l.ContentFolder(), tempFolderName)
}

// StatePath returns the installation pointer state file at the content root.
func (l *Layout) StatePath() string {
	return filepath.Join(l.root, StateFileName)
}

// ResolveInstalledPaths snapshots the current installed release locations.
func (l *Layout) ResolveInstalledPaths() InstalledPaths {
	installed := l.InstalledFolder()

	return InstalledPaths{
		Folder:        installed,
		ConfigPath:    filepath.Join(installed, ConfigFileName),
		ManifestPath:  filepath.Join(installed, ManifestFileName),
		ContentFolder: l.ContentFolder(),
	}
}
