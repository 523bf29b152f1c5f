package output

import (
	"os"

	"github.com/fatih/color"
)

//nolint:gochecknoglobals // Color styles are shared presentation state.
var (
	// Diff entry colors.
	Added   = color.New(color.FgGreen)
	Updated = color.New(color.FgYellow)
	Removed = color.New(color.FgRed)

	// Message colors.
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)
)

// NoColor disables colored output for all printers in this package.
func NoColor() {
	color.NoColor = true
}

// PrintSuccess prints a success message to stdout.
func PrintSuccess(format string, args ...any) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message to stdout.
func PrintWarning(format string, args ...any) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an informational message to stdout.
func PrintInfo(format string, args ...any) {
	Info.Printf("→ "+format+"\n", args...)
}

// DiffColor returns the color used for a diff entry kind.
func DiffColor(kind string) *color.Color {
	switch kind {
	case "added":
		return Added
	case "updated":
		return Updated
	case "removed":
		return Removed
	default:
		return Dim
	}
}
