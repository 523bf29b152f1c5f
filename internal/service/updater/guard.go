package updater

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/silentcmz/careate-hot-code-push/internal/logger"
)

const (
	// MarkerFilename marks that an updater run is in progress to avoid
	// parallel executions over the same content root.
	MarkerFilename = "chcp-update-marker.bin"

	// markerLifetime is the period after which a marker is presumed stale.
	markerLifetime = 30 * time.Second

	// baseUpdaterExecutable is the updater binary name without extension.
	baseUpdaterExecutable = "chcp-updater"
)

// IsUpdaterRunningNow checks presence of the run marker and attempts
// recovery when it looks stale: the leftover updater process is killed and
// the marker removed so this instance can take over.
func IsUpdaterRunningNow(ctx context.Context) bool {
	logger.Debug(ctx, "Checking for the presence of an update marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The update marker is too old, attempting cleanup")

		if err = terminateProcessByName(updaterExecutable()); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "Update marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read update marker: %v", err)

	return false
}

// createMarker writes the run marker for this process.
func createMarker() error {
	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// touchMarker refreshes the marker timestamp so long poll runs are not
// mistaken for stale ones.
func touchMarker() error {
	now := time.Now()

	return os.Chtimes(MarkerFilename, now, now)
}

// removeMarker deletes the run marker; a missing marker is not an error.
func removeMarker() error {
	err := os.Remove(MarkerFilename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func updaterExecutable() string {
	return baseUpdaterExecutable + getExecutableExtension()
}
