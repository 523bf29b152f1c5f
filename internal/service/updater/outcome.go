package updater

import (
	"context"

	"github.com/silentcmz/careate-hot-code-push/internal/domain/release"
)

// OutcomeKind names the terminal result class of a worker run.
type OutcomeKind string

// Every run finishes in exactly one of these.
const (
	// OutcomeError reports a failed run; Outcome.Error carries the class.
	OutcomeError OutcomeKind = "error"
	// OutcomeNothingToUpdate reports that the installed release is current.
	OutcomeNothingToUpdate OutcomeKind = "nothing_to_update"
	// OutcomeReadyToInstall reports a fully staged release awaiting installation.
	OutcomeReadyToInstall OutcomeKind = "ready_to_install"
)

// ErrorKind classifies a failed run, one value per failure class.
type ErrorKind string

const (
	// ErrorLocalConfigNotFound - the installed application config is missing or unreadable.
	ErrorLocalConfigNotFound ErrorKind = "local_config_not_found"
	// ErrorLocalManifestNotFound - the installed content manifest is missing or unreadable.
	ErrorLocalManifestNotFound ErrorKind = "local_manifest_not_found"
	// ErrorFailedToDownloadApplicationConfig - the remote config could not be fetched or parsed.
	ErrorFailedToDownloadApplicationConfig ErrorKind = "failed_to_download_application_config"
	// ErrorFailedToDownloadContentManifest - the remote manifest could not be fetched or parsed.
	ErrorFailedToDownloadContentManifest ErrorKind = "failed_to_download_content_manifest"
	// ErrorFailedToDownloadUpdateFiles - staging preparation, the bulk download,
	// or a staged document write failed.
	ErrorFailedToDownloadUpdateFiles ErrorKind = "failed_to_download_update_files"
	// ErrorNativeVersionTooLow - the release requires a newer host build.
	ErrorNativeVersionTooLow ErrorKind = "native_version_too_low"
)

// Outcome is the single result value of a worker run. Failures are carried
// here instead of error returns, so a run always terminates in exactly one
// reported state.
type Outcome struct {
	// WorkerID tags the run that produced this outcome.
	WorkerID string
	// Kind is the terminal result class.
	Kind OutcomeKind
	// Error classifies the failure; set only when Kind is OutcomeError.
	Error ErrorKind
	// Config is the newest application config the run has seen.
	// Nil when the run failed before a remote config was fetched.
	Config *release.ApplicationConfig
	// Err is the underlying cause kept for logs. It never drives control flow.
	Err error
}

// Sink receives the single outcome of a worker run.
type Sink interface {
	Dispatch(ctx context.Context, outcome Outcome)
}
