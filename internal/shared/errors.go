package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Download signals. Expected outcomes, logged at debug and swallowed by callers.
	ErrDownloadNotNeeded = fmt.Errorf("download not needed")
	ErrAlreadyDownloaded = fmt.Errorf("already downloaded")
	ErrFileNotFound      = fmt.Errorf("file not found")

	// Download errors
	ErrNoFile         = fmt.Errorf("no file to download")
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrHashMismatch   = fmt.Errorf("hash mismatch")

	// Task errors
	ErrTaskFailed = fmt.Errorf("task failed")

	// Structural errors
	ErrArtifactNotFound  = fmt.Errorf("no downloadable artifact found")
	ErrMainClassNotFound = fmt.Errorf("main class not found")
	ErrJavaNotFound      = fmt.Errorf("no java executable was found")
	ErrNoCatalogMatch    = fmt.Errorf("no catalog version match")
	ErrInvalidManifest   = fmt.Errorf("invalid manifest")
	ErrProcessorFailed   = fmt.Errorf("processor failed")
	ErrInstanceNotFound  = fmt.Errorf("instance not found")
	ErrModNotFound       = fmt.Errorf("mod not found")

	// Authentication errors
	ErrAccountInvalid   = fmt.Errorf("user account cannot be validated")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// HashMismatchError reports a file whose content hash differs from the expected one.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: expected sha1 %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *HashMismatchError) Unwrap() error { return ErrHashMismatch }

// ProcessError reports a child process that exited with a non-zero status.
type ProcessError struct {
	Cmd  string
	Code int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Cmd, e.Code)
}

func (e *ProcessError) Unwrap() error { return ErrProcessorFailed }

// IsSignal reports whether err is a control-flow outcome rather than a failure.
func IsSignal(err error) bool {
	return errors.Is(err, ErrDownloadNotNeeded) ||
		errors.Is(err, ErrAlreadyDownloaded) ||
		errors.Is(err, ErrFileNotFound)
}
