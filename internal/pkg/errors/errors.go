package errors

import "errors"

// Pipeline failure taxonomy. Callers classify wrapped errors with
// errors.Is; everything per-asset is recorded and skipped, only
// storage listing and schema setup abort a whole run.
var (
	// ErrStorageUnavailable means listing or reading the blob store failed.
	// Retryable by re-invoking the scanner.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAnalysisJobFailed is a per-asset analysis failure, isolated to
	// the owning asset and retryable by resubmission.
	ErrAnalysisJobFailed = errors.New("analysis job failed")

	// ErrAnalysisJobTimedOut means the job did not reach a terminal
	// state within the configured maximum wait.
	ErrAnalysisJobTimedOut = errors.New("analysis job timed out")

	// ErrMalformedPayload means a durable result payload cannot be
	// decoded at all. Feature-level absence is never this error.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrSchemaSetup is fatal and not retried; it indicates a
	// prerequisite misconfiguration (permissions, wrong database).
	ErrSchemaSetup = errors.New("schema setup failed")

	// ErrLoadFailure means a per-asset insert attempt failed and was
	// rolled back; the asset stays at its pre-load state.
	ErrLoadFailure = errors.New("load failure")
)
