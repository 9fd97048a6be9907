package domain

import "errors"

// Sentinel errors. Components absorb sub-call failures and convert them into
// degraded results or PartialFailure entries; only fatal errors propagate to
// the orchestrator as a hard abort.
var (
	// ErrInvalidQuery means the query failed validation (rejected before a workflow starts).
	ErrInvalidQuery = errors.New("invalid query")

	// ErrProviderTransient marks timeouts and rate limits from an external
	// provider. Subject to each stage's retry policy.
	ErrProviderTransient = errors.New("transient provider error")

	// ErrNoCandidates is not a fault: it drives the NO_RESULTS terminal status.
	ErrNoCandidates = errors.New("no candidates")

	// ErrStoreUnavailable means the record store cannot be reached at all.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrFatalConfiguration aborts the workflow immediately to FAILED.
	ErrFatalConfiguration = errors.New("fatal configuration error")
)

// IsFatal reports whether err must abort the whole workflow rather than
// degrade it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrFatalConfiguration)
}

// IsTransient reports whether err is retryable under a stage's retry policy.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderTransient)
}
