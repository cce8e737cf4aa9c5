package store

// Store defines the interface for run-result persistence.
// Implementations must be thread-safe and handle concurrent access
// gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a result doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves a run result. An existing result
	// for the same run ID is overwritten. Implementations should use
	// atomic write strategies (temp file + rename) to prevent
	// corruption.
	SaveResult(runID string, result *RunResult) error

	// LoadResult retrieves the result for the given run.
	// Returns ErrNotFound if no result exists for this runID.
	LoadResult(runID string) (*RunResult, error)

	// ListResults returns metadata for all persisted runs.
	// The returned slice may be empty.
	ListResults() ([]RunInfo, error)

	// DeleteResult removes the result and all associated artifacts
	// (result.json, trace.jsonl) for the given run.
	// Returns ErrNotFound if no result exists for this runID.
	DeleteResult(runID string) error
}

// ErrNotFound is returned when a requested run result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run result.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run result not found: " + e.RunID
	}
	return "run result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
