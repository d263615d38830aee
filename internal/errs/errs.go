// Package errs defines the error taxonomy shared by every seek operation
// and its mapping to stable process exit codes. Calling scripts rely on
// these codes, so they must not change between releases.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by any index operation before `seek init`.
	ErrNotInitialized = errors.New("index not initialized (run `seek init`)")

	// ErrAlreadyInitialized is returned by init when an index exists and
	// --force was not given.
	ErrAlreadyInitialized = errors.New("index already initialized (use --force to recreate)")

	// ErrDimensionMismatch aborts a sync before any vector write when the
	// embedding backend's output dimension disagrees with the stored index
	// state.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidOrdinal is returned by cat/open for an ordinal outside the
	// most recent result set, or when no query has run this session.
	ErrInvalidOrdinal = errors.New("invalid ordinal")

	// ErrSyncConflict is returned when a sync is attempted while another
	// sync holds the index.
	ErrSyncConflict = errors.New("another sync is already in progress")

	// ErrBackendUnavailable means the embedding backend is unreachable.
	// Fatal for the sync as a whole, unlike a per-file timeout.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")
)

// ExtractionError is a per-file failure during symbol extraction. It is
// collected into the sync summary and never aborts other files.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Exit codes expected by calling scripts.
const (
	ExitOK                 = 0
	ExitError              = 1
	ExitNotInitialized     = 2
	ExitAlreadyInitialized = 3
	ExitDimensionMismatch  = 4
	ExitInvalidOrdinal     = 5
	ExitSyncConflict       = 6
	ExitBackendUnavailable = 7
)

// ExitCode maps an error to its stable exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNotInitialized):
		return ExitNotInitialized
	case errors.Is(err, ErrAlreadyInitialized):
		return ExitAlreadyInitialized
	case errors.Is(err, ErrDimensionMismatch):
		return ExitDimensionMismatch
	case errors.Is(err, ErrInvalidOrdinal):
		return ExitInvalidOrdinal
	case errors.Is(err, ErrSyncConflict):
		return ExitSyncConflict
	case errors.Is(err, ErrBackendUnavailable):
		return ExitBackendUnavailable
	default:
		return ExitError
	}
}
