package history

import "errors"

// Domain errors for session history.
var (
	// ErrNotFound indicates the summary does not exist.
	ErrNotFound = errors.New("session summary not found")

	// ErrExists indicates a summary with the same ID was already saved.
	ErrExists = errors.New("session summary already exists")

	// ErrInvalidID indicates the summary has no ID.
	ErrInvalidID = errors.New("invalid session id")

	// ErrInvalidTimes indicates the session ended before it started.
	ErrInvalidTimes = errors.New("session ended before it started")
)
