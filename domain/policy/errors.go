package policy

import "errors"

var (
	// ErrBudgetExceeded is returned when a handler's retry budget is spent.
	ErrBudgetExceeded = errors.New("retry budget exhausted")

	// ErrTransitionNotAllowed is returned for a sub-state change the
	// handler's transition table does not list.
	ErrTransitionNotAllowed = errors.New("sub-state transition not allowed")
)
