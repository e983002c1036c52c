package application

import "errors"

// Orchestrator construction and setup errors.
var (
	// ErrWorldRequired indicates no world query was configured.
	ErrWorldRequired = errors.New("world query is required")

	// ErrActionsRequired indicates no action executor was configured.
	ErrActionsRequired = errors.New("action executor is required")

	// ErrScannerRequired indicates no token scanner was configured.
	ErrScannerRequired = errors.New("token scanner is required")

	// ErrNoInventory indicates setup could not read the inventory.
	ErrNoInventory = errors.New("inventory unavailable during setup")

	// ErrToolMissing indicates the mandatory tool is not in the inventory.
	ErrToolMissing = errors.New("mandatory tool not in inventory")

	// ErrWrongStartArea indicates the agent is outside the start area.
	ErrWrongStartArea = errors.New("agent is outside the start area")

	// ErrGoalReached indicates experience already meets the goal.
	ErrGoalReached = errors.New("experience goal already reached")

	// ErrTerminated indicates the session has already ended.
	ErrTerminated = errors.New("session terminated")
)
