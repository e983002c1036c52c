package task

import "errors"

// Domain errors for task plans.
var (
	// ErrEmptyPlan indicates a plan was built without steps.
	ErrEmptyPlan = errors.New("plan has no steps")

	// ErrUnknownTask indicates a step names an unknown task type.
	ErrUnknownTask = errors.New("unknown task type")
)
