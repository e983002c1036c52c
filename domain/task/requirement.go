package task

// Requirement holds the counts a task family needs before it may be skipped.
// Zero fields impose no constraint.
type Requirement struct {
	// MinOutput is the output count needed before leaving the stage.
	MinOutput int

	// MinMaterial is the material count that must remain afterwards.
	MinMaterial int

	// MaterialSpent requires every carried material to have been used.
	MaterialSpent bool

	// NeedsTool requires the mandatory tool to be held.
	NeedsTool bool

	// NeedsContainer requires the carry container to be held.
	NeedsContainer bool

	// NeedsRefill requires the container refill to have happened this lap.
	NeedsRefill bool
}

// Shortfall returns the material required to reach minOutput (one material
// per output) and still carry minAfter onwards.
func Shortfall(output, minOutput, minAfter int) int {
	return max(0, minOutput-output) + minAfter
}
