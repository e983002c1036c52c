// Package task provides the task plan: an ordered list of task tokens and a
// cursor that walks it lap after lap.
package task

// Type identifies a task family.
type Type string

// Task families.
const (
	// TypeBank restocks material and fletches at the bank.
	TypeBank Type = "bank"

	// TypeProduce crafts the remaining material through the make dialogue.
	TypeProduce Type = "produce"

	// TypeContainer empties the carry container and fletches its contents.
	TypeContainer Type = "container"

	// TypeDeliver travels to the site and completes the offering puzzle.
	TypeDeliver Type = "deliver"
)

// String returns the string representation of the task type.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if this is a known task type.
func (t Type) IsValid() bool {
	switch t {
	case TypeBank, TypeProduce, TypeContainer, TypeDeliver:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for tasks whose side effect must happen every lap.
// Terminal tasks are never skipped.
func (t Type) IsTerminal() bool {
	return t == TypeDeliver
}

// AllTypes returns all task types.
func AllTypes() []Type {
	return []Type{TypeBank, TypeProduce, TypeContainer, TypeDeliver}
}

// Options selects the optional steps of a plan.
type Options struct {
	// ExtendedCarry inserts the container step.
	ExtendedCarry bool
}

// Layout returns the task order for the given options.
func Layout(opts Options) []Type {
	if opts.ExtendedCarry {
		return []Type{TypeBank, TypeContainer, TypeProduce, TypeDeliver}
	}
	return []Type{TypeBank, TypeProduce, TypeDeliver}
}
