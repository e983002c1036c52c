package policy

import (
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
)

// RequirementFor returns the requirement a task family must meet to be
// skipped, derived from the session options.
func RequirementFor(t task.Type, opts session.Options) task.Requirement {
	switch t {
	case task.TypeBank:
		return task.Requirement{
			MinOutput:      opts.OutputTarget,
			MinMaterial:    opts.MaterialReserve,
			NeedsTool:      true,
			NeedsContainer: opts.ExtendedCarry,
		}
	case task.TypeProduce:
		return task.Requirement{
			MinOutput:     opts.OutputTarget,
			MaterialSpent: true,
			NeedsTool:     true,
		}
	case task.TypeContainer:
		return task.Requirement{NeedsRefill: true}
	default:
		return task.Requirement{}
	}
}

// CanSkip reports whether the task at the cursor may be skipped because its
// requirement already holds in the snapshot. It reads nothing but its
// arguments. Terminal tasks are never skipped, and neither is anything when
// the snapshot lacks inventory data.
func CanSkip(t task.Type, c *session.Context, snap world.Snapshot) bool {
	if t.IsTerminal() || !t.IsValid() {
		return false
	}
	if !snap.HasInventory {
		return false
	}
	opts := c.Options()
	return Satisfied(RequirementFor(t, opts), opts, c.Loop(), snap.Inventory)
}

// Satisfied evaluates every clause of req. All clauses must hold.
func Satisfied(req task.Requirement, opts session.Options, loop session.LoopFlags, inv world.Counts) bool {
	if inv.Get(opts.Output) < req.MinOutput {
		return false
	}
	if inv.Get(opts.Material) < req.MinMaterial {
		return false
	}
	if req.MaterialSpent && inv.Get(opts.Material) > 0 {
		return false
	}
	if req.NeedsTool && !inv.Has(opts.Tool) {
		return false
	}
	if req.NeedsContainer && !inv.Has(opts.Container) {
		return false
	}
	if req.NeedsRefill && !loop.ContainerRefilled {
		return false
	}
	return true
}
