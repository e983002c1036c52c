package handler

import (
	"context"

	"github.com/felixgeelhaar/taskloop/domain/substate"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

// confirmOption answers the emptying confirmation dialogue.
var confirmOption = world.Target{Kind: world.TargetDialogueOption, Name: "yes"}

// ContainerRefill empties the carry container and fletches the material it
// released.
//
// The confirmation dialogue reads the same whether the container was already
// empty or just released its contents, so the outcome is inferred from the
// material count before and after the dialogue.
type ContainerRefill struct {
	machine[substate.Container]

	materialBefore int
	outputAfter    int
	fletchTarget   int
	// confirmed is set once the dialogue has been answered; a later failed
	// inventory read must not answer it again.
	confirmed bool
}

// NewContainerRefill creates a container refill handler.
func NewContainerRefill(maxRetries int) (*ContainerRefill, error) {
	budget := newBudget(maxRetries)
	m, err := statemachine.ContainerRefill()
	if err != nil {
		return nil, err
	}
	return &ContainerRefill{machine: machine[substate.Container]{kind: task.TypeContainer, m: m, budget: budget}}, nil
}

// Type returns task.TypeContainer.
func (h *ContainerRefill) Type() task.Type { return task.TypeContainer }

// Reset returns the handler to NotEmptied.
func (h *ContainerRefill) Reset() {
	h.reset()
	h.materialBefore, h.outputAfter, h.fletchTarget = 0, 0, 0
	h.confirmed = false
}

// SubState returns the current sub-state name.
func (h *ContainerRefill) SubState() string { return string(h.state()) }

// Interruptible is false while the confirmation dialogue is being answered.
func (h *ContainerRefill) Interruptible() bool { return h.state() != substate.ContainerEmptying }

// Run advances the container refill by one step.
func (h *ContainerRefill) Run(ctx context.Context, env *Env) Result {
	if !env.Snapshot.HasInventory {
		return waiting("inventory unavailable")
	}
	opts := env.Session.Options()
	timing := opts.Timing

	switch h.state() {
	case substate.ContainerNotEmptied:
		if !env.Snapshot.Inventory.Has(opts.Container) {
			return misplaced(ctx, env, "container", opts.Container)
		}
		h.materialBefore = env.Snapshot.Count(opts.Material)
		if !env.Actions.Interact(ctx, itemTarget(opts.Container), world.ActionEmpty) {
			return h.fail(substate.ContainerNotEmptied, "container tap failed")
		}
		h.move(substate.ContainerEmptying, "container tapped")
		return progressed()

	case substate.ContainerEmptying:
		if !h.confirmed {
			if !env.Actions.WaitUntil(ctx, panelVisible(ctx, env, world.PanelDialogue, true), timing.ActionTimeout) {
				return h.fail(substate.ContainerNotEmptied, "confirmation dialogue did not appear")
			}
			if !env.Actions.Interact(ctx, confirmOption, world.ActionConfirm) {
				return h.fail(substate.ContainerNotEmptied, "confirmation failed")
			}
			if !env.Actions.WaitUntil(ctx, panelVisible(ctx, env, world.PanelDialogue, false), timing.ActionTimeout) {
				return h.fail(substate.ContainerNotEmptied, "confirmation dialogue did not close")
			}
			h.confirmed = true
		}
		inv, ok := inventory(ctx, env, opts.Material, opts.Output)
		if !ok {
			return waiting("inventory unavailable")
		}
		h.confirmed = false
		gain := inv.Get(opts.Material) - h.materialBefore
		if gain <= opts.ContainerGainMargin {
			gain = 0
		}
		env.Session.MarkContainerEmptied(gain)
		h.outputAfter = inv.Get(opts.Output)
		logging.Debug().
			Add(logging.Task(h.kind.String())).
			Add(logging.Int("gain", gain)).
			Add(logging.Bool("already_empty", gain == 0)).
			Msg("container emptied")
		h.move(substate.ContainerEmptiedAwaitingFletch, "dialogue answered")
		return progressed()

	case substate.ContainerEmptiedAwaitingFletch:
		gain := env.Session.Loop().ContainerGain
		if gain == 0 {
			return h.finish(env)
		}
		h.fletchTarget = h.outputAfter + min(gain, opts.ContainerBatch)
		h.move(substate.ContainerFletching, "container released material")
		return progressed()

	case substate.ContainerFletching:
		res := fletch(ctx, env, h.fletchTarget, timing.FletchTimeout)
		switch {
		case res.unavailable:
			return waiting("inventory unavailable")
		case res.reached || res.spent:
			return h.finish(env)
		case res.gained == 0:
			return h.fail(substate.ContainerFletching, "fletching made no progress")
		default:
			return progressed()
		}

	case substate.ContainerDone:
		return h.finish(env)

	default:
		h.Reset()
		return failed("unknown container sub-state")
	}
}

func (h *ContainerRefill) finish(env *Env) Result {
	if h.state() != substate.ContainerDone {
		h.move(substate.ContainerDone, "refill finished")
	}
	env.Session.MarkContainerRefilled()
	h.budget.Reset()
	return completed()
}
