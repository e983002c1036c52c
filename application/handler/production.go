package handler

import (
	"context"

	"github.com/felixgeelhaar/taskloop/domain/substate"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

// Production turns the carried material into output through the make
// dialogue.
type Production struct {
	machine[substate.Produce]

	startOutput   int
	startMaterial int
}

// NewProduction creates a production handler.
func NewProduction(maxRetries int) (*Production, error) {
	budget := newBudget(maxRetries)
	m, err := statemachine.Production()
	if err != nil {
		return nil, err
	}
	return &Production{machine: machine[substate.Produce]{kind: task.TypeProduce, m: m, budget: budget}}, nil
}

// Type returns task.TypeProduce.
func (h *Production) Type() task.Type { return task.TypeProduce }

// Reset returns the handler to SelectTool.
func (h *Production) Reset() {
	h.reset()
	h.startOutput, h.startMaterial = 0, 0
}

// SubState returns the current sub-state name.
func (h *Production) SubState() string { return string(h.state()) }

// Interruptible is always true.
func (h *Production) Interruptible() bool { return true }

// Run advances production by one step. Any failed step restarts from
// SelectTool.
func (h *Production) Run(ctx context.Context, env *Env) Result {
	if !env.Snapshot.HasInventory {
		return waiting("inventory unavailable")
	}
	opts := env.Session.Options()
	timing := opts.Timing

	switch h.state() {
	case substate.ProduceSelectTool:
		snap := env.Snapshot
		if !snap.Inventory.Has(opts.Tool) {
			return misplaced(ctx, env, "tool", opts.Tool)
		}
		if snap.Count(opts.Material) == 0 {
			return h.done()
		}
		h.startOutput = snap.Count(opts.Output)
		h.startMaterial = snap.Count(opts.Material)
		if !env.Actions.Interact(ctx, itemTarget(opts.Tool), world.ActionUse) {
			return h.fail(substate.ProduceSelectTool, "tool selection failed")
		}
		h.move(substate.ProduceSelectMaterial, "tool selected")

	case substate.ProduceSelectMaterial:
		if !env.Actions.Interact(ctx, itemTarget(opts.Material), world.ActionUse) {
			return h.fail(substate.ProduceSelectTool, "material selection failed")
		}
		h.move(substate.ProduceAwaitDialogue, "material selected")

	case substate.ProduceAwaitDialogue:
		if !env.Actions.WaitUntil(ctx, panelVisible(ctx, env, world.PanelDialogue, true), timing.ActionTimeout) {
			return h.fail(substate.ProduceSelectTool, "make dialogue did not appear")
		}
		h.move(substate.ProduceSelectOutput, "dialogue open")

	case substate.ProduceSelectOutput:
		choice := world.Target{Kind: world.TargetDialogueOption, Item: opts.Output, Quantity: h.startMaterial}
		if !env.Actions.Interact(ctx, choice, world.ActionMake) {
			return h.fail(substate.ProduceSelectTool, "output choice failed")
		}
		h.move(substate.ProduceWaitForCount, "output chosen")

	case substate.ProduceWaitForCount:
		target := h.startOutput + h.startMaterial
		finished := func() bool {
			inv, ok := inventory(ctx, env, opts.Material, opts.Output)
			return ok && (inv.Get(opts.Output) >= target || inv.Get(opts.Material) == 0)
		}
		if !env.Actions.WaitUntil(ctx, finished, timing.ProduceTimeout) {
			return h.fail(substate.ProduceSelectTool, "output count never reached target")
		}
		return h.done()

	default:
		h.Reset()
		return failed("unknown production sub-state")
	}
	return progressed()
}
