package handler

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/substate"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

// Banking deposits everything off the keep-list, tops up material, fletches
// towards the output target and verifies the bank requirement.
type Banking struct {
	machine[substate.Bank]
}

// NewBanking creates a banking handler.
func NewBanking(maxRetries int) (*Banking, error) {
	budget := newBudget(maxRetries)
	m, err := statemachine.Banking(budget)
	if err != nil {
		return nil, err
	}
	return &Banking{machine[substate.Bank]{kind: task.TypeBank, m: m, budget: budget}}, nil
}

// Type returns task.TypeBank.
func (h *Banking) Type() task.Type { return task.TypeBank }

// Reset returns the handler to Idle.
func (h *Banking) Reset() { h.reset() }

// SubState returns the current sub-state name.
func (h *Banking) SubState() string { return string(h.state()) }

// Interruptible is always true; every banking step is re-entrant.
func (h *Banking) Interruptible() bool { return true }

// Run advances banking by one step.
func (h *Banking) Run(ctx context.Context, env *Env) Result {
	if !env.Snapshot.HasInventory {
		return waiting("inventory unavailable")
	}

	switch h.state() {
	case substate.BankIdle:
		return h.open(ctx, env)
	case substate.BankDepositing:
		return h.deposit(ctx, env)
	case substate.BankWithdrawing:
		return h.withdraw(ctx, env)
	case substate.BankFletching:
		return h.fletch(ctx, env)
	case substate.BankVerifying:
		return h.verify(ctx, env)
	default:
		h.reset()
		return failed("unknown banking sub-state")
	}
}

func (h *Banking) open(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()
	site := opts.Bank

	if env.Snapshot.HasPosition && !site.Area.IsZero() && !site.Area.Contains(env.Snapshot.Position) {
		arrived := func() bool {
			p, ok := env.World.Position(ctx)
			return ok && site.Area.Contains(p)
		}
		if !env.Actions.MoveTo(ctx, site.Entry, arrived, opts.Timing.TravelTimeout) {
			return h.fail(substate.BankIdle, "could not reach bank")
		}
		return progressed()
	}

	if !env.Actions.Interact(ctx, site.Target(), world.ActionOpen) {
		return h.fail(substate.BankIdle, "bank interaction failed")
	}
	if !env.Actions.WaitUntil(ctx, panelVisible(ctx, env, world.PanelBank, true), opts.Timing.ActionTimeout) {
		return h.fail(substate.BankIdle, "bank panel did not open")
	}
	h.move(substate.BankDepositing, "bank open")
	return progressed()
}

func (h *Banking) deposit(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()

	inv, ok := inventory(ctx, env)
	if !ok {
		return waiting("inventory unavailable")
	}
	keep := make(map[world.ItemID]bool, 4)
	for _, id := range opts.KeepList() {
		keep[id] = true
	}
	for id, n := range inv {
		if keep[id] || n <= 0 {
			continue
		}
		target := world.Target{Kind: world.TargetInventoryItem, Item: id, Quantity: n}
		if !env.Actions.Interact(ctx, target, world.ActionDeposit) {
			return h.fail(substate.BankDepositing, fmt.Sprintf("deposit of item %d failed", id))
		}
		logging.Debug().Add(logging.Task(h.kind.String())).Add(logging.Item(int(id), n)).Msg("deposited")
	}

	if res, ok := h.recoverKept(ctx, env); !ok {
		return res
	}
	h.move(substate.BankWithdrawing, "deposited")
	return progressed()
}

// recoverKept re-withdraws the tool and container when a deposit swept them
// into the bank. It runs after every deposit.
func (h *Banking) recoverKept(ctx context.Context, env *Env) (Result, bool) {
	opts := env.Session.Options()

	must := []world.ItemID{opts.Tool}
	if opts.ExtendedCarry {
		must = append(must, opts.Container)
	}
	inv, ok := inventory(ctx, env, must...)
	if !ok {
		return waiting("inventory unavailable"), false
	}

	for _, id := range must {
		if inv.Has(id) {
			continue
		}
		stock, ok := bank(ctx, env, id)
		if !ok {
			return waiting("bank unavailable"), false
		}
		if !stock.Has(id) {
			reason := fmt.Sprintf("mandatory item %d missing from inventory and bank", id)
			logging.Error().Add(logging.Task(h.kind.String())).Add(logging.Reason(reason)).Msg("fatal precondition")
			return fatal(reason), false
		}
		logging.Warn().Add(logging.Task(h.kind.String())).Add(logging.Item(int(id), 0)).Msg("kept item deposited, withdrawing it again")
		target := world.Target{Kind: world.TargetBankItem, Item: id, Quantity: 1}
		if !env.Actions.Interact(ctx, target, world.ActionWithdraw) ||
			!env.Actions.WaitUntil(ctx, countReaches(ctx, env, id, 1), opts.Timing.ActionTimeout) {
			return h.fail(substate.BankDepositing, fmt.Sprintf("re-withdraw of item %d failed", id)), false
		}
	}
	return Result{}, true
}

func (h *Banking) withdraw(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()

	inv, ok := inventory(ctx, env)
	if !ok {
		return waiting("inventory unavailable")
	}
	stock, ok := bank(ctx, env, opts.Material, opts.Container)
	if !ok {
		return waiting("bank unavailable")
	}

	material := inv.Get(opts.Material)
	output := inv.Get(opts.Output)
	need := task.Shortfall(output, opts.OutputTarget, opts.MaterialReserve) - material

	if need > 0 {
		if material == 0 && stock.Get(opts.Material) == 0 {
			reason := fmt.Sprintf("material %d missing from inventory and bank", opts.Material)
			logging.Error().Add(logging.Task(h.kind.String())).Add(logging.Reason(reason)).Msg("fatal precondition")
			return fatal(reason)
		}
		free := max(0, opts.InventoryCapacity-inv.Total())
		amount := min(need, free, stock.Get(opts.Material))
		if amount > 0 {
			target := world.Target{Kind: world.TargetBankItem, Item: opts.Material, Quantity: amount}
			if !env.Actions.Interact(ctx, target, world.ActionWithdraw) {
				return h.fail(substate.BankWithdrawing, "withdraw failed")
			}
			if !env.Actions.WaitUntil(ctx, countReaches(ctx, env, opts.Material, material+amount), opts.Timing.ActionTimeout) {
				return h.fail(substate.BankWithdrawing, "withdrawn material did not arrive")
			}
			logging.Debug().Add(logging.Task(h.kind.String())).Add(logging.Item(int(opts.Material), amount)).Msg("withdrew")
		}
	}

	if opts.ExtendedCarry && !env.Session.Loop().ContainerFilled {
		if !inv.Has(opts.Container) && !stock.Has(opts.Container) {
			return fatal(fmt.Sprintf("container %d missing from inventory and bank", opts.Container))
		}
		if !env.Actions.Interact(ctx, itemTarget(opts.Container), world.ActionFill) {
			return h.fail(substate.BankWithdrawing, "container fill failed")
		}
		env.Session.MarkContainerFilled()
	}

	if output < opts.OutputTarget {
		h.move(substate.BankFletching, "below output target")
	} else {
		h.move(substate.BankVerifying, "output target met")
	}
	return progressed()
}

func (h *Banking) fletch(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()

	res := fletch(ctx, env, opts.OutputTarget, opts.Timing.FletchTimeout)
	switch {
	case res.unavailable:
		return waiting("inventory unavailable")
	case res.reached || res.spent:
		h.move(substate.BankVerifying, "fletching finished")
		return progressed()
	case res.gained == 0:
		return h.fail(substate.BankFletching, "fletching made no progress")
	default:
		return progressed()
	}
}

func (h *Banking) verify(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()

	inv, ok := inventory(ctx, env, opts.Tracked()...)
	if !ok {
		return waiting("inventory unavailable")
	}
	req := policy.RequirementFor(task.TypeBank, opts)
	if policy.Satisfied(req, opts, env.Session.Loop(), inv) {
		return h.done()
	}
	return h.fail(substate.BankWithdrawing, "bank requirement not met after verify")
}
