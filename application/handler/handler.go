// Package handler implements the per-task sub-state handlers dispatched by
// the orchestrator. Each handler owns one statekit machine and advances it by
// at most one sub-state per call.
package handler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

// Status is the outcome of one handler call.
type Status int

// Handler statuses.
const (
	// StatusPending means the task is not done yet; dispatch it again.
	StatusPending Status = iota
	// StatusCompleted means the task finished; the cursor may advance.
	StatusCompleted
	// StatusFatal means a precondition can never be met; end the session.
	StatusFatal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFatal:
		return "fatal"
	default:
		return "pending"
	}
}

// Result is what a handler reports back to the orchestrator.
type Result struct {
	Status Status
	// Reason describes failures and terminal conditions.
	Reason string
	// Waiting is set when the handler did nothing but wait on the world.
	Waiting bool
	// Rebank asks the orchestrator to restart the lap at the bank step, used
	// when an item the task needs was left in the bank.
	Rebank bool
}

// Completed reports whether the task finished.
func (r Result) Completed() bool { return r.Status == StatusCompleted }

// Fatal reports whether the session must end.
func (r Result) Fatal() bool { return r.Status == StatusFatal }

func progressed() Result { return Result{Status: StatusPending} }

func waiting(reason string) Result {
	return Result{Status: StatusPending, Reason: reason, Waiting: true}
}

func failed(reason string) Result {
	return Result{Status: StatusPending, Reason: reason}
}

func rebank(reason string) Result {
	return Result{Status: StatusPending, Reason: reason, Rebank: true}
}

func completed() Result { return Result{Status: StatusCompleted} }

func fatal(reason string) Result {
	return Result{Status: StatusFatal, Reason: reason}
}

// Env is everything a handler may use during one call. It is built fresh by
// the orchestrator for every tick and must not be retained.
type Env struct {
	Session  *session.Context
	Snapshot world.Snapshot
	World    world.WorldQuery
	Actions  world.ActionExecutor
	Scanner  world.TokenScanner
	Clock    world.Clock
	Tokens   *world.TokenSet
	Rand     *rand.Rand
}

// Handler runs one task family.
type Handler interface {
	// Type returns the task family the handler serves.
	Type() task.Type

	// Run advances the handler by one step.
	Run(ctx context.Context, env *Env) Result

	// Reset returns the handler to its initial sub-state and refills its
	// retry budget.
	Reset()

	// SubState returns the current sub-state name.
	SubState() string

	// Interruptible reports whether the host may pause the session now.
	Interruptible() bool
}

// inventory reads fresh counts for ids from the inventory.
func inventory(ctx context.Context, env *Env, ids ...world.ItemID) (world.Counts, bool) {
	if len(ids) == 0 {
		ids = nil
	}
	c, ok := env.World.ContainerSnapshot(ctx, world.ContainerInventory, ids)
	if ok && c == nil {
		c = world.Counts{}
	}
	return c, ok
}

// bank reads fresh counts for ids from the bank.
func bank(ctx context.Context, env *Env, ids ...world.ItemID) (world.Counts, bool) {
	c, ok := env.World.ContainerSnapshot(ctx, world.ContainerBank, ids)
	if ok && c == nil {
		c = world.Counts{}
	}
	return c, ok
}

// misplaced decides what a missing required item means. Absent from both the
// inventory and the bank it is fatal; kept in the bank it sends the lap back
// to the bank step, which withdraws it.
func misplaced(ctx context.Context, env *Env, what string, id world.ItemID) Result {
	b, ok := bank(ctx, env, id)
	if !ok {
		return waiting("bank unavailable")
	}
	if !b.Has(id) {
		return fatal(fmt.Sprintf("%s %d missing from inventory and bank", what, id))
	}
	return rebank(fmt.Sprintf("%s %d left in the bank", what, id))
}

// countReaches returns a predicate that holds once id reaches n.
func countReaches(ctx context.Context, env *Env, id world.ItemID, n int) world.Predicate {
	return func() bool {
		c, ok := inventory(ctx, env, id)
		return ok && c.Get(id) >= n
	}
}

// panelVisible returns a predicate that holds while kind is visible.
func panelVisible(ctx context.Context, env *Env, kind world.PanelKind, want bool) world.Predicate {
	return func() bool {
		return env.World.UIPanelState(ctx, kind).Visible == want
	}
}

func itemTarget(id world.ItemID) world.Target {
	return world.Target{Kind: world.TargetInventoryItem, Item: id}
}

// machine couples a sub-state machine with its retry budget.
type machine[S ~string] struct {
	kind   task.Type
	m      *statemachine.Machine[S]
	budget *policy.Budget
}

// move takes a transition and logs it. A rejected transition leaves the
// machine where it was.
func (h *machine[S]) move(to S, reason string) bool {
	from := h.m.State()
	if err := h.m.Transition(to, reason); err != nil {
		logging.Warn().
			Add(logging.Task(h.kind.String())).
			Add(logging.Transition(string(from), string(to))).
			Add(logging.ErrorField(err)).
			Msg("sub-state transition rejected")
		return false
	}
	logging.Debug().
		Add(logging.Task(h.kind.String())).
		Add(logging.Transition(string(from), string(to))).
		Add(logging.Reason(reason)).
		Msg("sub-state transition")
	return true
}

// fail records a failed attempt. While budget remains it takes the retry
// edge to retryTo; once the budget is spent the machine resets.
func (h *machine[S]) fail(retryTo S, reason string) Result {
	_ = h.budget.Consume(policy.BudgetAttempts, 1)
	if h.budget.IsExhausted() {
		logging.Warn().
			Add(logging.Task(h.kind.String())).
			Add(logging.SubState(string(h.m.State()))).
			Add(logging.Reason(reason)).
			Msg("retry budget exhausted, resetting")
		h.reset()
		return failed("retry budget exhausted: " + reason)
	}
	logging.Debug().
		Add(logging.Task(h.kind.String())).
		Add(logging.Budget(policy.BudgetAttempts, h.budget.Remaining(policy.BudgetAttempts))).
		Add(logging.Reason(reason)).
		Msg("attempt failed")
	if retryTo != h.m.State() {
		h.move(retryTo, reason)
	}
	return failed(reason)
}

// done resets the machine and reports completion.
func (h *machine[S]) done() Result {
	h.reset()
	return completed()
}

func (h *machine[S]) reset() {
	h.budget.Reset()
	if err := h.m.Reset(); err != nil {
		logging.Error().Add(logging.Task(h.kind.String())).Add(logging.ErrorField(err)).Msg("sub-state reset failed")
	}
}

func (h *machine[S]) state() S { return h.m.State() }

func newBudget(maxRetries int) *policy.Budget {
	return policy.RetryBudget(max(1, maxRetries))
}

// pace returns a human-like pause drawn from [lo, hi].
func pace(r *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	if r == nil {
		return lo + rand.N(hi-lo+1)
	}
	return lo + time.Duration(r.Int64N(int64(hi-lo)+1))
}
