package handler

import (
	"context"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/substate"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

var (
	puzzleConfirm = world.Target{Kind: world.TargetPuzzleOption, Name: "confirm"}
	offeringClaim = world.Target{Kind: world.TargetObject, Name: "offering"}
)

// Delivery travels to the lap's site, solves the token puzzle and waits for
// the completion phrase. A due offering is claimed right after a successful
// delivery.
type Delivery struct {
	machine[substate.Deliver]

	site     session.Site
	selected int
	messages *messageWindow
}

// NewDelivery creates a delivery handler.
func NewDelivery(maxRetries, messageWindow int) (*Delivery, error) {
	budget := newBudget(maxRetries)
	m, err := statemachine.Delivery(budget)
	if err != nil {
		return nil, err
	}
	return &Delivery{
		machine:  machine[substate.Deliver]{kind: task.TypeDeliver, m: m, budget: budget},
		messages: newMessageWindow(messageWindow),
	}, nil
}

// Type returns task.TypeDeliver.
func (h *Delivery) Type() task.Type { return task.TypeDeliver }

// Reset returns the handler to Idle.
func (h *Delivery) Reset() {
	h.reset()
	h.site = session.Site{}
	h.selected = 0
	h.messages.reset(nil)
}

// SubState returns the current sub-state name.
func (h *Delivery) SubState() string { return string(h.state()) }

// Interruptible is false while the puzzle is open.
func (h *Delivery) Interruptible() bool { return h.state().Interruptible() }

// Run advances the delivery by one step.
func (h *Delivery) Run(ctx context.Context, env *Env) Result {
	switch h.state() {
	case substate.DeliverIdle:
		site, ok := env.Session.DeliverySite()
		if !ok {
			return fatal("no delivery sites configured")
		}
		h.site = site
		h.move(substate.DeliverTravel, "site "+site.Name)
		return progressed()
	case substate.DeliverTravel:
		return h.travel(ctx, env)
	case substate.DeliverScanTokens:
		return h.scan(ctx, env)
	case substate.DeliverAwaitPuzzle:
		return h.awaitPuzzle(ctx, env)
	case substate.DeliverSelectTokens:
		return h.selectNext(ctx, env)
	case substate.DeliverAwaitCompletion:
		return h.awaitCompletion(ctx, env)
	case substate.DeliverClaimBonus:
		return h.claim(ctx, env)
	default:
		h.Reset()
		return failed("unknown delivery sub-state")
	}
}

func (h *Delivery) inSite(p world.Position) bool {
	return h.site.Area.IsZero() || h.site.Area.Contains(p)
}

func (h *Delivery) travel(ctx context.Context, env *Env) Result {
	if !env.Snapshot.HasPosition {
		return waiting("position unavailable")
	}
	if h.inSite(env.Snapshot.Position) {
		env.Tokens.Clear()
		logging.Debug().Add(logging.Task(h.kind.String())).Add(logging.Site(h.site.Name)).Msg("arrived at site")
		h.move(substate.DeliverScanTokens, "arrived")
		return progressed()
	}

	arrived := func() bool {
		p, ok := env.World.Position(ctx)
		return ok && h.inSite(p)
	}
	if !env.Actions.MoveTo(ctx, h.site.Entry, arrived, env.Session.Options().Timing.TravelTimeout) {
		return h.fail(substate.DeliverTravel, "travel to "+h.site.Name+" failed")
	}
	return progressed()
}

func (h *Delivery) scan(ctx context.Context, env *Env) Result {
	if env.Snapshot.HasPosition && !h.inSite(env.Snapshot.Position) {
		h.move(substate.DeliverTravel, "left site area")
		return progressed()
	}

	for _, tok := range env.Scanner.ScanTokens(ctx) {
		if env.Tokens.Add(tok) {
			logging.Debug().Add(logging.Task(h.kind.String())).Add(logging.Token(tok.String())).Msg("token discovered")
		}
	}
	if !env.Tokens.Full() {
		return waiting("tokens not yet discovered")
	}

	if !env.Actions.Interact(ctx, h.site.Target(), world.ActionUse) {
		return h.fail(substate.DeliverScanTokens, "could not open puzzle")
	}
	h.move(substate.DeliverAwaitPuzzle, "tokens known")
	return progressed()
}

func (h *Delivery) awaitPuzzle(ctx context.Context, env *Env) Result {
	timeout := env.Session.Options().Timing.ActionTimeout
	if !env.Actions.WaitUntil(ctx, panelVisible(ctx, env, world.PanelPuzzle, true), timeout) {
		return h.fail(substate.DeliverScanTokens, "puzzle dialogue did not appear")
	}
	h.selected = 0
	h.move(substate.DeliverSelectTokens, "puzzle open")
	return progressed()
}

// selectNext selects one token per call, in discovery order, and confirms
// once all are selected.
func (h *Delivery) selectNext(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()
	tokens := env.Tokens.Tokens()

	if len(tokens) < world.MaxTokens {
		return h.fail(substate.DeliverAwaitPuzzle, "token set incomplete")
	}

	if h.selected < len(tokens) {
		if h.selected > 0 {
			env.Clock.Sleep(ctx, pace(env.Rand, opts.Timing.PaceMin, opts.Timing.PaceMax))
		}
		tok := tokens[h.selected]
		option := world.Target{Kind: world.TargetPuzzleOption, Name: tok.String()}
		if !env.Actions.Interact(ctx, option, world.ActionSelect) {
			return h.fail(substate.DeliverAwaitPuzzle, "selecting "+tok.String()+" failed")
		}
		marked := func() bool {
			return env.World.UIPanelState(ctx, world.PanelPuzzle).HasLine(tok.String())
		}
		if !env.Actions.WaitUntil(ctx, marked, opts.Timing.ActionTimeout) {
			return h.fail(substate.DeliverAwaitPuzzle, "selection of "+tok.String()+" not confirmed")
		}
		h.selected++
		return progressed()
	}

	h.messages.reset(env.World.UIPanelState(ctx, world.PanelStatus).Lines)
	if !env.Actions.Interact(ctx, puzzleConfirm, world.ActionConfirm) {
		return h.fail(substate.DeliverAwaitPuzzle, "puzzle confirm failed")
	}
	h.move(substate.DeliverAwaitCompletion, "puzzle confirmed")
	return progressed()
}

func (h *Delivery) awaitCompletion(ctx context.Context, env *Env) Result {
	opts := env.Session.Options()

	done := func() bool {
		h.messages.observe(env.World.UIPanelState(ctx, world.PanelStatus).Lines)
		return h.messages.contains(opts.CompletionPhrase)
	}
	if !env.Actions.WaitUntil(ctx, done, opts.Timing.CompletionTimeout) {
		return h.fail(substate.DeliverAwaitCompletion, "completion phrase not seen")
	}

	env.Session.RecordDelivery()
	env.Tokens.Clear()
	logging.Info().
		Add(logging.Task(h.kind.String())).
		Add(logging.Site(h.site.Name)).
		Add(logging.Int("deliveries", env.Session.Deliveries())).
		Msg("delivery completed")

	if opts.ClaimOfferings && env.Session.Offering().ShouldCollect() {
		h.move(substate.DeliverClaimBonus, "offering due")
		return progressed()
	}
	return h.done()
}

// claim never fails the delivery; a missed offering stays due.
func (h *Delivery) claim(ctx context.Context, env *Env) Result {
	if env.Actions.Interact(ctx, offeringClaim, world.ActionClaim) {
		env.Session.Offering().MarkCollected()
		logging.Info().Add(logging.Task(h.kind.String())).Msg("offering claimed")
	} else {
		logging.Warn().Add(logging.Task(h.kind.String())).Add(logging.Reason("claim interaction failed")).Msg("offering not claimed")
	}
	return h.done()
}
