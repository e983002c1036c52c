package handler

import (
	"context"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// fletchResult reports what one fletching run achieved.
type fletchResult struct {
	gained  int
	output  int
	reached bool
	// spent is set when material ran out before the target.
	spent bool
	// unavailable is set when the inventory could not be read at all.
	unavailable bool
}

// fletch uses the tool on one unit of material repeatedly until the output count
// reaches target, the material runs out, an attempt produces nothing within
// the action timeout, or the overall timeout elapses.
func fletch(ctx context.Context, env *Env, target int, timeout time.Duration) fletchResult {
	opts := env.Session.Options()
	deadline := env.Clock.Now().Add(timeout)

	inv, ok := inventory(ctx, env, opts.Material, opts.Output)
	if !ok {
		return fletchResult{unavailable: true}
	}
	start := inv.Get(opts.Output)
	res := fletchResult{output: start}

	for res.output < target && ctx.Err() == nil {
		if inv.Get(opts.Material) == 0 {
			res.spent = true
			break
		}
		if !env.Clock.Now().Before(deadline) {
			break
		}
		if !env.Actions.Interact(ctx, itemTarget(opts.Tool), world.ActionUse) {
			break
		}
		one := world.Target{Kind: world.TargetInventoryItem, Item: opts.Material, Quantity: 1}
		if !env.Actions.Interact(ctx, one, world.ActionUse) {
			break
		}
		if !env.Actions.WaitUntil(ctx, countReaches(ctx, env, opts.Output, res.output+1), opts.Timing.ActionTimeout) {
			break
		}
		if inv, ok = inventory(ctx, env, opts.Material, opts.Output); !ok {
			break
		}
		res.output = inv.Get(opts.Output)
	}

	res.gained = res.output - start
	res.reached = res.output >= target
	return res
}
