package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// guardBudgetAvailable checks the retry budget before taking a retry edge.
// Note: In statekit, guards receive the context by value. Since our context is
// *Context, the guard receives *Context directly.
func guardBudgetAvailable(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.Budget == nil {
		return true
	}
	return !ctx.Budget.IsExhausted()
}
