package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	From   string
	To     string
	Reason string
}

// recordTransition counts transitions and keeps the last reason.
// In statekit, actions receive a pointer to the context. Since our context is
// *Context, actions receive **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	if payload, ok := event.Payload.(TransitionPayload); ok {
		c.Transitions++
		c.LastReason = payload.Reason
	}
}
