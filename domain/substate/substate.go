// Package substate defines the explicit sub-state enums of every handler and
// the transition tables that constrain them.
//
// Every table allows a return to the initial state from anywhere. That edge is
// how a handler resets after completing, after exhausting its retry budget,
// or when the orchestrator moves past its task.
package substate

import "github.com/felixgeelhaar/taskloop/domain/policy"

// Bank is the banking handler's sub-state.
type Bank string

// Banking sub-states.
const (
	BankIdle        Bank = "idle"
	BankDepositing  Bank = "depositing"
	BankWithdrawing Bank = "withdrawing"
	BankFletching   Bank = "fletching"
	BankVerifying   Bank = "verifying"
)

// BankTransitions returns the banking transition table.
func BankTransitions() *policy.Transitions[Bank] {
	return policy.NewTransitions(BankIdle, policy.TransitionRules[Bank]{
		BankIdle:        {BankDepositing},
		BankDepositing:  {BankWithdrawing},
		BankWithdrawing: {BankFletching, BankVerifying},
		BankFletching:   {BankVerifying},
		BankVerifying:   {BankWithdrawing},
	})
}

// Produce is the production handler's sub-state.
type Produce string

// Production sub-states.
const (
	ProduceSelectTool     Produce = "select_tool"
	ProduceSelectMaterial Produce = "select_material"
	ProduceAwaitDialogue  Produce = "await_dialogue"
	ProduceSelectOutput   Produce = "select_output"
	ProduceWaitForCount   Produce = "wait_for_count"
)

// ProduceTransitions returns the production transition table.
func ProduceTransitions() *policy.Transitions[Produce] {
	return policy.NewTransitions(ProduceSelectTool, policy.TransitionRules[Produce]{
		ProduceSelectTool:     {ProduceSelectMaterial},
		ProduceSelectMaterial: {ProduceAwaitDialogue},
		ProduceAwaitDialogue:  {ProduceSelectOutput},
		ProduceSelectOutput:   {ProduceWaitForCount},
	})
}

// Container is the container refill handler's sub-state.
type Container string

// Container refill sub-states.
const (
	ContainerNotEmptied            Container = "not_emptied"
	ContainerEmptying              Container = "emptying"
	ContainerEmptiedAwaitingFletch Container = "emptied_awaiting_fletch"
	ContainerFletching             Container = "fletching"
	ContainerDone                  Container = "done"
)

// ContainerTransitions returns the container refill transition table.
func ContainerTransitions() *policy.Transitions[Container] {
	return policy.NewTransitions(ContainerNotEmptied, policy.TransitionRules[Container]{
		ContainerNotEmptied:            {ContainerEmptying},
		ContainerEmptying:              {ContainerEmptiedAwaitingFletch},
		ContainerEmptiedAwaitingFletch: {ContainerFletching, ContainerDone},
		ContainerFletching:             {ContainerDone},
	})
}

// Deliver is the delivery handler's sub-state.
type Deliver string

// Delivery sub-states.
const (
	DeliverIdle            Deliver = "idle"
	DeliverTravel          Deliver = "travel"
	DeliverScanTokens      Deliver = "scan_tokens"
	DeliverAwaitPuzzle     Deliver = "await_puzzle"
	DeliverSelectTokens    Deliver = "select_tokens"
	DeliverAwaitCompletion Deliver = "await_completion"
	DeliverClaimBonus      Deliver = "claim_bonus"
)

// DeliverTransitions returns the delivery transition table.
func DeliverTransitions() *policy.Transitions[Deliver] {
	return policy.NewTransitions(DeliverIdle, policy.TransitionRules[Deliver]{
		DeliverIdle:            {DeliverTravel},
		DeliverTravel:          {DeliverScanTokens},
		DeliverScanTokens:      {DeliverTravel, DeliverAwaitPuzzle},
		DeliverAwaitPuzzle:     {DeliverScanTokens, DeliverSelectTokens},
		DeliverSelectTokens:    {DeliverAwaitPuzzle, DeliverAwaitCompletion},
		DeliverAwaitCompletion: {DeliverClaimBonus},
	})
}

// Interruptible reports whether the host may pause the session while the
// delivery handler is in s. The puzzle steps span several taps that must not
// be split.
func (s Deliver) Interruptible() bool {
	switch s {
	case DeliverAwaitPuzzle, DeliverSelectTokens:
		return false
	default:
		return true
	}
}
