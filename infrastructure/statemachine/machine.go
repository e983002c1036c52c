// Package statemachine provides the statekit integration for handler
// sub-state machines.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/substate"
)

// Context carries handler bookkeeping through a machine.
type Context struct {
	// Machine is the machine ID.
	Machine string
	// Budget bounds the retry edges; nil means unlimited.
	Budget *policy.Budget
	// Transitions counts the transitions taken since the machine started.
	Transitions int
	// LastReason is the reason attached to the most recent transition.
	LastReason string
}

// State IDs as StateID type for statekit.
const (
	bankIdle        = statekit.StateID(substate.BankIdle)
	bankDepositing  = statekit.StateID(substate.BankDepositing)
	bankWithdrawing = statekit.StateID(substate.BankWithdrawing)
	bankFletching   = statekit.StateID(substate.BankFletching)
	bankVerifying   = statekit.StateID(substate.BankVerifying)

	produceSelectTool     = statekit.StateID(substate.ProduceSelectTool)
	produceSelectMaterial = statekit.StateID(substate.ProduceSelectMaterial)
	produceAwaitDialogue  = statekit.StateID(substate.ProduceAwaitDialogue)
	produceSelectOutput   = statekit.StateID(substate.ProduceSelectOutput)
	produceWaitForCount   = statekit.StateID(substate.ProduceWaitForCount)

	containerNotEmptied     = statekit.StateID(substate.ContainerNotEmptied)
	containerEmptying       = statekit.StateID(substate.ContainerEmptying)
	containerAwaitingFletch = statekit.StateID(substate.ContainerEmptiedAwaitingFletch)
	containerFletching      = statekit.StateID(substate.ContainerFletching)
	containerDone           = statekit.StateID(substate.ContainerDone)

	deliverIdle            = statekit.StateID(substate.DeliverIdle)
	deliverTravel          = statekit.StateID(substate.DeliverTravel)
	deliverScanTokens      = statekit.StateID(substate.DeliverScanTokens)
	deliverAwaitPuzzle     = statekit.StateID(substate.DeliverAwaitPuzzle)
	deliverSelectTokens    = statekit.StateID(substate.DeliverSelectTokens)
	deliverAwaitCompletion = statekit.StateID(substate.DeliverAwaitCompletion)
	deliverClaimBonus      = statekit.StateID(substate.DeliverClaimBonus)
)

// Machine IDs.
const (
	BankingMachineID    = "banking"
	ProductionMachineID = "production"
	ContainerMachineID  = "container"
	DeliveryMachineID   = "delivery"
)

// NewBankingMachine creates the banking statechart.
func NewBankingMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](BankingMachineID).
		WithInitial(bankIdle).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("budgetAvailable", guardBudgetAvailable).
		State(bankIdle).
			OnEntry("recordTransition").
			On(EventFor(bankDepositing)).Target(bankDepositing).Do("recordTransition").
			Done().
		State(bankDepositing).
			On(EventFor(bankWithdrawing)).Target(bankWithdrawing).Do("recordTransition").
			Done().
		State(bankWithdrawing).
			On(EventFor(bankFletching)).Target(bankFletching).Do("recordTransition").
			On(EventFor(bankVerifying)).Target(bankVerifying).Do("recordTransition").
			Done().
		State(bankFletching).
			On(EventFor(bankVerifying)).Target(bankVerifying).Do("recordTransition").
			Done().
		State(bankVerifying).
			On(EventFor(bankWithdrawing)).Target(bankWithdrawing).Guard("budgetAvailable").Do("recordTransition").
			Done().
		Build()
}

// NewProductionMachine creates the production statechart.
func NewProductionMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](ProductionMachineID).
		WithInitial(produceSelectTool).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		State(produceSelectTool).
			On(EventFor(produceSelectMaterial)).Target(produceSelectMaterial).Do("recordTransition").
			Done().
		State(produceSelectMaterial).
			On(EventFor(produceAwaitDialogue)).Target(produceAwaitDialogue).Do("recordTransition").
			Done().
		State(produceAwaitDialogue).
			On(EventFor(produceSelectOutput)).Target(produceSelectOutput).Do("recordTransition").
			Done().
		State(produceSelectOutput).
			On(EventFor(produceWaitForCount)).Target(produceWaitForCount).Do("recordTransition").
			Done().
		State(produceWaitForCount).
			OnEntry("recordTransition").
			Done().
		Build()
}

// NewContainerMachine creates the container refill statechart.
func NewContainerMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](ContainerMachineID).
		WithInitial(containerNotEmptied).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		State(containerNotEmptied).
			On(EventFor(containerEmptying)).Target(containerEmptying).Do("recordTransition").
			Done().
		State(containerEmptying).
			On(EventFor(containerAwaitingFletch)).Target(containerAwaitingFletch).Do("recordTransition").
			Done().
		State(containerAwaitingFletch).
			On(EventFor(containerFletching)).Target(containerFletching).Do("recordTransition").
			On(EventFor(containerDone)).Target(containerDone).Do("recordTransition").
			Done().
		State(containerFletching).
			On(EventFor(containerDone)).Target(containerDone).Do("recordTransition").
			Done().
		State(containerDone).
			Final().
			OnEntry("recordTransition").
			Done().
		Build()
}

// NewDeliveryMachine creates the delivery statechart.
func NewDeliveryMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](DeliveryMachineID).
		WithInitial(deliverIdle).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("budgetAvailable", guardBudgetAvailable).
		State(deliverIdle).
			On(EventFor(deliverTravel)).Target(deliverTravel).Do("recordTransition").
			Done().
		State(deliverTravel).
			On(EventFor(deliverScanTokens)).Target(deliverScanTokens).Do("recordTransition").
			Done().
		State(deliverScanTokens).
			On(EventFor(deliverTravel)).Target(deliverTravel).Do("recordTransition").
			On(EventFor(deliverAwaitPuzzle)).Target(deliverAwaitPuzzle).Do("recordTransition").
			Done().
		State(deliverAwaitPuzzle).
			On(EventFor(deliverScanTokens)).Target(deliverScanTokens).Guard("budgetAvailable").Do("recordTransition").
			On(EventFor(deliverSelectTokens)).Target(deliverSelectTokens).Do("recordTransition").
			Done().
		State(deliverSelectTokens).
			On(EventFor(deliverAwaitPuzzle)).Target(deliverAwaitPuzzle).Guard("budgetAvailable").Do("recordTransition").
			On(EventFor(deliverAwaitCompletion)).Target(deliverAwaitCompletion).Do("recordTransition").
			Done().
		State(deliverAwaitCompletion).
			On(EventFor(deliverClaimBonus)).Target(deliverClaimBonus).Do("recordTransition").
			Done().
		State(deliverClaimBonus).
			OnEntry("recordTransition").
			Done().
		Build()
}

// EventFor returns the event that moves a machine into state.
func EventFor(state statekit.StateID) statekit.EventType {
	return statekit.EventType("TO_" + string(state))
}
