package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/substate"
)

// Machine wraps a statekit interpreter with a typed sub-state and a
// transition table that is consulted before any event is sent.
type Machine[S ~string] struct {
	config *statekit.MachineConfig[*Context]
	interp *statekit.Interpreter[*Context]
	ctx    *Context
	rules  *policy.Transitions[S]
}

// NewMachine starts a machine built from config, guarded by rules.
func NewMachine[S ~string](config *statekit.MachineConfig[*Context], rules *policy.Transitions[S], id string, budget *policy.Budget) *Machine[S] {
	m := &Machine[S]{
		config: config,
		ctx:    &Context{Machine: id, Budget: budget},
		rules:  rules,
	}
	m.start()
	return m
}

func (m *Machine[S]) start() {
	interp := statekit.NewInterpreter(m.config)
	interp.UpdateContext(func(c **Context) {
		*c = m.ctx
	})
	interp.Start()
	m.interp = interp
}

// State returns the current sub-state.
func (m *Machine[S]) State() S {
	return S(m.interp.State().Value)
}

// Transition moves the machine to the target sub-state.
func (m *Machine[S]) Transition(to S, reason string) error {
	from := m.State()
	if from == to {
		return nil
	}
	if !m.rules.CanTransition(from, to) {
		return fmt.Errorf("%w: %s from %s to %s", policy.ErrTransitionNotAllowed, m.ctx.Machine, from, to)
	}
	if to == m.rules.Initial() {
		m.ctx.LastReason = reason
		return m.Reset()
	}

	// Send panics on events the machine does not know; the table check
	// above keeps us on declared edges.
	m.interp.Send(statekit.Event{
		Type:    EventFor(statekit.StateID(to)),
		Payload: TransitionPayload{From: string(from), To: string(to), Reason: reason},
	})

	if got := m.State(); got != to {
		return fmt.Errorf("%w: %s from %s to %s rejected by guard", policy.ErrTransitionNotAllowed, m.ctx.Machine, from, to)
	}
	return nil
}

// Reset returns the machine to its initial sub-state.
func (m *Machine[S]) Reset() error {
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    m.ctx.Machine,
		CurrentState: statekit.StateID(m.rules.Initial()),
		Context:      m.ctx,
		CreatedAt:    time.Now(),
	}
	if err := m.interp.Restore(snapshot); err != nil {
		m.interp.Stop()
		m.start()
	}
	if m.State() != m.rules.Initial() {
		return fmt.Errorf("failed to reset %s machine", m.ctx.Machine)
	}
	return nil
}

// Done reports whether the machine reached a final state.
func (m *Machine[S]) Done() bool {
	return m.interp.Done()
}

// Context returns the machine context.
func (m *Machine[S]) Context() *Context {
	return m.ctx
}

// Stop stops the interpreter.
func (m *Machine[S]) Stop() {
	m.interp.Stop()
}

// Banking creates a running banking machine.
func Banking(budget *policy.Budget) (*Machine[substate.Bank], error) {
	cfg, err := NewBankingMachine()
	if err != nil {
		return nil, fmt.Errorf("build banking machine: %w", err)
	}
	return NewMachine(cfg, substate.BankTransitions(), BankingMachineID, budget), nil
}

// Production creates a running production machine.
func Production() (*Machine[substate.Produce], error) {
	cfg, err := NewProductionMachine()
	if err != nil {
		return nil, fmt.Errorf("build production machine: %w", err)
	}
	return NewMachine(cfg, substate.ProduceTransitions(), ProductionMachineID, nil), nil
}

// ContainerRefill creates a running container refill machine.
func ContainerRefill() (*Machine[substate.Container], error) {
	cfg, err := NewContainerMachine()
	if err != nil {
		return nil, fmt.Errorf("build container machine: %w", err)
	}
	return NewMachine(cfg, substate.ContainerTransitions(), ContainerMachineID, nil), nil
}

// Delivery creates a running delivery machine.
func Delivery(budget *policy.Budget) (*Machine[substate.Deliver], error) {
	cfg, err := NewDeliveryMachine()
	if err != nil {
		return nil, fmt.Errorf("build delivery machine: %w", err)
	}
	return NewMachine(cfg, substate.DeliverTransitions(), DeliveryMachineID, budget), nil
}
