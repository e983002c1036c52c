package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/substate"
)

func TestMachinesBuild(t *testing.T) {
	t.Parallel()

	builders := map[string]func() error{
		"banking":    func() error { _, err := NewBankingMachine(); return err },
		"production": func() error { _, err := NewProductionMachine(); return err },
		"container":  func() error { _, err := NewContainerMachine(); return err },
		"delivery":   func() error { _, err := NewDeliveryMachine(); return err },
	}
	for name, build := range builders {
		if err := build(); err != nil {
			t.Errorf("%s machine build error = %v", name, err)
		}
	}
}

func TestMachine_BankingPath(t *testing.T) {
	t.Parallel()

	m, err := Banking(policy.RetryBudget(3))
	if err != nil {
		t.Fatalf("Banking() error = %v", err)
	}
	if m.State() != substate.BankIdle {
		t.Fatalf("State() = %s, want %s", m.State(), substate.BankIdle)
	}

	path := []substate.Bank{
		substate.BankDepositing,
		substate.BankWithdrawing,
		substate.BankVerifying,
		substate.BankWithdrawing,
		substate.BankVerifying,
	}
	for _, s := range path {
		if err := m.Transition(s, "test"); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
		if m.State() != s {
			t.Fatalf("State() = %s, want %s", m.State(), s)
		}
	}
	if m.Context().Transitions != len(path) {
		t.Errorf("Transitions = %d, want %d", m.Context().Transitions, len(path))
	}

	if err := m.Transition(substate.BankIdle, "done"); err != nil {
		t.Fatalf("Transition(idle) error = %v", err)
	}
	if m.State() != substate.BankIdle {
		t.Errorf("State() = %s, want %s", m.State(), substate.BankIdle)
	}
	if m.Context().LastReason != "done" {
		t.Errorf("LastReason = %q, want %q", m.Context().LastReason, "done")
	}
}

func TestMachine_RejectsUndeclaredEdge(t *testing.T) {
	t.Parallel()

	m, err := Banking(nil)
	if err != nil {
		t.Fatalf("Banking() error = %v", err)
	}
	err = m.Transition(substate.BankVerifying, "skip")
	if !errors.Is(err, policy.ErrTransitionNotAllowed) {
		t.Errorf("Transition() error = %v, want ErrTransitionNotAllowed", err)
	}
	if m.State() != substate.BankIdle {
		t.Errorf("State() = %s, want %s", m.State(), substate.BankIdle)
	}
}

func TestMachine_GuardBlocksRetryWhenBudgetExhausted(t *testing.T) {
	t.Parallel()

	budget := policy.RetryBudget(1)
	m, err := Delivery(budget)
	if err != nil {
		t.Fatalf("Delivery() error = %v", err)
	}
	for _, s := range []substate.Deliver{
		substate.DeliverTravel,
		substate.DeliverScanTokens,
		substate.DeliverAwaitPuzzle,
	} {
		if err := m.Transition(s, ""); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}

	if err := budget.Consume(policy.BudgetAttempts, 1); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	err = m.Transition(substate.DeliverScanTokens, "retry")
	if !errors.Is(err, policy.ErrTransitionNotAllowed) {
		t.Errorf("Transition() error = %v, want ErrTransitionNotAllowed", err)
	}
	if m.State() != substate.DeliverAwaitPuzzle {
		t.Errorf("State() = %s, want %s", m.State(), substate.DeliverAwaitPuzzle)
	}
}

func TestMachine_ResetFromFinal(t *testing.T) {
	t.Parallel()

	m, err := ContainerRefill()
	if err != nil {
		t.Fatalf("ContainerRefill() error = %v", err)
	}
	for _, s := range []substate.Container{
		substate.ContainerEmptying,
		substate.ContainerEmptiedAwaitingFletch,
		substate.ContainerDone,
	} {
		if err := m.Transition(s, ""); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}
	if !m.Done() {
		t.Error("Done() = false, want true")
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if m.State() != substate.ContainerNotEmptied {
		t.Errorf("State() = %s, want %s", m.State(), substate.ContainerNotEmptied)
	}
}
