// Package inspector exports the handler sub-state machines as diagrams.
package inspector

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/substate"
	"github.com/felixgeelhaar/taskloop/infrastructure/statemachine"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an export format.
type Format string

// Supported formats.
const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatJSON    Format = "json"
)

// StateExport describes one sub-state.
type StateExport struct {
	Name          string `json:"name"`
	Initial       bool   `json:"initial,omitempty"`
	Interruptible bool   `json:"interruptible"`
}

// TransitionExport describes one allowed transition. Returns to the initial
// state are always allowed and are not listed.
type TransitionExport struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MachineExport is the exported form of one handler's transition table.
type MachineExport struct {
	ID          string             `json:"id"`
	Initial     string             `json:"initial"`
	States      []StateExport      `json:"states"`
	Transitions []TransitionExport `json:"transitions"`
}

// Export converts a transition table. A nil interruptible treats every
// state as interruptible.
func Export[S ~string](id string, t *policy.Transitions[S], interruptible func(S) bool) MachineExport {
	m := MachineExport{ID: id, Initial: string(t.Initial())}
	for _, s := range t.States() {
		m.States = append(m.States, StateExport{
			Name:          string(s),
			Initial:       s == t.Initial(),
			Interruptible: interruptible == nil || interruptible(s),
		})
		for _, to := range t.AllowedTransitions(s) {
			if to == t.Initial() {
				continue
			}
			m.Transitions = append(m.Transitions, TransitionExport{From: string(s), To: string(to)})
		}
	}
	return m
}

// Machines exports the four handler machines in plan order.
func Machines() []MachineExport {
	return []MachineExport{
		Export(statemachine.BankingMachineID, substate.BankTransitions(), nil),
		Export(statemachine.ProductionMachineID, substate.ProduceTransitions(), nil),
		Export(statemachine.ContainerMachineID, substate.ContainerTransitions(), nil),
		Export(statemachine.DeliveryMachineID, substate.DeliverTransitions(), substate.Deliver.Interruptible),
	}
}

// Formatter renders machine exports.
type Formatter interface {
	Format(machines []MachineExport) ([]byte, error)
	FormatType() Format
}

// NewFormatter returns the formatter for f.
func NewFormatter(f Format) (Formatter, error) {
	switch f {
	case FormatMermaid:
		return NewMermaidFormatter(), nil
	case FormatDOT:
		return NewDOTFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(true), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
