package inspector

import (
	"fmt"
	"strings"
)

// MermaidFormatter formats machines as Mermaid state diagrams, one
// composite state per machine.
type MermaidFormatter struct{}

// NewMermaidFormatter creates a new Mermaid formatter.
func NewMermaidFormatter() *MermaidFormatter {
	return &MermaidFormatter{}
}

// Format formats the machines as Mermaid.
func (f *MermaidFormatter) Format(machines []MachineExport) ([]byte, error) {
	var b strings.Builder

	b.WriteString("stateDiagram-v2\n")
	for _, m := range machines {
		fmt.Fprintf(&b, "  state %s {\n", m.ID)
		fmt.Fprintf(&b, "    [*] --> %s\n", mermaidID(m.ID, m.Initial))
		for _, s := range m.States {
			fmt.Fprintf(&b, "    %s: %s\n", mermaidID(m.ID, s.Name), s.Name)
		}
		for _, t := range m.Transitions {
			fmt.Fprintf(&b, "    %s --> %s\n", mermaidID(m.ID, t.From), mermaidID(m.ID, t.To))
		}
		b.WriteString("  }\n")

		for _, s := range m.States {
			if !s.Interruptible {
				fmt.Fprintf(&b, "  note right of %s: not interruptible\n", mermaidID(m.ID, s.Name))
			}
		}
	}

	return []byte(b.String()), nil
}

// FormatType returns the format type.
func (f *MermaidFormatter) FormatType() Format {
	return FormatMermaid
}

// mermaidID prefixes state names so "idle" in two machines stays distinct.
func mermaidID(machine, state string) string {
	return machine + "_" + state
}

var _ Formatter = (*MermaidFormatter)(nil)
