package inspector

import (
	"fmt"
	"strings"
)

// DOTFormatter formats machines as a Graphviz digraph with one cluster per
// machine.
type DOTFormatter struct{}

// NewDOTFormatter creates a new DOT formatter.
func NewDOTFormatter() *DOTFormatter {
	return &DOTFormatter{}
}

// Format formats the machines as DOT.
func (f *DOTFormatter) Format(machines []MachineExport) ([]byte, error) {
	var b strings.Builder

	b.WriteString("digraph TaskHandlers {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")

	for _, m := range machines {
		fmt.Fprintf(&b, "\n  subgraph cluster_%s {\n", sanitizeDOTID(m.ID))
		fmt.Fprintf(&b, "    label=%q;\n", m.ID)

		for _, s := range m.States {
			attrs := []string{fmt.Sprintf("label=%q", s.Name)}
			switch {
			case s.Initial:
				attrs = append(attrs, `style="rounded,bold"`)
			case !s.Interruptible:
				attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightcoral")
			}
			fmt.Fprintf(&b, "    %s [%s];\n", dotNode(m.ID, s.Name), strings.Join(attrs, ", "))
		}
		for _, t := range m.Transitions {
			fmt.Fprintf(&b, "    %s -> %s;\n", dotNode(m.ID, t.From), dotNode(m.ID, t.To))
		}
		b.WriteString("  }\n")
	}

	b.WriteString("}\n")
	return []byte(b.String()), nil
}

// FormatType returns the format type.
func (f *DOTFormatter) FormatType() Format {
	return FormatDOT
}

func dotNode(machine, state string) string {
	return sanitizeDOTID(machine + "_" + state)
}

func sanitizeDOTID(s string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(s)
}

var _ Formatter = (*DOTFormatter)(nil)
