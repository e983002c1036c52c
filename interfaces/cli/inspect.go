package cli

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskloop/infrastructure/inspector"
)

// newInspectCmd creates the inspect command.
func (a *App) newInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Export the handler sub-state machines",
		Long: `Export the sub-state machines of the banking, production, container
refill and delivery handlers.

Examples:
  # Render as a Mermaid state diagram
  taskloop inspect --format mermaid

  # Render with Graphviz
  taskloop inspect --format dot | dot -Tsvg > handlers.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inspector.NewFormatter(inspector.Format(format))
			if err != nil {
				return err
			}
			out, err := f.Format(inspector.Machines())
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(inspector.FormatMermaid), "Output format (mermaid, dot, json)")
	return cmd
}
