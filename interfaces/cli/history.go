package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/history"
	"github.com/felixgeelhaar/taskloop/infrastructure/archive"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage"
)

// historyOptions holds options shared by the history subcommands.
type historyOptions struct {
	configPath string
	limit      int
	jsonOutput bool
}

// newHistoryCmd creates the history command.
func (a *App) newHistoryCmd() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect finished sessions",
		Long: `Inspect the finished sessions saved in the configured history store.

Examples:
  # List the ten most recent sessions
  taskloop history list -c session.yaml --limit 10

  # Show one session as JSON
  taskloop history show -c session.yaml --json 6f1c...

  # Export a stored session to the configured archive
  taskloop history export -c session.yaml 6f1c...`,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkPersistentFlagRequired("config")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), opts, func(ctx context.Context, store *storage.Store, cfg *domainconfig.SessionConfig) error {
				limit := cfg.Storage.Limit
				if opts.limit > 0 {
					limit = opts.limit
				}
				summaries, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				return a.printSummaries(summaries, opts.jsonOutput)
			})
		},
	}
	list.Flags().IntVar(&opts.limit, "limit", 0, "Maximum sessions to list (overrides storage.limit)")

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), opts, func(ctx context.Context, store *storage.Store, _ *domainconfig.SessionConfig) error {
				s, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printSummary(s, opts.jsonOutput)
			})
		},
	}

	export := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export one session to the configured archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), opts, func(ctx context.Context, store *storage.Store, cfg *domainconfig.SessionConfig) error {
				if cfg.Archive.URL == "" {
					return fmt.Errorf("archive.url is not configured")
				}
				s, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				arc, err := archive.Open(ctx, cfg.Archive)
				if err != nil {
					return err
				}
				defer arc.Close()
				key, err := arc.Archive(ctx, s)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Exported %s to %s\n", s.ID, key)
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, export)
	return cmd
}

// withStore opens the configured history store for the duration of fn.
func (a *App) withStore(ctx context.Context, opts *historyOptions, fn func(context.Context, *storage.Store, *domainconfig.SessionConfig) error) error {
	cfg, _, err := loadConfig(opts.configPath, false)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store, cfg)
}

func (a *App) printSummaries(summaries []history.Summary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(a.stdout, "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENDED\tOUTCOME\tLAPS\tDELIVERIES\tXP")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.EndedAt.Format("2006-01-02 15:04"), s.Outcome, s.Laps, s.Deliveries, s.ExperienceGained)
	}
	return w.Flush()
}
