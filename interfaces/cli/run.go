package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskloop/application"
	"github.com/felixgeelhaar/taskloop/domain/history"
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/infrastructure/archive"
	"github.com/felixgeelhaar/taskloop/infrastructure/config"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/observability"
	"github.com/felixgeelhaar/taskloop/infrastructure/reporter"
	"github.com/felixgeelhaar/taskloop/infrastructure/resilience"
	"github.com/felixgeelhaar/taskloop/infrastructure/simworld"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
)

// errNoWorld is returned when no world adapter is available.
var errNoWorld = errors.New("no world adapter available; use --simulate")

// persistTimeout bounds saving and archiving once a session has ended.
const persistTimeout = 30 * time.Second

// runOptions holds options for the run command.
type runOptions struct {
	configPath string
	strict     bool
	simulate   bool
	seed       uint64
	maxLaps    int
	duration   time.Duration
	timeout    time.Duration
	watch      bool
	jsonOutput bool
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a session",
		Long: `Run a session using the provided configuration file.

The session ticks through its task plan until it is stopped, a watchdog
ends it, or setup fails. The finished session is saved to the configured
history store and, when an archive URL is set, exported to it.

Examples:
  # Run against the simulated world until 10 laps are done
  taskloop run -c session.yaml --simulate --max-laps 10

  # Run for two simulated hours and print the summary as JSON
  taskloop run -c session.yaml --simulate --duration 2h --json

  # Pick up extended_carry and claim_offerings changes while running
  taskloop run -c session.yaml --simulate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSession(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing env vars")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "Run against the simulated world")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Seed for the simulated world and pacing")
	cmd.Flags().IntVar(&opts.maxLaps, "max-laps", 0, "Stop after this many laps")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this much session time")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Cancel the session after this much wall time")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Apply option changes from the config file while running")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the summary as JSON")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) runSession(ctx context.Context, opts *runOptions) error {
	cfg, loader, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	result, err := config.NewBuilder(cfg).WithTraceOutput(a.stderr).Build()
	if err != nil {
		return fmt.Errorf("failed to build session configuration: %w", err)
	}
	if !opts.simulate {
		return errNoWorld
	}

	// Ends the watcher goroutine once the session returns.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	obs, err := observability.New(ctx, result.Observability...)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	metrics := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())

	sim := simworld.New(simworld.FromOptions(result.Options, opts.seed))
	actions := resilience.NewActionsWithOptions(sim, append(result.Resilience, resilience.WithMetrics(metrics))...)

	stats := make(chan session.Stats, 16)
	orch, err := application.NewOrchestratorWithOptions(
		application.WithOptions(result.Options),
		application.WithWatchdog(result.Watchdog),
		application.WithWorld(sim),
		application.WithActions(actions),
		application.WithClock(sim.Clock()),
		application.WithRand(rand.New(rand.NewPCG(opts.seed, opts.seed+1))),
		application.WithMetrics(metrics),
		application.WithTracer(obs.Tracer()),
		application.WithStatsSink(stats),
		application.WithDelays(result.ActiveDelay, result.IdleDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if opts.watch {
		changes, err := config.NewWatcher(opts.configPath, loader, cfg.Toggles()).Watch(ctx)
		if err != nil {
			return err
		}
		go func() {
			for t := range changes {
				orch.ApplyOptions(t)
			}
		}()
	}

	var (
		reportIn   chan session.Stats
		reportDone <-chan struct{}
	)
	if result.Reporter != nil {
		rc := *result.Reporter
		rc.Metrics = metrics
		reportIn = make(chan session.Stats, 1)
		reportDone = reporter.New(rc).Start(ctx, reportIn)
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if reportIn != nil {
			defer close(reportIn)
		}
		for st := range stats {
			if (opts.maxLaps > 0 && st.Laps >= opts.maxLaps) || (opts.duration > 0 && st.Elapsed >= opts.duration) {
				orch.Stop()
			}
			if reportIn != nil {
				latest(reportIn, st)
			}
		}
	}()

	var outcome application.Outcome
	setupErr := orch.Setup(ctx)
	if setupErr == nil {
		outcome = orch.Run(ctx)
	} else {
		outcome = orch.Outcome()
	}
	final := orch.RenderStats()

	close(stats)
	<-monitorDone
	if reportDone != nil {
		<-reportDone
	}

	summary := summarize(orch.ID(), final, outcome)
	a.persist(context.WithoutCancel(ctx), result, summary)

	if err := a.printSummary(summary, opts.jsonOutput); err != nil {
		return err
	}
	if setupErr != nil {
		return fmt.Errorf("session setup failed: %w", setupErr)
	}
	return nil
}

// summarize builds the history record of a finished session.
func summarize(id string, st session.Stats, outcome application.Outcome) history.Summary {
	started := st.At.Add(-st.Elapsed)
	ended := outcome.At
	if ended.Before(started) {
		ended = started
	}
	return history.Summary{
		ID:               id,
		StartedAt:        started,
		EndedAt:          ended,
		Laps:             st.Laps,
		Deliveries:       st.Deliveries,
		ExperienceGained: st.ExperienceGained,
		Outcome:          outcome.Kind.String(),
		Reason:           outcome.Reason,
		Duration:         ended.Sub(started),
	}
}

// persist saves the summary and archives it. Failures are logged; the
// session itself already finished.
func (a *App) persist(ctx context.Context, result *config.BuildResult, s history.Summary) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	store, err := storage.Open(ctx, result.Storage)
	if err != nil {
		logging.Error().Add(logging.Component("history")).Add(logging.ErrorField(err)).Msg("failed to open history store")
	} else {
		if err := store.Save(ctx, s); err != nil {
			logging.Error().Add(logging.Component("history")).Add(logging.ErrorField(err)).Msg("failed to save session summary")
		}
		_ = store.Close()
	}

	if result.Archive == nil {
		return
	}
	arc, err := archive.Open(ctx, *result.Archive)
	if err != nil {
		logging.Error().Add(logging.Component("archive")).Add(logging.ErrorField(err)).Msg("failed to open archive")
		return
	}
	defer arc.Close()
	if _, err := arc.Archive(ctx, s); err != nil {
		logging.Error().Add(logging.Component("archive")).Add(logging.ErrorField(err)).Msg("failed to archive session summary")
	}
}

func (a *App) printSummary(s history.Summary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(a.stdout, "Session finished\n")
	fmt.Fprintf(a.stdout, "  Session ID: %s\n", s.ID)
	fmt.Fprintf(a.stdout, "  Outcome: %s\n", s.Outcome)
	if s.Reason != "" {
		fmt.Fprintf(a.stdout, "  Reason: %s\n", s.Reason)
	}
	fmt.Fprintf(a.stdout, "  Duration: %s\n", s.Duration)
	fmt.Fprintf(a.stdout, "  Laps: %d\n", s.Laps)
	fmt.Fprintf(a.stdout, "  Deliveries: %d\n", s.Deliveries)
	fmt.Fprintf(a.stdout, "  Experience gained: %d\n", s.ExperienceGained)
	return nil
}

// latest sends st, replacing a value the reader has not taken yet.
func latest(ch chan session.Stats, st session.Stats) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
