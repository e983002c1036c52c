// Package application provides the tick-driven task orchestrator.
package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/taskloop/application/handler"
	"github.com/felixgeelhaar/taskloop/domain/policy"
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/watchdog"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/observability"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Orchestrator walks the task plan one tick at a time.
//
// Tick, RenderStats, CanYieldControl, IsSessionStalled and Outcome must be
// called from a single goroutine. Stop and ApplyOptions may be called from
// any goroutine; their effect is picked up at the next tick boundary.
type Orchestrator struct {
	id       string
	world    world.WorldQuery
	actions  world.ActionExecutor
	scanner  world.TokenScanner
	clock    world.Clock
	rng      *rand.Rand
	metrics  telemetry.Metrics
	tracer   trace.Tracer
	sink     chan<- session.Stats
	active   time.Duration
	idle     time.Duration
	handlers map[task.Type]handler.Handler

	plan    *task.Plan
	session *session.Context
	tracker *watchdog.Tracker
	tokens  *world.TokenSet

	advances  uint64
	skips     int
	began     bool
	startedAt time.Time
	startXP   int64
	hasXP     bool
	last      world.Snapshot
	outcome   Outcome

	stop    atomic.Bool
	mu      sync.Mutex
	pending *session.Toggles
}

// NewOrchestrator creates an orchestrator with the given configuration.
func NewOrchestrator(config Config) (*Orchestrator, error) {
	if config.World == nil {
		return nil, ErrWorldRequired
	}
	if config.Actions == nil {
		return nil, ErrActionsRequired
	}
	if config.Scanner == nil {
		return nil, ErrScannerRequired
	}

	o := &Orchestrator{
		id:      config.SessionID,
		world:   config.World,
		actions: config.Actions,
		scanner: config.Scanner,
		clock:   config.Clock,
		rng:     config.Rand,
		metrics: config.Metrics,
		tracer:  config.Tracer,
		sink:    config.StatsSink,
		active:  config.ActiveDelay,
		idle:    config.IdleDelay,
		tokens:  world.NewTokenSet(),
	}

	// Set defaults
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.clock == nil {
		o.clock = world.SystemClock{}
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.metrics == nil {
		o.metrics = telemetry.NoopMetricsProvider{}
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("taskloop")
	}
	if o.active <= 0 {
		o.active = DefaultActiveDelay
	}
	if o.idle <= 0 {
		o.idle = DefaultIdleDelay
	}

	opts := config.Options
	wd := config.Watchdog
	if len(wd.ProblemAreas) == 0 {
		wd.ProblemAreas = opts.ProblemAreas
	}

	handlers, err := newHandlers(opts)
	if err != nil {
		return nil, fmt.Errorf("build handlers: %w", err)
	}
	o.handlers = handlers
	o.plan = task.PlanFor(task.Options{ExtendedCarry: opts.ExtendedCarry})
	o.session = session.NewContext(opts, session.NewOfferingCycle(opts.OfferingMin, opts.OfferingMax, o.rng))
	o.tracker = watchdog.NewTracker(wd)
	return o, nil
}

func newHandlers(opts session.Options) (map[task.Type]handler.Handler, error) {
	banking, err := handler.NewBanking(opts.MaxRetries)
	if err != nil {
		return nil, err
	}
	production, err := handler.NewProduction(opts.MaxRetries)
	if err != nil {
		return nil, err
	}
	container, err := handler.NewContainerRefill(opts.MaxRetries)
	if err != nil {
		return nil, err
	}
	delivery, err := handler.NewDelivery(opts.MaxRetries, opts.MessageWindow)
	if err != nil {
		return nil, err
	}
	return map[task.Type]handler.Handler{
		task.TypeBank:      banking,
		task.TypeProduce:   production,
		task.TypeContainer: container,
		task.TypeDeliver:   delivery,
	}, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// Plan returns the current task plan.
func (o *Orchestrator) Plan() *task.Plan { return o.plan }

// Session returns the session context.
func (o *Orchestrator) Session() *session.Context { return o.session }

// Outcome returns how the session ended, or a running outcome.
func (o *Orchestrator) Outcome() Outcome { return o.outcome }

// Stop requests a cooperative stop at the next tick boundary.
func (o *Orchestrator) Stop() {
	o.stop.Store(true)
}

// ApplyOptions queues a toggle change for the next tick boundary. Later
// calls replace earlier ones that were not applied yet.
func (o *Orchestrator) ApplyOptions(t session.Toggles) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &t
}

// Setup validates the starting conditions. A failure terminates the session.
func (o *Orchestrator) Setup(ctx context.Context) error {
	if o.outcome.Terminated() {
		return ErrTerminated
	}
	o.begin(ctx)

	opts := o.session.Options()
	snap := world.Capture(ctx, o.world, o.clock.Now())
	o.observeStart(snap)

	var err error
	switch {
	case !snap.HasInventory:
		err = ErrNoInventory
	case !snap.Inventory.Has(opts.Tool):
		err = fmt.Errorf("%w: item %d", ErrToolMissing, opts.Tool)
	case !opts.StartArea.IsZero() && (!snap.HasPosition || !opts.StartArea.Contains(snap.Position)):
		err = fmt.Errorf("%w: %s at %s", ErrWrongStartArea, opts.StartArea.Name, snap.Position)
	case opts.GoalExperience > 0 && snap.HasExperience && snap.Experience >= opts.GoalExperience:
		err = fmt.Errorf("%w: %d >= %d", ErrGoalReached, snap.Experience, opts.GoalExperience)
	}
	if err != nil {
		o.terminate(ctx, OutcomeSetup, err.Error())
		return err
	}

	logging.Info().
		Add(logging.SessionID(o.id)).
		Add(logging.Str("plan", fmt.Sprint(o.plan.Steps()))).
		Msg("session setup complete")
	return nil
}

// Run ticks until the session ends or ctx is cancelled, sleeping the delay
// each tick returns.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	for {
		select {
		case <-ctx.Done():
			o.terminate(ctx, OutcomeCancelled, ctx.Err().Error())
			return o.outcome
		default:
		}

		delay := o.Tick(ctx)
		if o.outcome.Terminated() {
			return o.outcome
		}
		o.clock.Sleep(ctx, delay)
	}
}

// Tick advances the orchestrator by one step and returns the delay before
// the next tick. It returns 0 once the session has ended.
func (o *Orchestrator) Tick(ctx context.Context) time.Duration {
	if o.outcome.Terminated() {
		return 0
	}
	o.begin(ctx)
	if o.stop.Load() {
		o.terminate(ctx, OutcomeStopped, "stop requested")
		return 0
	}
	o.applyPending()

	start := o.clock.Now()
	snap := world.Capture(ctx, o.world, start)
	o.last = snap
	o.observeStart(snap)

	ctx, span := observability.StartTick(ctx, o.tracer, o.id, o.plan.Cursor(), o.session.Laps())
	current := o.plan.Current()
	h := o.handlers[current]

	delay, outcome, failure := o.step(ctx, snap, current, h)

	observability.EndTick(span, current.String(), h.SubState(), outcome, failure)
	o.metrics.RecordTick(ctx, current.String(), o.clock.Now().Sub(start))

	if o.outcome.Terminated() {
		return 0
	}
	o.publish()
	return delay
}

// step runs the watchdogs and then the task at the cursor. It returns the
// next delay plus an outcome label and failure reason for the tick span.
func (o *Orchestrator) step(ctx context.Context, snap world.Snapshot, current task.Type, h handler.Handler) (time.Duration, string, string) {
	v := o.tracker.Observe(snap.TakenAt, snap, o.advances)
	switch {
	case v.Terminate:
		o.metrics.RecordWatchdog(ctx, string(v.Kind), true)
		logging.Error().
			Add(logging.SessionID(o.id)).
			Add(logging.Watchdog(string(v.Kind))).
			Add(logging.Task(current.String())).
			Add(logging.Reason(v.Reason)).
			Msg("watchdog fired, terminating session")
		o.terminate(ctx, OutcomeStalled, v.Reason)
		return 0, "stalled", v.Reason
	case v.Recover:
		o.recoverPosition(ctx, v, h)
		return o.active, "recovered", ""
	}

	if policy.CanSkip(current, o.session, snap) {
		o.skips++
		o.metrics.RecordTaskSkipped(ctx, current.String())
		logging.Debug().
			Add(logging.Task(current.String())).
			Add(logging.Cursor(o.plan.Cursor())).
			Msg("requirements already met, skipping task")
		o.advance(ctx, h)
		return o.active, "skipped", ""
	}

	deliveries := o.session.Deliveries()
	site, _ := o.session.DeliverySite()

	res := h.Run(ctx, o.env(snap))

	if o.session.Deliveries() > deliveries {
		o.metrics.RecordDelivery(ctx, site.Name)
	}

	delay := o.active
	if res.Waiting || !snap.HasInventory {
		delay = o.idle
	}

	switch {
	case res.Fatal():
		logging.Error().
			Add(logging.SessionID(o.id)).
			Add(logging.Task(current.String())).
			Add(logging.SubState(h.SubState())).
			Add(logging.Reason(res.Reason)).
			Msg("fatal precondition, terminating session")
		o.terminate(ctx, OutcomeFatal, res.Reason)
		return 0, res.Status.String(), res.Reason
	case res.Completed():
		o.metrics.RecordTaskCompleted(ctx, current.String())
		logging.Info().
			Add(logging.Task(current.String())).
			Add(logging.Cursor(o.plan.Cursor())).
			Add(logging.Lap(o.session.Laps())).
			Msg("task completed")
		o.advance(ctx, h)
	case res.Rebank:
		o.metrics.RecordHandlerFailure(ctx, current.String(), h.SubState())
		logging.Warn().
			Add(logging.Task(current.String())).
			Add(logging.Reason(res.Reason)).
			Msg("required item in the bank, returning to the bank step")
		h.Reset()
		o.tokens.Clear()
		o.plan.Seek(task.TypeBank)
	case res.Reason != "" && !res.Waiting:
		o.metrics.RecordHandlerFailure(ctx, current.String(), h.SubState())
	}
	return delay, res.Status.String(), res.Reason
}

func (o *Orchestrator) env(snap world.Snapshot) *handler.Env {
	return &handler.Env{
		Session:  o.session,
		Snapshot: snap,
		World:    o.world,
		Actions:  o.actions,
		Scanner:  o.scanner,
		Clock:    o.clock,
		Tokens:   o.tokens,
		Rand:     o.rng,
	}
}

// advance resets the finished handler, clears the token set and moves the
// cursor. Wrapping to 0 completes a lap.
func (o *Orchestrator) advance(ctx context.Context, h handler.Handler) {
	h.Reset()
	o.tokens.Clear()
	o.advances++
	if !o.plan.Advance() {
		return
	}
	reset := o.session.CompleteLap()
	o.metrics.RecordLap(ctx, reset)
	logging.Info().
		Add(logging.SessionID(o.id)).
		Add(logging.Lap(o.session.Laps())).
		Add(logging.Int("deliveries", o.session.Deliveries())).
		Add(logging.Bool("offering_reset", reset)).
		Msg("lap completed")
}

// recoverPosition walks to the safe waypoint and restarts the current task.
func (o *Orchestrator) recoverPosition(ctx context.Context, v watchdog.Verdict, h handler.Handler) {
	opts := o.session.Options()
	o.metrics.RecordWatchdog(ctx, string(v.Kind), false)
	logging.Warn().
		Add(logging.SessionID(o.id)).
		Add(logging.Watchdog(string(v.Kind))).
		Add(logging.Reason(v.Reason)).
		Add(logging.Str("waypoint", opts.SafeWaypoint.String())).
		Msg("position stall, moving to safe waypoint")

	if !o.actions.MoveTo(ctx, opts.SafeWaypoint, nil, opts.Timing.TravelTimeout) {
		logging.Warn().Add(logging.Watchdog(string(v.Kind))).Msg("recovery move did not arrive")
	}
	o.tracker.ResetPosition(o.clock.Now())
	h.Reset()
}

// applyPending applies queued toggles. A layout change rebuilds the plan;
// the handler of a task that is no longer current is reset.
func (o *Orchestrator) applyPending() {
	o.mu.Lock()
	t := o.pending
	o.pending = nil
	o.mu.Unlock()
	if t == nil {
		return
	}

	if !o.session.ApplyToggles(*t) {
		logging.Info().
			Add(logging.Bool("claim_offerings", t.ClaimOfferings)).
			Msg("session options updated")
		return
	}
	before := o.plan.Current()
	o.plan = o.plan.Rebuild(task.Options{ExtendedCarry: t.ExtendedCarry})
	if o.plan.Current() != before {
		o.handlers[before].Reset()
		o.tokens.Clear()
	}
	logging.Info().
		Add(logging.Bool("extended_carry", t.ExtendedCarry)).
		Add(logging.Bool("claim_offerings", t.ClaimOfferings)).
		Add(logging.Str("plan", fmt.Sprint(o.plan.Steps()))).
		Add(logging.Cursor(o.plan.Cursor())).
		Msg("plan rebuilt")
}

func (o *Orchestrator) begin(ctx context.Context) {
	if o.began {
		return
	}
	o.began = true
	o.startedAt = o.clock.Now()
	o.metrics.SessionStarted(ctx)
	logging.Info().
		Add(logging.SessionID(o.id)).
		Add(logging.Bool("extended_carry", o.session.Options().ExtendedCarry)).
		Add(logging.Bool("claim_offerings", o.session.Options().ClaimOfferings)).
		Msg("session started")
}

func (o *Orchestrator) observeStart(snap world.Snapshot) {
	if !o.hasXP && snap.HasExperience {
		o.startXP, o.hasXP = snap.Experience, true
	}
}

func (o *Orchestrator) terminate(ctx context.Context, kind OutcomeKind, reason string) {
	if o.outcome.Terminated() {
		return
	}
	o.begin(ctx)
	now := o.clock.Now()
	o.outcome = Outcome{Kind: kind, Reason: reason, At: now}
	o.metrics.SessionEnded(ctx, kind.String(), now.Sub(o.startedAt))
	logging.Info().
		Add(logging.SessionID(o.id)).
		Add(logging.Str("outcome", kind.String())).
		Add(logging.Reason(reason)).
		Add(logging.Lap(o.session.Laps())).
		Add(logging.Duration(now.Sub(o.startedAt))).
		Msg("session ended")
	o.publish()
}

// RenderStats returns a display snapshot. It reads only state captured at
// the last tick boundary.
func (o *Orchestrator) RenderStats() session.Stats {
	current := o.plan.Current()
	at := o.last.TakenAt
	if at.IsZero() {
		at = o.startedAt
	}
	elapsed := at.Sub(o.startedAt)

	var gained, xp int64
	if o.hasXP && o.last.HasExperience {
		xp = o.last.Experience
		gained = xp - o.startXP
	}
	rate := session.RatePerHour(gained, elapsed)
	eta, ok := session.TimeToGoal(xp, o.session.Options().GoalExperience, rate)

	return session.Stats{
		SessionID:        o.id,
		At:               at,
		CurrentTask:      current.String(),
		SubState:         o.handlers[current].SubState(),
		Cursor:           o.plan.Cursor(),
		Laps:             o.session.Laps(),
		Deliveries:       o.session.Deliveries(),
		Skips:            o.skips,
		Elapsed:          elapsed,
		ExperienceGained: gained,
		Rate:             rate,
		TimeToGoal:       eta,
		HasEstimate:      ok && o.hasXP,
		Stalled:          o.tracker.Stalled(),
	}
}

// CanYieldControl reports whether the host may pause the session now.
func (o *Orchestrator) CanYieldControl() bool {
	if o.outcome.Terminated() {
		return true
	}
	return o.handlers[o.plan.Current()].Interruptible()
}

// IsSessionStalled reports whether a terminal watchdog has fired.
func (o *Orchestrator) IsSessionStalled() bool {
	return o.tracker.Stalled()
}

func (o *Orchestrator) publish() {
	if o.sink == nil {
		return
	}
	select {
	case o.sink <- o.RenderStats():
	default:
	}
}
