package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/watchdog"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/simworld"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
)

const (
	tool      world.ItemID = 946
	material  world.ItemID = 1511
	output    world.ItemID = 52
	container world.ItemID = 28140
)

var (
	bankArea = world.Area{Name: "bank", Min: world.Position{X: 0, Y: 0}, Max: world.Position{X: 10, Y: 10}}
	siteArea = world.Area{Name: "altar", Min: world.Position{X: 20, Y: 20}, Max: world.Position{X: 30, Y: 30}}
	atBank   = world.Position{X: 5, Y: 5}
	atSite   = world.Position{X: 25, Y: 25}
)

func testOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Tool = tool
	opts.Material = material
	opts.Output = output
	opts.Container = container
	opts.Bank = session.Site{Name: "bank", Area: bankArea, Object: "bank booth", Entry: atBank}
	opts.Sites = []session.Site{{Name: "altar", Area: siteArea, Object: "altar", Entry: atSite}}
	return opts
}

func newWorld(opts session.Options, mutate func(*simworld.Config)) *simworld.World {
	cfg := simworld.FromOptions(opts, 1)
	if mutate != nil {
		mutate(&cfg)
	}
	return simworld.New(cfg)
}

// recordingMetrics captures the calls the orchestrator makes.
type recordingMetrics struct {
	telemetry.NoopMetricsProvider
	skipped   []string
	completed []string
	laps      int
	resets    int
	watchdogs []string
	ended     string
}

func (m *recordingMetrics) RecordTaskSkipped(_ context.Context, t string) {
	m.skipped = append(m.skipped, t)
}

func (m *recordingMetrics) RecordTaskCompleted(_ context.Context, t string) {
	m.completed = append(m.completed, t)
}

func (m *recordingMetrics) RecordLap(_ context.Context, offeringReset bool) {
	m.laps++
	if offeringReset {
		m.resets++
	}
}

func (m *recordingMetrics) RecordWatchdog(_ context.Context, kind string, _ bool) {
	m.watchdogs = append(m.watchdogs, kind)
}

func (m *recordingMetrics) SessionEnded(_ context.Context, outcome string, _ time.Duration) {
	m.ended = outcome
}

func newOrchestrator(t *testing.T, w *simworld.World, opts session.Options, extra ...Option) (*Orchestrator, *recordingMetrics) {
	t.Helper()
	m := &recordingMetrics{}
	all := append([]Option{
		WithSessionID("test"),
		WithOptions(opts),
		WithWorld(w),
		WithClock(w.Clock()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithMetrics(m),
	}, extra...)
	o, err := NewOrchestratorWithOptions(all...)
	if err != nil {
		t.Fatalf("NewOrchestratorWithOptions() error = %v", err)
	}
	return o, m
}

// tickUntil ticks and sleeps on the virtual clock until cond holds.
func tickUntil(t *testing.T, o *Orchestrator, w *simworld.World, maxTicks int, cond func() bool) {
	t.Helper()
	ctx := context.Background()
	for range maxTicks {
		if cond() {
			return
		}
		d := o.Tick(ctx)
		if o.Outcome().Terminated() {
			if cond() {
				return
			}
			t.Fatalf("session ended early: %s (%s)", o.Outcome().Kind, o.Outcome().Reason)
		}
		w.Clock().Sleep(ctx, d)
	}
	t.Fatalf("condition not reached within %d ticks (task %s, sub-state %s)",
		maxTicks, o.Plan().Current(), o.RenderStats().SubState)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	t.Parallel()

	w := newWorld(testOptions(), nil)

	tests := []struct {
		name   string
		config Config
		want   error
	}{
		{"no world", Config{Actions: w, Scanner: w}, ErrWorldRequired},
		{"no actions", Config{World: w, Scanner: w}, ErrActionsRequired},
		{"no scanner", Config{World: w, Actions: w}, ErrScannerRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewOrchestrator(tt.config); !errors.Is(err, tt.want) {
				t.Errorf("NewOrchestrator() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	t.Parallel()

	w := newWorld(testOptions(), nil)
	o, err := NewOrchestratorWithOptions(WithOptions(testOptions()), WithWorld(w))
	if err != nil {
		t.Fatalf("NewOrchestratorWithOptions() error = %v", err)
	}
	if o.ID() == "" {
		t.Error("ID() is empty, want a generated session id")
	}
	if got := o.Plan().Steps(); !slices.Equal(got, task.Layout(task.Options{})) {
		t.Errorf("Plan().Steps() = %v", got)
	}
	if !o.CanYieldControl() {
		t.Error("CanYieldControl() = false before the first tick")
	}
}

func TestTick_SkipsBankWhenStocked(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, func(c *simworld.Config) {
		c.Inventory = world.Counts{tool: 1, output: 20, material: 5}
	})
	o, m := newOrchestrator(t, w, opts)

	if d := o.Tick(context.Background()); d != DefaultActiveDelay {
		t.Errorf("Tick() = %v, want %v", d, DefaultActiveDelay)
	}
	if o.Plan().Current() != task.TypeProduce {
		t.Fatalf("Current() = %s, want produce", o.Plan().Current())
	}
	if len(w.CallsFor(world.ActionOpen)) != 0 {
		t.Error("bank was opened for a skipped task")
	}
	if !slices.Equal(m.skipped, []string{"bank"}) {
		t.Errorf("skipped = %v, want [bank]", m.skipped)
	}

	// Produce must still run: material has not been spent.
	o.Tick(context.Background())
	if o.Plan().Current() != task.TypeProduce {
		t.Errorf("Current() = %s after dispatch, want produce", o.Plan().Current())
	}
	if got := o.RenderStats().Skips; got != 1 {
		t.Errorf("Skips = %d, want 1", got)
	}
}

func TestTick_FullLap(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.ClaimOfferings = true
	opts.OfferingMin, opts.OfferingMax = 1, 1
	w := newWorld(opts, nil)
	o, m := newOrchestrator(t, w, opts)

	sawLocked := false
	ctx := context.Background()
	for range 400 {
		if o.Session().Laps() == 1 {
			break
		}
		d := o.Tick(ctx)
		if o.Outcome().Terminated() {
			t.Fatalf("session ended: %s (%s)", o.Outcome().Kind, o.Outcome().Reason)
		}
		if !o.CanYieldControl() {
			sawLocked = true
		}
		w.Clock().Sleep(ctx, d)
	}

	if o.Session().Laps() != 1 {
		t.Fatalf("Laps() = %d, want 1", o.Session().Laps())
	}
	if o.Plan().Cursor() != 0 {
		t.Errorf("Cursor() = %d after a lap, want 0", o.Plan().Cursor())
	}
	if o.Session().Loop() != (session.LoopFlags{}) {
		t.Errorf("Loop() = %+v, want zero flags after a lap", o.Session().Loop())
	}
	if w.Delivered() != 25 {
		t.Errorf("Delivered() = %d, want 25", w.Delivered())
	}
	if w.Claims() != 1 {
		t.Errorf("Claims() = %d, want 1", w.Claims())
	}
	if got := o.Session().Offering().Resets(); got != 1 {
		t.Errorf("Offering().Resets() = %d, want 1", got)
	}
	if m.laps != 1 || m.resets != 1 {
		t.Errorf("recorded laps = %d resets = %d, want 1 and 1", m.laps, m.resets)
	}
	if !slices.Equal(m.completed, []string{"bank", "produce", "deliver"}) {
		t.Errorf("completed = %v", m.completed)
	}
	if !sawLocked {
		t.Error("CanYieldControl() never reported false during the puzzle")
	}

	stats := o.RenderStats()
	if stats.ExperienceGained != 250 {
		t.Errorf("ExperienceGained = %d, want 250", stats.ExperienceGained)
	}
	if stats.Rate <= 0 {
		t.Errorf("Rate = %v, want > 0", stats.Rate)
	}
	if stats.CurrentTask != "bank" || stats.Deliveries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTick_ExtendedCarryLap(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.ExtendedCarry = true
	w := newWorld(opts, nil)
	o, m := newOrchestrator(t, w, opts)

	if got, want := o.Plan().Steps(), task.Layout(task.Options{ExtendedCarry: true}); !slices.Equal(got, want) {
		t.Fatalf("Steps() = %v, want %v", got, want)
	}

	ctx := context.Background()
	for lap := 1; lap <= 2; lap++ {
		var sawFilled, sawRefilled bool
		for i := 0; o.Session().Laps() < lap; i++ {
			if i == 600 {
				t.Fatalf("lap %d not finished (task %s, sub-state %s)", lap, o.Plan().Current(), o.RenderStats().SubState)
			}
			d := o.Tick(ctx)
			if o.Outcome().Terminated() {
				t.Fatalf("session ended: %s (%s)", o.Outcome().Kind, o.Outcome().Reason)
			}
			if o.Session().Laps() < lap {
				loop := o.Session().Loop()
				sawFilled = sawFilled || loop.ContainerFilled
				sawRefilled = sawRefilled || loop.ContainerRefilled
			}
			w.Clock().Sleep(ctx, d)
		}

		if !sawFilled || !sawRefilled {
			t.Errorf("lap %d: ContainerFilled seen = %v, ContainerRefilled seen = %v, want both", lap, sawFilled, sawRefilled)
		}
		if o.Plan().Cursor() != 0 {
			t.Errorf("lap %d: Cursor() = %d, want 0", lap, o.Plan().Cursor())
		}
		if o.Session().Loop() != (session.LoopFlags{}) {
			t.Errorf("lap %d: Loop() = %+v, want zero flags after the wrap", lap, o.Session().Loop())
		}
	}

	var order []string
	for _, c := range m.completed {
		if c != "bank" {
			order = append(order, c)
		}
	}
	want := []string{"container", "produce", "deliver", "container", "produce", "deliver"}
	if !slices.Equal(order, want) {
		t.Errorf("completed (without bank) = %v, want %v", order, want)
	}
	if got := len(w.CallsFor(world.ActionFill)); got < 2 {
		t.Errorf("container fills = %d, want one per bank visit", got)
	}
}

func TestTick_ToolInBankReturnsToBankStep(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	o, m := newOrchestrator(t, w, opts)

	tickUntil(t, o, w, 300, func() bool { return o.Plan().Current() == task.TypeProduce })
	w.Stow(opts.Tool)
	before := len(m.completed)

	o.Tick(context.Background())
	if o.Outcome().Terminated() {
		t.Fatalf("session ended: %s (%s)", o.Outcome().Kind, o.Outcome().Reason)
	}
	if o.Plan().Current() != task.TypeBank {
		t.Fatalf("Current() = %s, want bank", o.Plan().Current())
	}
	if o.Session().Laps() != 0 {
		t.Errorf("Laps() = %d, returning to the bank must not finish a lap", o.Session().Laps())
	}

	tickUntil(t, o, w, 600, func() bool { return o.Session().Laps() >= 1 })
	if !w.Inventory().Has(opts.Tool) {
		t.Error("tool not withdrawn from the bank")
	}
	if len(m.completed) <= before || m.completed[before] != task.TypeBank.String() {
		t.Errorf("completed = %v, want bank right after the return", m.completed[before:])
	}
}

func TestTick_PositionStallRecovers(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.ProblemAreas = []world.Area{bankArea}
	opts.SafeWaypoint = world.Position{X: 15, Y: 15}
	w := newWorld(opts, nil)
	o, m := newOrchestrator(t, w, opts, WithWatchdog(watchdog.Config{PositionWindow: 10 * time.Second}))

	ctx := context.Background()
	o.Tick(ctx)
	w.Clock().Advance(11 * time.Second)

	if d := o.Tick(ctx); d != DefaultActiveDelay {
		t.Errorf("Tick() = %v, want %v", d, DefaultActiveDelay)
	}
	if p, _ := w.Position(ctx); p != opts.SafeWaypoint {
		t.Errorf("Position() = %s, want %s", p, opts.SafeWaypoint)
	}
	if !slices.Equal(m.watchdogs, []string{string(watchdog.KindPosition)}) {
		t.Errorf("watchdogs = %v", m.watchdogs)
	}
	if o.Outcome().Terminated() || o.IsSessionStalled() {
		t.Error("position stall must not end the session")
	}
	if got := o.RenderStats().SubState; got != "idle" {
		t.Errorf("SubState = %s after recovery, want idle", got)
	}

	// The timer was reset by the recovery move.
	o.Tick(ctx)
	if len(m.watchdogs) != 1 {
		t.Errorf("watchdogs = %v, want a single recovery", m.watchdogs)
	}
}

func TestTick_ProgressStallTerminates(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	w.StopExperience(true)
	o, m := newOrchestrator(t, w, opts, WithWatchdog(watchdog.Config{ProgressWindow: time.Minute}))

	ctx := context.Background()
	o.Tick(ctx)
	w.Clock().Advance(2 * time.Minute)

	if d := o.Tick(ctx); d != 0 {
		t.Errorf("Tick() = %v, want 0 once stalled", d)
	}
	out := o.Outcome()
	if out.Kind != OutcomeStalled || out.Reason == "" {
		t.Errorf("Outcome() = %+v, want stalled with a reason", out)
	}
	if !o.IsSessionStalled() {
		t.Error("IsSessionStalled() = false")
	}
	if m.ended != "stalled" {
		t.Errorf("ended = %q, want stalled", m.ended)
	}

	calls := len(w.Calls())
	if d := o.Tick(ctx); d != 0 || len(w.Calls()) != calls {
		t.Error("ticks after termination must not dispatch")
	}
}

func TestTick_FatalPrecondition(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, func(c *simworld.Config) {
		c.Bank = world.Counts{}
	})
	o, _ := newOrchestrator(t, w, opts)

	ctx := context.Background()
	for range 20 {
		if o.Tick(ctx) == 0 {
			break
		}
	}
	if o.Outcome().Kind != OutcomeFatal {
		t.Fatalf("Outcome() = %+v, want fatal", o.Outcome())
	}
	if o.Outcome().Reason == "" {
		t.Error("fatal outcome has no reason")
	}
}

func TestSetup(t *testing.T) {
	t.Parallel()

	far := world.Area{Name: "lodge", Min: world.Position{X: 100, Y: 100}, Max: world.Position{X: 110, Y: 110}}

	tests := []struct {
		name  string
		opts  func(*session.Options)
		world func(*simworld.Config)
		want  error
	}{
		{"ready", nil, nil, nil},
		{"tool missing", nil, func(c *simworld.Config) { c.Inventory = world.Counts{} }, ErrToolMissing},
		{"wrong area", func(o *session.Options) { o.StartArea = far }, func(c *simworld.Config) { c.Position = atBank }, ErrWrongStartArea},
		{"goal reached", func(o *session.Options) { o.GoalExperience = 100 }, func(c *simworld.Config) { c.Experience = 200 }, ErrGoalReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			w := newWorld(opts, tt.world)
			o, _ := newOrchestrator(t, w, opts)

			err := o.Setup(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Setup() error = %v, want %v", err, tt.want)
			}
			if tt.want == nil {
				if o.Outcome().Terminated() {
					t.Errorf("Outcome() = %+v, want running", o.Outcome())
				}
				return
			}
			if o.Outcome().Kind != OutcomeSetup {
				t.Errorf("Outcome().Kind = %s, want setup", o.Outcome().Kind)
			}
			if !errors.Is(o.Setup(context.Background()), ErrTerminated) {
				t.Error("Setup() after termination should return ErrTerminated")
			}
		})
	}
}

func TestRun_Stop(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	o, m := newOrchestrator(t, w, opts)

	o.Stop()
	out := o.Run(context.Background())
	if out.Kind != OutcomeStopped {
		t.Errorf("Run() = %+v, want stopped", out)
	}
	if len(w.Calls()) != 0 {
		t.Errorf("Calls() = %d, want no dispatch after stop", len(w.Calls()))
	}
	if m.ended != "stopped" {
		t.Errorf("ended = %q, want stopped", m.ended)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	o, _ := newOrchestrator(t, w, opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if out := o.Run(ctx); out.Kind != OutcomeCancelled {
		t.Errorf("Run() = %+v, want cancelled", out)
	}
}

func TestRun_CompletesLaps(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	o, _ := newOrchestrator(t, w, opts)

	tickUntil(t, o, w, 1000, func() bool { return o.Session().Laps() >= 2 })
	if o.Session().Deliveries() != 2 {
		t.Errorf("Deliveries() = %d, want 2", o.Session().Deliveries())
	}
}

func TestApplyOptions_RebuildsPlan(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, func(c *simworld.Config) {
		c.Inventory = world.Counts{tool: 1, output: 20, material: 5}
	})
	o, _ := newOrchestrator(t, w, opts)
	ctx := context.Background()

	o.Tick(ctx)
	if o.Plan().Current() != task.TypeProduce || o.Plan().Cursor() != 1 {
		t.Fatalf("cursor = %d (%s), want 1 (produce)", o.Plan().Cursor(), o.Plan().Current())
	}

	o.ApplyOptions(session.Toggles{ExtendedCarry: true, ClaimOfferings: true})
	if o.Session().Options().ExtendedCarry {
		t.Fatal("options applied before the tick boundary")
	}

	o.Tick(ctx)
	want := task.Layout(task.Options{ExtendedCarry: true})
	if got := o.Plan().Steps(); !slices.Equal(got, want) {
		t.Errorf("Steps() = %v, want %v", got, want)
	}
	if o.Plan().Current() != task.TypeProduce || o.Plan().Cursor() != 2 {
		t.Errorf("cursor = %d (%s), want 2 (produce)", o.Plan().Cursor(), o.Plan().Current())
	}
	if opts := o.Session().Options(); !opts.ExtendedCarry || !opts.ClaimOfferings {
		t.Errorf("Options() = %+v, want both toggles on", opts)
	}
}

func TestStatsSink(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	w := newWorld(opts, nil)
	ch := make(chan session.Stats, 1)
	o, _ := newOrchestrator(t, w, opts, WithStatsSink(ch))

	ctx := context.Background()
	o.Tick(ctx)
	// A full sink must not block the tick.
	o.Tick(ctx)

	st := <-ch
	if st.SessionID != "test" || st.CurrentTask != "bank" {
		t.Errorf("stats = %+v", st)
	}
}
