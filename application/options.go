package application

import (
	"math/rand/v2"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/watchdog"
	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Default poll delays.
const (
	DefaultActiveDelay = 150 * time.Millisecond
	DefaultIdleDelay   = 600 * time.Millisecond
)

// Config contains configuration for the orchestrator.
type Config struct {
	SessionID string
	Options   session.Options
	Watchdog  watchdog.Config

	World   world.WorldQuery
	Actions world.ActionExecutor
	Scanner world.TokenScanner
	Clock   world.Clock

	// Rand drives pacing and the offering threshold. Nil seeds randomly.
	Rand *rand.Rand

	Metrics telemetry.Metrics
	Tracer  trace.Tracer

	// StatsSink receives a stats snapshot after every tick. Sends never
	// block; a full channel drops the snapshot.
	StatsSink chan<- session.Stats

	ActiveDelay time.Duration
	IdleDelay   time.Duration
}

// Option configures the orchestrator.
type Option func(*Config)

// WithSessionID sets the session identifier.
func WithSessionID(id string) Option {
	return func(c *Config) {
		c.SessionID = id
	}
}

// WithOptions sets the session options.
func WithOptions(opts session.Options) Option {
	return func(c *Config) {
		c.Options = opts
	}
}

// WithWatchdog sets the watchdog windows.
func WithWatchdog(cfg watchdog.Config) Option {
	return func(c *Config) {
		c.Watchdog = cfg
	}
}

// WithWorld sets the world query, executor and scanner from one value.
func WithWorld(w interface {
	world.WorldQuery
	world.ActionExecutor
	world.TokenScanner
}) Option {
	return func(c *Config) {
		c.World = w
		c.Actions = w
		c.Scanner = w
	}
}

// WithActions overrides the action executor.
func WithActions(a world.ActionExecutor) Option {
	return func(c *Config) {
		c.Actions = a
	}
}

// WithClock sets the clock.
func WithClock(clock world.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(c *Config) {
		c.Rand = r
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer used for tick spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// WithStatsSink sets the channel that receives stats snapshots.
func WithStatsSink(ch chan<- session.Stats) Option {
	return func(c *Config) {
		c.StatsSink = ch
	}
}

// WithDelays sets the active and idle poll delays.
func WithDelays(active, idle time.Duration) Option {
	return func(c *Config) {
		c.ActiveDelay = active
		c.IdleDelay = idle
	}
}

// NewOrchestratorWithOptions creates an orchestrator with functional options.
// Unset session options and watchdog windows use their defaults.
func NewOrchestratorWithOptions(opts ...Option) (*Orchestrator, error) {
	config := Config{
		Options:  session.DefaultOptions(),
		Watchdog: watchdog.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return NewOrchestrator(config)
}
