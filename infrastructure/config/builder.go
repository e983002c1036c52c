package config

import (
	"fmt"
	"io"
	"os"
	"time"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/watchdog"
	"github.com/felixgeelhaar/taskloop/infrastructure/observability"
	"github.com/felixgeelhaar/taskloop/infrastructure/reporter"
	"github.com/felixgeelhaar/taskloop/infrastructure/resilience"
)

// Builder builds session components from configuration.
type Builder struct {
	config *domainconfig.SessionConfig
	traces io.Writer
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.SessionConfig) *Builder {
	return &Builder{config: config, traces: os.Stdout}
}

// WithTraceOutput sets where the stdout exporter writes.
func (b *Builder) WithTraceOutput(w io.Writer) *Builder {
	b.traces = w
	return b
}

// BuildResult contains the built components from configuration.
type BuildResult struct {
	// Options is the session configuration for the orchestrator.
	Options session.Options
	// Watchdog holds the stall windows.
	Watchdog watchdog.Config
	// ActiveDelay and IdleDelay are the delays Tick returns. Zero keeps the
	// orchestrator defaults.
	ActiveDelay time.Duration
	IdleDelay   time.Duration
	// Resilience configures the action executor decorators.
	Resilience []resilience.Option
	// Reporter is nil when reporting is disabled.
	Reporter *reporter.Config
	// Observability configures the tracer provider.
	Observability []observability.Option
	// Storage selects the session history store.
	Storage domainconfig.StorageConfig
	// Archive is nil when no archive URL is configured.
	Archive *domainconfig.ArchiveConfig
}

// Build builds the session components from configuration.
func (b *Builder) Build() (*BuildResult, error) {
	if b.config == nil {
		return nil, fmt.Errorf("%w: configuration is nil", domainconfig.ErrBuildFailed)
	}

	result := &BuildResult{
		Options:     b.buildOptions(),
		Watchdog:    b.buildWatchdog(),
		ActiveDelay: b.config.Timing.ActiveDelay.Duration(),
		IdleDelay:   b.config.Timing.IdleDelay.Duration(),
		Resilience:  b.buildResilience(),
		Reporter:    b.buildReporter(),
		Storage:     b.config.Storage,
	}
	if b.config.Archive.URL != "" {
		archive := b.config.Archive
		result.Archive = &archive
	}

	obs, err := b.buildObservability()
	if err != nil {
		return nil, fmt.Errorf("building observability: %w", err)
	}
	result.Observability = obs

	return result, nil
}

func (b *Builder) buildOptions() session.Options {
	c := b.config
	opts := session.DefaultOptions()

	opts.Tool = c.Items.Tool
	opts.Material = c.Items.Material
	opts.Output = c.Items.Output
	opts.Container = c.Items.Container

	opts.ExtendedCarry = c.Loop.ExtendedCarry
	opts.ClaimOfferings = c.Loop.ClaimOfferings
	setInt(&opts.OutputTarget, c.Loop.OutputTarget)
	setInt(&opts.MaterialReserve, c.Loop.MaterialReserve)
	setInt(&opts.InventoryCapacity, c.Loop.InventoryCapacity)
	setInt(&opts.ContainerBatch, c.Loop.ContainerBatch)
	setInt(&opts.ContainerGainMargin, c.Loop.ContainerGainMargin)
	setInt(&opts.MaxRetries, c.Loop.MaxRetries)
	opts.GoalExperience = c.Loop.GoalExperience

	opts.Bank = c.Locations.Bank
	opts.Sites = append([]session.Site(nil), c.Locations.Sites...)
	opts.StartArea = c.Locations.StartArea
	opts.ProblemAreas = append(opts.ProblemAreas[:0:0], c.Locations.ProblemAreas...)
	opts.SafeWaypoint = c.Locations.SafeWaypoint

	if c.Delivery.CompletionPhrase != "" {
		opts.CompletionPhrase = c.Delivery.CompletionPhrase
	}
	setInt(&opts.MessageWindow, c.Delivery.MessageWindow)
	setInt(&opts.OfferingMin, c.Delivery.OfferingMin)
	setInt(&opts.OfferingMax, c.Delivery.OfferingMax)
	if opts.OfferingMin > opts.OfferingMax {
		opts.OfferingMax = opts.OfferingMin
	}

	t := c.Timing
	opts.Timing = session.Timing{
		ActionTimeout:     t.ActionTimeout.Or(opts.Timing.ActionTimeout),
		FletchTimeout:     t.FletchTimeout.Or(opts.Timing.FletchTimeout),
		ProduceTimeout:    t.ProduceTimeout.Or(opts.Timing.ProduceTimeout),
		TravelTimeout:     t.TravelTimeout.Or(opts.Timing.TravelTimeout),
		CompletionTimeout: t.CompletionTimeout.Or(opts.Timing.CompletionTimeout),
		PaceMin:           t.PaceMin.Or(opts.Timing.PaceMin),
		PaceMax:           t.PaceMax.Or(opts.Timing.PaceMax),
	}
	if opts.Timing.PaceMin > opts.Timing.PaceMax {
		opts.Timing.PaceMax = opts.Timing.PaceMin
	}

	return opts
}

func (b *Builder) buildWatchdog() watchdog.Config {
	w := watchdog.DefaultConfig()
	c := b.config.Watchdog
	return watchdog.Config{
		PositionWindow: c.PositionWindow.Or(w.PositionWindow),
		ProgressWindow: c.ProgressWindow.Or(w.ProgressWindow),
		TaskWindow:     c.TaskWindow.Or(w.TaskWindow),
		ProblemAreas:   b.config.Locations.ProblemAreas,
	}
}

func (b *Builder) buildResilience() []resilience.Option {
	c := b.config.Resilience
	var opts []resilience.Option

	if c.Retry.Enabled {
		opts = append(opts, resilience.WithRetryAttempts(c.Retry.MaxAttempts))
		if c.Retry.InitialDelay > 0 {
			opts = append(opts, resilience.WithRetryDelay(c.Retry.InitialDelay.Duration()))
		}
	}
	if c.CircuitBreaker.Enabled {
		opts = append(opts, resilience.WithCircuitBreakerThreshold(c.CircuitBreaker.Threshold))
		if c.CircuitBreaker.Timeout > 0 {
			opts = append(opts, resilience.WithCircuitBreakerTimeout(c.CircuitBreaker.Timeout.Duration()))
		}
	}
	if c.RateLimit.Enabled {
		opts = append(opts, resilience.WithTapRate(c.RateLimit.Rate, c.RateLimit.Burst))
	}

	return opts
}

func (b *Builder) buildReporter() *reporter.Config {
	c := b.config.Reporter
	if !c.Enabled {
		return nil
	}
	return &reporter.Config{
		Endpoint: reporter.Endpoint{
			URL:     c.Endpoint.URL,
			Secret:  c.Endpoint.Secret,
			Headers: c.Endpoint.Headers,
		},
		Interval: c.Interval.Or(reporter.DefaultInterval),
	}
}

func (b *Builder) buildObservability() ([]observability.Option, error) {
	c := b.config.Telemetry
	opts := []observability.Option{
		observability.WithServiceName("taskloop"),
	}
	if b.config.Name != "" {
		opts = append(opts, observability.WithEnvironment(b.config.Name))
	}

	switch observability.ExporterType(c.Exporter) {
	case "", observability.ExporterNoop:
	case observability.ExporterStdout:
		opts = append(opts, observability.WithStdout(b.traces))
	case observability.ExporterOTLP:
		opts = append(opts, observability.WithOTLP(c.Endpoint, c.Insecure))
	default:
		return nil, fmt.Errorf("%w: %s", observability.ErrUnknownExporter, c.Exporter)
	}

	if c.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(c.SampleRate))
	}
	return opts, nil
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
