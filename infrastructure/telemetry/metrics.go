// Package telemetry provides OpenTelemetry metrics for the task loop.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter
	attrs []attribute.KeyValue

	// Counters
	ticks           metric.Int64Counter
	taskCompletions metric.Int64Counter
	taskSkips       metric.Int64Counter
	handlerFailures metric.Int64Counter
	laps            metric.Int64Counter
	deliveries      metric.Int64Counter
	stalls          metric.Int64Counter
	actions         metric.Int64Counter

	// Histograms
	tickDuration    metric.Float64Histogram
	sessionDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeSessions     metric.Int64UpDownCounter
	circuitBreakerOpen metric.Int64UpDownCounter
	progressRate       metric.Float64Gauge

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/taskloop").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider is the meter provider. Nil uses the global provider.
	Provider metric.MeterProvider
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/taskloop",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
		attrs: config.Attributes,
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var errs []error
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := mp.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := mp.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		errs = append(errs, err)
		return h
	}
	gauge := func(name, desc, unit string) metric.Int64UpDownCounter {
		g, err := mp.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return g
	}

	mp.ticks = counter("taskloop.ticks", "Number of orchestrator ticks", "{tick}")
	mp.taskCompletions = counter("taskloop.task.completions", "Number of completed tasks", "{task}")
	mp.taskSkips = counter("taskloop.task.skips", "Number of tasks skipped by the resource gate", "{task}")
	mp.handlerFailures = counter("taskloop.handler.failures", "Number of failed handler attempts", "{attempt}")
	mp.laps = counter("taskloop.laps", "Number of completed laps", "{lap}")
	mp.deliveries = counter("taskloop.deliveries", "Number of completed deliveries", "{delivery}")
	mp.stalls = counter("taskloop.watchdog.fired", "Number of watchdog firings", "{firing}")
	mp.actions = counter("taskloop.actions", "Number of world interactions", "{action}")

	mp.tickDuration = histogram("taskloop.tick.duration", "Duration of orchestrator ticks")
	mp.sessionDuration = histogram("taskloop.session.duration", "Duration of sessions")

	mp.activeSessions = gauge("taskloop.sessions.active", "Number of running sessions", "{session}")
	mp.circuitBreakerOpen = gauge("taskloop.circuitbreaker.open", "Number of open circuit breakers", "{circuit}")

	rate, err := mp.meter.Float64Gauge("taskloop.progress.rate",
		metric.WithDescription("Experience gained per hour"), metric.WithUnit("{xp}/h"))
	errs = append(errs, err)
	mp.progressRate = rate

	return errors.Join(errs...)
}

// RecordProgress records the current progress rate of a session.
func (mp *MetricsProvider) RecordProgress(ctx context.Context, sessionID string, rate float64) {
	mp.progressRate.Record(ctx, rate, mp.with(attribute.String("session_id", sessionID)))
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

func (mp *MetricsProvider) with(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append(attrs, mp.attrs...)...)
}

// RecordTick records one orchestrator tick.
func (mp *MetricsProvider) RecordTick(ctx context.Context, task string, duration time.Duration) {
	opt := mp.with(attribute.String("task", task))
	mp.ticks.Add(ctx, 1, opt)
	mp.tickDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordTaskCompleted records a completed task.
func (mp *MetricsProvider) RecordTaskCompleted(ctx context.Context, task string) {
	mp.taskCompletions.Add(ctx, 1, mp.with(attribute.String("task", task)))
}

// RecordTaskSkipped records a task skipped by the resource gate.
func (mp *MetricsProvider) RecordTaskSkipped(ctx context.Context, task string) {
	mp.taskSkips.Add(ctx, 1, mp.with(attribute.String("task", task)))
}

// RecordHandlerFailure records a failed handler attempt.
func (mp *MetricsProvider) RecordHandlerFailure(ctx context.Context, task, substate string) {
	mp.handlerFailures.Add(ctx, 1, mp.with(attribute.String("task", task), attribute.String("substate", substate)))
}

// RecordLap records a completed lap.
func (mp *MetricsProvider) RecordLap(ctx context.Context, offeringReset bool) {
	mp.laps.Add(ctx, 1, mp.with(attribute.Bool("offering.reset", offeringReset)))
}

// RecordDelivery records a completed delivery.
func (mp *MetricsProvider) RecordDelivery(ctx context.Context, site string) {
	mp.deliveries.Add(ctx, 1, mp.with(attribute.String("site", site)))
}

// RecordWatchdog records a watchdog firing.
func (mp *MetricsProvider) RecordWatchdog(ctx context.Context, kind string, terminal bool) {
	mp.stalls.Add(ctx, 1, mp.with(attribute.String("watchdog.kind", kind), attribute.Bool("terminal", terminal)))
}

// RecordAction records one world interaction.
func (mp *MetricsProvider) RecordAction(ctx context.Context, action string, success bool) {
	mp.actions.Add(ctx, 1, mp.with(attribute.String("action", action), attribute.Bool("success", success)))
}

// SessionStarted increments the active sessions gauge.
func (mp *MetricsProvider) SessionStarted(ctx context.Context) {
	mp.activeSessions.Add(ctx, 1, mp.with())
}

// SessionEnded decrements the active sessions gauge and records the
// session duration.
func (mp *MetricsProvider) SessionEnded(ctx context.Context, outcome string, duration time.Duration) {
	mp.activeSessions.Add(ctx, -1, mp.with())
	mp.sessionDuration.Record(ctx, float64(duration.Milliseconds()), mp.with(attribute.String("outcome", outcome)))
}

// RecordCircuitBreakerStateChange records a circuit breaker state change.
func (mp *MetricsProvider) RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool) {
	delta := int64(-1)
	if isOpen {
		delta = 1
	}
	mp.circuitBreakerOpen.Add(ctx, delta, mp.with(attribute.String("breaker", name)))
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordTick is a no-op.
func (NoopMetricsProvider) RecordTick(context.Context, string, time.Duration) {}

// RecordTaskCompleted is a no-op.
func (NoopMetricsProvider) RecordTaskCompleted(context.Context, string) {}

// RecordTaskSkipped is a no-op.
func (NoopMetricsProvider) RecordTaskSkipped(context.Context, string) {}

// RecordHandlerFailure is a no-op.
func (NoopMetricsProvider) RecordHandlerFailure(context.Context, string, string) {}

// RecordLap is a no-op.
func (NoopMetricsProvider) RecordLap(context.Context, bool) {}

// RecordDelivery is a no-op.
func (NoopMetricsProvider) RecordDelivery(context.Context, string) {}

// RecordWatchdog is a no-op.
func (NoopMetricsProvider) RecordWatchdog(context.Context, string, bool) {}

// RecordAction is a no-op.
func (NoopMetricsProvider) RecordAction(context.Context, string, bool) {}

// SessionStarted is a no-op.
func (NoopMetricsProvider) SessionStarted(context.Context) {}

// SessionEnded is a no-op.
func (NoopMetricsProvider) SessionEnded(context.Context, string, time.Duration) {}

// RecordCircuitBreakerStateChange is a no-op.
func (NoopMetricsProvider) RecordCircuitBreakerStateChange(context.Context, string, bool) {}

// RecordProgress is a no-op.
func (NoopMetricsProvider) RecordProgress(context.Context, string, float64) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordTick(ctx context.Context, task string, duration time.Duration)
	RecordTaskCompleted(ctx context.Context, task string)
	RecordTaskSkipped(ctx context.Context, task string)
	RecordHandlerFailure(ctx context.Context, task, substate string)
	RecordLap(ctx context.Context, offeringReset bool)
	RecordDelivery(ctx context.Context, site string)
	RecordWatchdog(ctx context.Context, kind string, terminal bool)
	RecordAction(ctx context.Context, action string, success bool)
	SessionStarted(ctx context.Context)
	SessionEnded(ctx context.Context, outcome string, duration time.Duration)
	RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool)
	RecordProgress(ctx context.Context, sessionID string, rate float64)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
