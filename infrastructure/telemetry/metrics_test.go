package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics creates a provider backed by a manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))

	cfg := DefaultMetricsConfig()
	cfg.Provider = provider
	cfg.Attributes = []attribute.KeyValue{attribute.String("session.id", "test")}
	mp := NewMetricsProvider(cfg)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_Counters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordTaskCompleted(ctx, "bank")
	mp.RecordTaskCompleted(ctx, "produce")
	mp.RecordTaskSkipped(ctx, "bank")
	mp.RecordHandlerFailure(ctx, "deliver", "await_puzzle")
	mp.RecordLap(ctx, false)
	mp.RecordDelivery(ctx, "altar")
	mp.RecordWatchdog(ctx, "position_stall", false)
	mp.RecordAction(ctx, "use", true)
	mp.RecordAction(ctx, "use", false)

	got := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"taskloop.task.completions", 2},
		{"taskloop.task.skips", 1},
		{"taskloop.handler.failures", 1},
		{"taskloop.laps", 1},
		{"taskloop.deliveries", 1},
		{"taskloop.watchdog.fired", 1},
		{"taskloop.actions", 2},
	}
	for _, tt := range tests {
		data, ok := got[tt.name]
		if !ok {
			t.Errorf("%s metric not found", tt.name)
			continue
		}
		if v := sumOf(t, data); v != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, v, tt.want)
		}
	}
}

func TestMetricsProvider_TickAndSession(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordTick(ctx, "bank", 20*time.Millisecond)
	mp.SessionStarted(ctx)
	mp.SessionEnded(ctx, "stopped", time.Minute)

	got := collect(t, reader)
	if v := sumOf(t, got["taskloop.ticks"]); v != 1 {
		t.Errorf("ticks = %d, want 1", v)
	}
	if _, ok := got["taskloop.tick.duration"].(metricdata.Histogram[float64]); !ok {
		t.Errorf("tick duration is %T, want Histogram[float64]", got["taskloop.tick.duration"])
	}
	if v := sumOf(t, got["taskloop.sessions.active"]); v != 0 {
		t.Errorf("active sessions = %d, want 0", v)
	}
}

func TestMetricsProvider_CircuitBreaker(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordCircuitBreakerStateChange(ctx, "actions", true)
	if v := sumOf(t, collect(t, reader)["taskloop.circuitbreaker.open"]); v != 1 {
		t.Errorf("open breakers = %d, want 1", v)
	}
	mp.RecordCircuitBreakerStateChange(ctx, "actions", false)
	if v := sumOf(t, collect(t, reader)["taskloop.circuitbreaker.open"]); v != 0 {
		t.Errorf("open breakers = %d, want 0", v)
	}
}

func TestMetricsProvider_Progress(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordProgress(context.Background(), "s-1", 1200.5)

	gauge, ok := collect(t, reader)["taskloop.progress.rate"].(metricdata.Gauge[float64])
	if !ok || len(gauge.DataPoints) != 1 {
		t.Fatalf("progress rate = %+v, want one gauge point", gauge)
	}
	if v := gauge.DataPoints[0].Value; v != 1200.5 {
		t.Errorf("progress rate = %v, want 1200.5", v)
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	ctx := context.Background()
	m.RecordTick(ctx, "bank", time.Millisecond)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx, "stopped", time.Second)
	m.RecordProgress(ctx, "s-1", 1)
}
