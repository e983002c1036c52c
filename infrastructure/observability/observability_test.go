package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ServiceName != "taskloop" {
		t.Errorf("ServiceName = %s, want taskloop", cfg.ServiceName)
	}
	if cfg.Exporter != ExporterNoop {
		t.Errorf("Exporter = %s, want noop", cfg.Exporter)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithServiceName("svc"),
		WithServiceVersion("1.2.3"),
		WithEnvironment("simulation"),
		WithOTLP("localhost:4317", true),
		WithSampleRate(0.5),
	} {
		opt(&cfg)
	}
	if cfg.ServiceName != "svc" || cfg.ServiceVersion != "1.2.3" || cfg.Environment != "simulation" {
		t.Errorf("service fields = %+v", cfg)
	}
	if cfg.Exporter != ExporterOTLP || cfg.Endpoint != "localhost:4317" || !cfg.Insecure {
		t.Errorf("otlp fields = %+v", cfg)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("SampleRate = %v, want 0.5", cfg.SampleRate)
	}
}

func TestNew_Noop(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "x")
	if span.IsRecording() {
		t.Error("noop tracer span is recording")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_Stdout(t *testing.T) {
	buf := &bytes.Buffer{}
	p, err := New(context.Background(), WithStdout(buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "taskloop.test")
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("taskloop.test")) {
		t.Errorf("stdout exporter output missing span: %s", buf.String())
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), func(c *Config) { c.Exporter = "carrier-pigeon" })
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestTickSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, span := StartTick(context.Background(), tracer, "s-1", 2, 5)
	EndTick(span, "deliver", "await_puzzle", "pending", "puzzle dialogue did not appear")

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	got := ended[0]
	if got.Name() != "taskloop.tick" {
		t.Errorf("Name() = %s, want taskloop.tick", got.Name())
	}
	attrs := map[string]string{}
	for _, kv := range got.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[string(AttrTask)] != "deliver" || attrs[string(AttrCursor)] != "2" {
		t.Errorf("attributes = %v", attrs)
	}
	if got.Status().Description != "puzzle dialogue did not appear" {
		t.Errorf("Status() = %+v", got.Status())
	}
}
