package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := bolt.New(bolt.NewJSONHandler(buf)).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"session", SessionID("s-1"), `"session_id":"s-1"`},
		{"task", Task("bank"), `"task":"bank"`},
		{"cursor", Cursor(2), `"cursor":2`},
		{"lap", Lap(7), `"lap":7`},
		{"substate", SubState("withdrawing"), `"substate":"withdrawing"`},
		{"transition", Transition("idle", "depositing"), `"to":"depositing"`},
		{"item", Item(1511, 10), `"count":10`},
		{"site", Site("altar"), `"site":"altar"`},
		{"token", Token("B"), `"token":"B"`},
		{"watchdog", Watchdog("progress_stall"), `"watchdog":"progress_stall"`},
		{"duration", Duration(1500 * time.Millisecond), `"duration_ms":1500`},
		{"budget", Budget("attempts", 2), `"remaining":2`},
		{"reason", Reason("tool missing"), `"reason":"tool missing"`},
		{"component", Component("orchestrator"), `"component":"orchestrator"`},
		{"str", Str("k", "v"), `"k":"v"`},
		{"int", Int("n", 3), `"n":3`},
		{"bool", Bool("ok", true), `"ok":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")
			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("output %s missing %s", buf.String(), tt.want)
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()
		logger, buf := testLogger()
		ErrorField(errors.New("boom"))(logger.Error()).Msg("failed")
		if !bytes.Contains(buf.Bytes(), []byte("boom")) {
			t.Errorf("expected error in output: %s", buf.String())
		}
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("ok")
		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field: %s", buf.String())
		}
	})
}

func TestLogEvent_With(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).With(Task("deliver"), Lap(1)).Add(Reason("done")).Msg("test")

	for _, want := range []string{`"task":"deliver"`, `"lap":1`, `"reason":"done"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("output %s missing %s", buf.String(), want)
		}
	}
}

func TestInitReplacesDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Config{Level: "debug", Format: "json", Output: buf})
	defer Init(Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})

	Debug().Add(Component("test")).Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"test"`)) {
		t.Errorf("expected debug line in output: %s", buf.String())
	}
}
