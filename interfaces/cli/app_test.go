package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// The CLI replaces the global logger, so these tests do not run in parallel.

const simSession = `
name: sim-longbows
version: "1"
items:
  tool: 946
  material: 1511
  output: 52
  container: 28140
locations:
  bank:
    name: bank
    object: bank booth
    area: {min: {x: 0, y: 0}, max: {x: 10, y: 10}}
    entry: {x: 5, y: 5}
  sites:
    - name: altar
      object: altar
      area: {min: {x: 20, y: 20}, max: {x: 30, y: 30}}
      entry: {x: 25, y: 25}
storage:
  driver: sqlite
  dsn: ${HISTORY_DB}
archive:
  url: file://${ARCHIVE_DIR}
`

// writeSession writes the simulated session config with its storage and
// archive below a fresh temp dir.
func writeSession(t *testing.T) (configPath, archiveDir string) {
	t.Helper()
	dir := t.TempDir()
	archiveDir = filepath.Join(dir, "archive")
	content := strings.NewReplacer(
		"${HISTORY_DB}", filepath.Join(dir, "history.db"),
		"${ARCHIVE_DIR}", filepath.ToSlash(archiveDir),
	).Replace(simSession)

	configPath = filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath, archiveDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := New().WithOutput(&stdout, &stderr).ExecuteWithArgs(context.Background(), args)
	return stdout.String(), err
}

func TestApp_Version(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "taskloop version 0.1.0") {
		t.Errorf("version output = %q", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"Tick-driven task orchestrator", "run", "validate", "history", "inspect"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_Validate(t *testing.T) {
	path, _ := writeSession(t)
	out, err := execute(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	for _, want := range []string{"Configuration is valid", "sim-longbows", "History store: sqlite", "Archive: file://"} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(path, []byte("name: \"\"\nversion: \"\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := execute(t, "validate", "-c", path); err == nil {
		t.Fatal("validate command should fail for invalid config")
	}
	if _, err := execute(t, "validate"); err == nil {
		t.Fatal("validate command should fail without a config path")
	}
}

func TestApp_RunRequiresSimulate(t *testing.T) {
	path, _ := writeSession(t)
	if _, err := execute(t, "run", "-c", path); !errors.Is(err, errNoWorld) {
		t.Errorf("run error = %v, want errNoWorld", err)
	}
}

func TestApp_RunSimulated(t *testing.T) {
	path, archiveDir := writeSession(t)
	out, err := execute(t, "run", "-c", path, "--simulate", "--max-laps", "1", "--timeout", "30s", "--json")
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	var s history.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("run output is not a summary: %v\n%s", err, out)
	}
	if s.Outcome != "stopped" {
		t.Errorf("Outcome = %q (%s), want stopped", s.Outcome, s.Reason)
	}
	if s.Laps < 1 || s.Deliveries < 1 {
		t.Errorf("summary = %+v, want at least one lap", s)
	}
	if s.Duration <= 0 || s.Duration > 24*time.Hour {
		t.Errorf("Duration = %v", s.Duration)
	}

	listed, err := execute(t, "history", "list", "-c", path)
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(listed, s.ID) {
		t.Errorf("history list missing %s:\n%s", s.ID, listed)
	}

	shown, err := execute(t, "history", "show", "-c", path, s.ID)
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if !strings.Contains(shown, "Outcome: stopped") {
		t.Errorf("history show output = %q", shown)
	}

	archived := filepath.Join(archiveDir, s.EndedAt.UTC().Format("2006/01/02"), s.ID+".json")
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("archived summary missing: %v", err)
	}
}

func TestApp_HistoryShowUnknown(t *testing.T) {
	path, _ := writeSession(t)
	if _, err := execute(t, "history", "show", "-c", path, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("history show error = %v, want ErrNotFound", err)
	}
}

func TestApp_HistoryListEmpty(t *testing.T) {
	path, _ := writeSession(t)
	out, err := execute(t, "history", "list", "-c", path)
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(out, "No sessions recorded.") {
		t.Errorf("history list output = %q", out)
	}
}

func TestApp_Inspect(t *testing.T) {
	out, err := execute(t, "inspect", "--format", "dot")
	if err != nil {
		t.Fatalf("inspect command failed: %v", err)
	}
	if !strings.Contains(out, "subgraph cluster_delivery") {
		t.Errorf("inspect output = %q", out)
	}

	if _, err := execute(t, "inspect", "--format", "svg"); err == nil {
		t.Error("inspect should reject an unknown format")
	}
}
