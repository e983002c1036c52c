package config

import (
	"errors"
	"testing"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestEnvExpander_Expand(t *testing.T) {
	t.Parallel()

	env := mapLookup(map[string]string{
		"TOOL":  "946",
		"EMPTY": "",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bracket syntax", "${TOOL}", "946"},
		{"dollar syntax", "$TOOL", "946"},
		{"embedded in text", "tool: ${TOOL} # knife", "tool: 946 # knife"},
		{"default when unset", "${MISSING:-1515}", "1515"},
		{"default when empty", "${EMPTY:-66}", "66"},
		{"default ignored when set", "${TOOL:-1}", "946"},
		{"unset becomes empty", "[${MISSING}]", "[]"},
		{"no variables", "name: yew", "name: yew"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := newEnvExpander(env, false).Expand(tt.input)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvExpander_Required(t *testing.T) {
	t.Parallel()

	e := newEnvExpander(mapLookup(nil), false)
	_, err := e.Expand("secret: ${WEBHOOK_SECRET:?set the webhook secret}")
	if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
		t.Fatalf("Expand() error = %v, want ErrMissingEnvVar", err)
	}
}

func TestEnvExpander_Strict(t *testing.T) {
	t.Parallel()

	e := newEnvExpander(mapLookup(nil), true)
	if _, err := e.Expand("${A} $B"); !errors.Is(err, domainconfig.ErrMissingEnvVar) {
		t.Fatalf("Expand() error = %v, want ErrMissingEnvVar", err)
	}
	if len(e.missing) != 2 {
		t.Errorf("missing = %v, want A and B", e.missing)
	}

	if _, err := e.Expand("${A:-fallback}"); err != nil {
		t.Errorf("defaults must satisfy strict mode, got %v", err)
	}
}

func TestExpandEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("TASKLOOP_TEST_SITE", "north")

	if got := ExpandEnv("site: ${TASKLOOP_TEST_SITE}"); got != "site: north" {
		t.Errorf("ExpandEnv() = %q", got)
	}
	if _, err := ExpandEnvStrict("${TASKLOOP_TEST_UNSET_VAR}"); err == nil {
		t.Error("ExpandEnvStrict() expected an error for an unset variable")
	}
}
