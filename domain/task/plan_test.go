package task

import (
	"errors"
	"testing"
)

func TestType_IsValid(t *testing.T) {
	t.Parallel()

	for _, typ := range AllTypes() {
		if !typ.IsValid() {
			t.Errorf("%s.IsValid() = false", typ)
		}
	}
	if Type("mine").IsValid() {
		t.Error("unknown type reported valid")
	}
}

func TestType_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  Type
		want bool
	}{
		{TypeBank, false},
		{TypeProduce, false},
		{TypeContainer, false},
		{TypeDeliver, true},
	}
	for _, tt := range tests {
		if got := tt.typ.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestNewPlan_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewPlan(); !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("NewPlan() error = %v, want ErrEmptyPlan", err)
	}
	if _, err := NewPlan(TypeBank, Type("fish")); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("NewPlan(bank, fish) error = %v, want ErrUnknownTask", err)
	}
}

func TestPlan_CursorWrapsAfterLen(t *testing.T) {
	t.Parallel()

	for _, opts := range []Options{{}, {ExtendedCarry: true}} {
		p := PlanFor(opts)
		for i := 0; i < p.Len(); i++ {
			wrapped := p.Advance()
			last := i == p.Len()-1
			if wrapped != last {
				t.Errorf("Advance() #%d wrapped = %v, want %v", i, wrapped, last)
			}
		}
		if p.Cursor() != 0 {
			t.Errorf("Cursor() after %d advances = %d, want 0", p.Len(), p.Cursor())
		}
	}
}

func TestLayout(t *testing.T) {
	t.Parallel()

	base := Layout(Options{})
	want := []Type{TypeBank, TypeProduce, TypeDeliver}
	if len(base) != len(want) {
		t.Fatalf("Layout() = %v, want %v", base, want)
	}
	for i := range want {
		if base[i] != want[i] {
			t.Errorf("Layout()[%d] = %s, want %s", i, base[i], want[i])
		}
	}

	ext := PlanFor(Options{ExtendedCarry: true})
	if ext.IndexOf(TypeContainer) < 0 {
		t.Error("extended carry plan lacks the container step")
	}
	if ext.Steps()[ext.Len()-1] != TypeDeliver {
		t.Error("delivery must stay the last step")
	}
}

func TestPlan_RebuildKeepsCurrentTask(t *testing.T) {
	t.Parallel()

	p := PlanFor(Options{})
	p.Advance() // produce

	next := p.Rebuild(Options{ExtendedCarry: true})
	if next == p {
		t.Fatal("Rebuild() returned the same plan")
	}
	if next.Current() != TypeProduce {
		t.Errorf("Current() after rebuild = %s, want produce", next.Current())
	}
	if p.Len() != 3 {
		t.Error("Rebuild() mutated the original plan")
	}
}

func TestPlan_RebuildDropsRemovedStep(t *testing.T) {
	t.Parallel()

	p := PlanFor(Options{ExtendedCarry: true})
	p.Advance() // container

	next := p.Rebuild(Options{})
	if next.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0 when the current step was removed", next.Cursor())
	}
}

func TestPlan_SeekKeepsLapOpen(t *testing.T) {
	t.Parallel()

	p := PlanFor(Options{ExtendedCarry: true})
	for p.Current() != TypeProduce {
		if p.Advance() {
			t.Fatal("wrapped before reaching produce")
		}
	}
	if !p.Seek(TypeBank) {
		t.Fatal("Seek(bank) = false")
	}
	if p.Current() != TypeBank || p.Cursor() != p.IndexOf(TypeBank) {
		t.Errorf("Current() = %s at %d, want bank", p.Current(), p.Cursor())
	}

	plain := PlanFor(Options{})
	plain.Advance()
	at := plain.Cursor()
	if plain.Seek(TypeContainer) {
		t.Error("Seek(container) = true on a plan without it")
	}
	if plain.Cursor() != at {
		t.Errorf("Cursor() = %d after failed seek, want %d", plain.Cursor(), at)
	}
}

func TestShortfall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                        string
		output, minOutput, minAfter int
		want                        int
	}{
		{"below target", 15, 20, 5, 10},
		{"at target", 20, 20, 5, 5},
		{"above target", 25, 20, 5, 5},
		{"empty", 0, 20, 5, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Shortfall(tt.output, tt.minOutput, tt.minAfter); got != tt.want {
				t.Errorf("Shortfall() = %d, want %d", got, tt.want)
			}
		})
	}
}
