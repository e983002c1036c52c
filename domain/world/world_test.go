package world

import (
	"context"
	"testing"
	"time"
)

func TestArea_Contains(t *testing.T) {
	t.Parallel()

	area := Area{Min: Position{X: 10, Y: 10}, Max: Position{X: 20, Y: 15}}

	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"inside", Position{X: 12, Y: 12}, true},
		{"min corner", Position{X: 10, Y: 10}, true},
		{"max corner", Position{X: 20, Y: 15}, true},
		{"left of area", Position{X: 9, Y: 12}, false},
		{"above area", Position{X: 12, Y: 16}, false},
		{"other plane", Position{X: 12, Y: 12, Plane: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := area.Contains(tt.pos); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestArea_IsZero(t *testing.T) {
	t.Parallel()

	if !(Area{}).IsZero() {
		t.Error("zero Area.IsZero() = false")
	}
	if (Area{Max: Position{X: 1}}).IsZero() {
		t.Error("non-zero Area.IsZero() = true")
	}
}

func TestCounts(t *testing.T) {
	t.Parallel()

	c := Counts{1: 3, 2: 0, 3: 5}
	if c.Get(1) != 3 {
		t.Errorf("Get(1) = %d, want 3", c.Get(1))
	}
	if c.Has(2) {
		t.Error("Has(2) = true for zero count")
	}
	if c.Get(99) != 0 {
		t.Errorf("Get(99) = %d, want 0", c.Get(99))
	}
	if c.Total() != 8 {
		t.Errorf("Total() = %d, want 8", c.Total())
	}
}

type staticQuery struct {
	pos    Position
	inv    Counts
	xp     int64
	panels map[PanelKind]PanelState
}

func (q staticQuery) Position(context.Context) (Position, bool) { return q.pos, true }
func (q staticQuery) ContainerSnapshot(_ context.Context, _ ContainerKind, _ []ItemID) (Counts, bool) {
	return q.inv, q.inv != nil
}
func (q staticQuery) UIPanelState(_ context.Context, kind PanelKind) PanelState {
	return q.panels[kind]
}
func (q staticQuery) Experience(context.Context) (int64, bool) { return q.xp, true }

func TestCapture(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	q := staticQuery{
		pos: Position{X: 4, Y: 5},
		inv: Counts{7: 2},
		xp:  1234,
		panels: map[PanelKind]PanelState{
			PanelBank: {Kind: PanelBank, Visible: true},
		},
	}

	s := Capture(context.Background(), q, now, PanelBank)

	if !s.TakenAt.Equal(now) {
		t.Errorf("TakenAt = %v, want %v", s.TakenAt, now)
	}
	if !s.HasPosition || s.Position != q.pos {
		t.Errorf("Position = %v (%v), want %v", s.Position, s.HasPosition, q.pos)
	}
	if s.Count(7) != 2 {
		t.Errorf("Count(7) = %d, want 2", s.Count(7))
	}
	if s.Experience != 1234 {
		t.Errorf("Experience = %d, want 1234", s.Experience)
	}
	if !s.Panel(PanelBank).Visible {
		t.Error("Panel(bank) not visible")
	}
	if s.Panel(PanelPuzzle).Visible {
		t.Error("uncaptured panel reported visible")
	}
}

func TestCapture_MissingInventory(t *testing.T) {
	t.Parallel()

	s := Capture(context.Background(), staticQuery{}, time.Now())
	if s.HasInventory {
		t.Error("HasInventory = true, want false")
	}
	if s.Inventory == nil {
		t.Error("Inventory should be non-nil even when unavailable")
	}
}
