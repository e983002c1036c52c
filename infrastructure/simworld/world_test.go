package simworld

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

func TestClock_Sleep(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Sleep(context.Background(), 250*time.Millisecond)
	c.Sleep(context.Background(), 0)
	c.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Sleep(ctx, time.Hour)

	if got, want := c.Now(), start.Add(1250*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	if s := c.Sleeps(); len(s) != 1 || s[0] != 250*time.Millisecond {
		t.Errorf("Sleeps() = %v", s)
	}
}

func TestWorld_MoveTo(t *testing.T) {
	t.Parallel()

	w := New(Config{Position: world.Position{X: 0, Y: 0}})
	dest := world.Position{X: 3, Y: 1}

	if !w.MoveTo(context.Background(), dest, nil, time.Minute) {
		t.Fatal("MoveTo() should arrive")
	}
	if p, _ := w.Position(context.Background()); p != dest {
		t.Errorf("Position() = %+v, want %+v", p, dest)
	}
	if got := w.Clock().Now().Sub(New(Config{}).Clock().Now()); got != 3*300*time.Millisecond {
		t.Errorf("walk took %v, want three tiles", got)
	}

	w.Freeze(true)
	if w.MoveTo(context.Background(), world.Position{}, nil, time.Second) {
		t.Error("MoveTo() should time out while frozen")
	}
}

func TestWorld_BlindAndFailNext(t *testing.T) {
	t.Parallel()

	w := New(Config{Inventory: world.Counts{1: 1, 2: 0}})

	counts, ok := w.ContainerSnapshot(context.Background(), world.ContainerInventory, nil)
	if !ok || counts[1] != 1 {
		t.Fatalf("ContainerSnapshot() = %v, %v", counts, ok)
	}
	if _, present := counts[2]; present {
		t.Error("zero counts should be omitted")
	}

	w.Blind(true)
	if _, ok := w.ContainerSnapshot(context.Background(), world.ContainerInventory, nil); ok {
		t.Error("ContainerSnapshot() should be unavailable while blind")
	}

	w.FailNext(world.ActionOpen, 1)
	if w.Interact(context.Background(), world.Target{}, world.ActionOpen) {
		t.Error("Interact() should fail once after FailNext")
	}
	if calls := w.CallsFor(world.ActionOpen); len(calls) != 1 || calls[0].OK {
		t.Errorf("CallsFor(open) = %+v", calls)
	}
}

func TestWorld_Stow(t *testing.T) {
	t.Parallel()

	w := New(Config{Inventory: world.Counts{7: 2, 9: 1}, Bank: world.Counts{7: 3}})
	w.Stow(7)
	w.Stow(8)

	if got := w.Inventory(); got.Has(7) || got.Get(9) != 1 {
		t.Errorf("Inventory() = %v, want only item 9", got)
	}
	if got := w.BankCounts(); got.Get(7) != 5 || got.Has(8) {
		t.Errorf("BankCounts() = %v, want 5 of item 7", got)
	}
}
