package session

import (
	"math/rand/v2"
	"testing"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestOfferingCycle_ThresholdInRange(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		o := NewOfferingCycle(4, 8, rand.New(rand.NewPCG(uint64(i), 7)))
		if th := o.Threshold(); th < 4 || th > 8 {
			t.Fatalf("Threshold() = %d, want within [4, 8]", th)
		}
	}
}

func TestOfferingCycle_FlagRaisedAtThreshold(t *testing.T) {
	t.Parallel()

	o := NewOfferingCycle(3, 3, seeded())
	o.RecordTrip()
	o.RecordTrip()
	if o.ShouldCollect() {
		t.Fatal("ShouldCollect() = true before threshold")
	}
	o.RecordTrip()
	if !o.ShouldCollect() {
		t.Fatal("ShouldCollect() = false at threshold")
	}
}

func TestOfferingCycle_ResetOnlyAfterCollectingLap(t *testing.T) {
	t.Parallel()

	o := NewOfferingCycle(2, 6, seeded())

	laps := 0
	for !o.Collecting() {
		if o.EndLap() {
			t.Fatalf("EndLap() reset on lap %d without the collect flag", laps)
		}
		o.RecordTrip()
		laps++
	}

	// Flag raised but nothing claimed yet: no reset.
	if o.EndLap() {
		t.Fatal("EndLap() reset before the claim was made")
	}
	if o.Trips() == 0 {
		t.Fatal("Trips() cleared without a reset")
	}

	o.MarkCollected()
	if o.ShouldCollect() {
		t.Error("ShouldCollect() = true after MarkCollected")
	}
	if !o.EndLap() {
		t.Fatal("EndLap() did not reset after a collecting lap")
	}
	if o.Trips() != 0 {
		t.Errorf("Trips() = %d after reset, want 0", o.Trips())
	}
	if o.Collecting() {
		t.Error("Collecting() = true after reset")
	}
	if o.Resets() != 1 {
		t.Errorf("Resets() = %d, want 1", o.Resets())
	}
}

func TestOfferingCycle_MarkCollectedWithoutFlagIsIgnored(t *testing.T) {
	t.Parallel()

	o := NewOfferingCycle(5, 5, seeded())
	o.MarkCollected()
	o.RecordTrip()
	if o.EndLap() {
		t.Error("EndLap() reset although the flag was never raised")
	}
}

func TestNewOfferingCycle_ClampsBounds(t *testing.T) {
	t.Parallel()

	o := NewOfferingCycle(0, -3, nil)
	if o.Threshold() != 1 {
		t.Errorf("Threshold() = %d, want 1", o.Threshold())
	}
}
