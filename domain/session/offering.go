package session

import "math/rand/v2"

// OfferingCycle decides on which laps the bonus offering is claimed.
//
// Each delivery counts a trip. Reaching the threshold raises the collect flag.
// Only a lap that ends with the flag raised and the claim made resets the
// counter and draws a new threshold.
type OfferingCycle struct {
	min, max  int
	rng       *rand.Rand
	trips     int
	threshold int
	collect   bool
	collected bool
	resets    int
}

// NewOfferingCycle creates a cycle with thresholds drawn from [lo, hi].
// A nil rng uses a randomly seeded source.
func NewOfferingCycle(lo, hi int, rng *rand.Rand) *OfferingCycle {
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	o := &OfferingCycle{min: lo, max: hi, rng: rng}
	o.threshold = o.draw()
	return o
}

func (o *OfferingCycle) draw() int {
	return o.min + o.rng.IntN(o.max-o.min+1)
}

// RecordTrip counts a completed delivery.
func (o *OfferingCycle) RecordTrip() {
	o.trips++
	if o.trips >= o.threshold {
		o.collect = true
	}
}

// ShouldCollect reports whether the bonus should be claimed this lap.
func (o *OfferingCycle) ShouldCollect() bool {
	return o.collect && !o.collected
}

// MarkCollected records a successful claim.
func (o *OfferingCycle) MarkCollected() {
	if o.collect {
		o.collected = true
	}
}

// EndLap closes a lap. It reports whether the counter was reset.
func (o *OfferingCycle) EndLap() bool {
	if !o.collect || !o.collected {
		return false
	}
	o.trips = 0
	o.threshold = o.draw()
	o.collect = false
	o.collected = false
	o.resets++
	return true
}

// Trips returns the trips counted since the last reset.
func (o *OfferingCycle) Trips() int { return o.trips }

// Threshold returns the current threshold.
func (o *OfferingCycle) Threshold() int { return o.threshold }

// Collecting reports whether the collect flag is raised.
func (o *OfferingCycle) Collecting() bool { return o.collect }

// Resets returns how many times the cycle has been re-randomized.
func (o *OfferingCycle) Resets() int { return o.resets }
