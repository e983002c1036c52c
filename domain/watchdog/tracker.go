// Package watchdog tracks the session-level safety nets: a local position
// stall inside known problem areas, and the session-ending progress and task
// churn stalls.
package watchdog

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// Kind identifies which watchdog fired.
type Kind string

// Watchdog kinds.
const (
	KindNone      Kind = ""
	KindPosition  Kind = "position_stall"
	KindProgress  Kind = "progress_stall"
	KindTaskChurn Kind = "task_churn"
)

// Config holds the watchdog windows. A zero window disables that check.
type Config struct {
	PositionWindow time.Duration
	ProgressWindow time.Duration
	TaskWindow     time.Duration
	ProblemAreas   []world.Area
}

// DefaultConfig returns the default windows.
func DefaultConfig() Config {
	return Config{
		PositionWindow: 10 * time.Second,
		ProgressWindow: 5 * time.Minute,
		TaskWindow:     20 * time.Minute,
	}
}

// Verdict is the outcome of one observation.
type Verdict struct {
	Kind Kind
	// Recover asks the caller for a one-shot recovery move.
	Recover bool
	// Terminate asks the caller to end the session.
	Terminate bool
	// Area is the problem area the agent is stuck in, for position stalls.
	Area   world.Area
	Since  time.Duration
	Reason string
}

// Tracker remembers the last observed position, progress counter and plan
// advance, and when each last changed.
type Tracker struct {
	cfg     Config
	started bool

	pos    world.Position
	hasPos bool
	posAt  time.Time

	xp    int64
	hasXP bool
	xpAt  time.Time

	advances  uint64
	advanceAt time.Time

	fired *Verdict
}

// NewTracker creates a tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Observe feeds one snapshot and the number of cursor advances so far.
// Once a terminating verdict has been returned it is returned forever.
func (t *Tracker) Observe(now time.Time, snap world.Snapshot, advances uint64) Verdict {
	if t.fired != nil {
		return *t.fired
	}
	if !t.started {
		t.started = true
		t.posAt, t.xpAt, t.advanceAt = now, now, now
		t.advances = advances
	}

	if snap.HasPosition && (!t.hasPos || snap.Position != t.pos) {
		t.pos, t.hasPos, t.posAt = snap.Position, true, now
	}
	if snap.HasExperience && (!t.hasXP || snap.Experience > t.xp) {
		if t.hasXP {
			t.xpAt = now
		}
		t.xp, t.hasXP = snap.Experience, true
	}
	if advances != t.advances {
		t.advances, t.advanceAt = advances, now
	}

	if w := t.cfg.ProgressWindow; w > 0 && now.Sub(t.xpAt) >= w {
		return t.fire(Verdict{
			Kind:      KindProgress,
			Terminate: true,
			Since:     now.Sub(t.xpAt),
			Reason:    fmt.Sprintf("no progress for %s", now.Sub(t.xpAt).Round(time.Second)),
		})
	}
	if w := t.cfg.TaskWindow; w > 0 && now.Sub(t.advanceAt) >= w {
		return t.fire(Verdict{
			Kind:      KindTaskChurn,
			Terminate: true,
			Since:     now.Sub(t.advanceAt),
			Reason:    fmt.Sprintf("same task current for %s", now.Sub(t.advanceAt).Round(time.Second)),
		})
	}
	if w := t.cfg.PositionWindow; w > 0 && t.hasPos && now.Sub(t.posAt) >= w {
		if area, ok := t.problemArea(t.pos); ok {
			return Verdict{
				Kind:    KindPosition,
				Recover: true,
				Area:    area,
				Since:   now.Sub(t.posAt),
				Reason:  fmt.Sprintf("stuck at %s in %s", t.pos, area.Name),
			}
		}
	}
	return Verdict{}
}

func (t *Tracker) fire(v Verdict) Verdict {
	t.fired = &v
	return v
}

func (t *Tracker) problemArea(p world.Position) (world.Area, bool) {
	for _, a := range t.cfg.ProblemAreas {
		if a.Contains(p) {
			return a, true
		}
	}
	return world.Area{}, false
}

// ResetPosition restarts the position timer after a recovery move.
func (t *Tracker) ResetPosition(now time.Time) {
	t.posAt = now
}

// Stalled reports whether a session-ending watchdog has fired.
func (t *Tracker) Stalled() bool {
	return t.fired != nil
}

// Fired returns the terminating verdict, if any.
func (t *Tracker) Fired() (Verdict, bool) {
	if t.fired == nil {
		return Verdict{}, false
	}
	return *t.fired, true
}
