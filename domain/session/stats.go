package session

import "time"

// Stats is a read-only view of a session taken at a tick boundary. It is a
// plain value and safe to hand to another goroutine.
type Stats struct {
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`

	CurrentTask string `json:"current_task"`
	SubState    string `json:"substate,omitempty"`
	Cursor      int    `json:"cursor"`

	Laps       int `json:"laps"`
	Deliveries int `json:"deliveries"`
	Skips      int `json:"skips"`

	Elapsed          time.Duration `json:"elapsed"`
	ExperienceGained int64         `json:"experience_gained"`

	// Rate is experience gained per hour.
	Rate float64 `json:"rate"`

	// TimeToGoal is only meaningful when HasEstimate is set.
	TimeToGoal  time.Duration `json:"time_to_goal"`
	HasEstimate bool          `json:"has_estimate"`

	Stalled bool `json:"stalled"`
}

// RatePerHour returns gained per hour of elapsed time.
func RatePerHour(gained int64, elapsed time.Duration) float64 {
	if elapsed <= 0 || gained <= 0 {
		return 0
	}
	return float64(gained) / elapsed.Hours()
}

// TimeToGoal estimates how long reaching goal from current takes at rate.
// It reports false when there is no goal or no measurable rate.
func TimeToGoal(current, goal int64, rate float64) (time.Duration, bool) {
	if goal <= 0 {
		return 0, false
	}
	if current >= goal {
		return 0, true
	}
	if rate <= 0 {
		return 0, false
	}
	hours := float64(goal-current) / rate
	return time.Duration(hours * float64(time.Hour)), true
}
