package application

import "time"

// OutcomeKind classifies why a session ended.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeRunning   OutcomeKind = ""
	OutcomeStopped   OutcomeKind = "stopped"
	OutcomeStalled   OutcomeKind = "stalled"
	OutcomeFatal     OutcomeKind = "fatal"
	OutcomeSetup     OutcomeKind = "setup"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// String returns the kind name, "running" while the session is live.
func (k OutcomeKind) String() string {
	if k == OutcomeRunning {
		return "running"
	}
	return string(k)
}

// Outcome is the terminal state of a session.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	At     time.Time
}

// Terminated reports whether the session has ended.
func (o Outcome) Terminated() bool {
	return o.Kind != OutcomeRunning
}
