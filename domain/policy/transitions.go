package policy

import "slices"

// TransitionRules maps states to the states they can transition to.
//
// Example:
//
//	rules := policy.TransitionRules[BankState]{
//	    BankIdle:       {BankDepositing},
//	    BankDepositing: {BankWithdrawing, BankIdle},
//	}
type TransitionRules[S ~string] map[S][]S

// Transitions is an immutable table of allowed sub-state transitions.
type Transitions[S ~string] struct {
	initial S
	rules   map[S][]S
}

// NewTransitions creates a transition table with the given initial state.
// Every state may always return to the initial state.
func NewTransitions[S ~string](initial S, rules TransitionRules[S]) *Transitions[S] {
	t := &Transitions[S]{initial: initial, rules: make(map[S][]S, len(rules))}
	for from, to := range rules {
		cp := make([]S, len(to))
		copy(cp, to)
		t.rules[from] = cp
	}
	return t
}

// Initial returns the initial state.
func (t *Transitions[S]) Initial() S {
	return t.initial
}

// CanTransition checks if a transition is allowed.
func (t *Transitions[S]) CanTransition(from, to S) bool {
	if to == t.initial {
		return true
	}
	for _, s := range t.rules[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all states reachable from the given state.
func (t *Transitions[S]) AllowedTransitions(from S) []S {
	out := make([]S, len(t.rules[from]))
	copy(out, t.rules[from])
	return out
}

// States returns every state named in the table, initial state first and
// the rest in sorted order.
func (t *Transitions[S]) States() []S {
	seen := map[S]bool{t.initial: true}
	var rest []S
	add := func(s S) {
		if !seen[s] {
			seen[s] = true
			rest = append(rest, s)
		}
	}
	for from, to := range t.rules {
		add(from)
		for _, s := range to {
			add(s)
		}
	}
	slices.Sort(rest)
	return append([]S{t.initial}, rest...)
}
