// Package policy provides the pure decision rules of the orchestrator: retry
// budgets, sub-state transition tables and the resource gate.
package policy

// Budget tracks consumption against configured limits. Handlers use one
// budget per sub-state machine to bound consecutive failed attempts.
type Budget struct {
	limits   map[string]int
	consumed map[string]int
}

// BudgetSnapshot is an immutable view of budget state.
type BudgetSnapshot struct {
	Limits    map[string]int `json:"limits"`
	Consumed  map[string]int `json:"consumed"`
	Remaining map[string]int `json:"remaining"`
}

// NewBudget creates a budget with the given limits.
func NewBudget(limits map[string]int) *Budget {
	b := &Budget{
		limits:   make(map[string]int, len(limits)),
		consumed: make(map[string]int, len(limits)),
	}
	for k, v := range limits {
		b.limits[k] = v
		b.consumed[k] = 0
	}
	return b
}

// RetryBudget creates a budget with a single "attempts" limit.
func RetryBudget(maxAttempts int) *Budget {
	return NewBudget(map[string]int{BudgetAttempts: maxAttempts})
}

// BudgetAttempts is the budget name used for failed attempts.
const BudgetAttempts = "attempts"

// CanConsume checks if the budget allows consuming the given amount.
func (b *Budget) CanConsume(name string, amount int) bool {
	limit, ok := b.limits[name]
	if !ok {
		return true
	}
	return b.consumed[name]+amount <= limit
}

// Consume deducts from the budget if allowed.
func (b *Budget) Consume(name string, amount int) error {
	limit, ok := b.limits[name]
	if ok && b.consumed[name]+amount > limit {
		return ErrBudgetExceeded
	}
	b.consumed[name] += amount
	return nil
}

// Remaining returns the remaining budget for name, or -1 when unlimited.
func (b *Budget) Remaining(name string) int {
	limit, ok := b.limits[name]
	if !ok {
		return -1
	}
	return limit - b.consumed[name]
}

// Consumed returns how much of name has been used.
func (b *Budget) Consumed(name string) int {
	return b.consumed[name]
}

// IsExhausted returns true if any budget is fully consumed.
func (b *Budget) IsExhausted() bool {
	for name, limit := range b.limits {
		if b.consumed[name] >= limit {
			return true
		}
	}
	return false
}

// Reset resets all consumed values to zero.
func (b *Budget) Reset() {
	for k := range b.consumed {
		b.consumed[k] = 0
	}
}

// Snapshot returns an immutable view of the current budget state.
func (b *Budget) Snapshot() BudgetSnapshot {
	s := BudgetSnapshot{
		Limits:    make(map[string]int, len(b.limits)),
		Consumed:  make(map[string]int, len(b.consumed)),
		Remaining: make(map[string]int, len(b.limits)),
	}
	for k, v := range b.limits {
		s.Limits[k] = v
		s.Remaining[k] = v - b.consumed[k]
	}
	for k, v := range b.consumed {
		s.Consumed[k] = v
	}
	return s
}
