package task

import "fmt"

// Plan is a fixed sequence of task types plus a cursor in [0, Len).
//
// A plan is never edited. Changing the optional steps builds a new plan with
// Rebuild.
type Plan struct {
	steps  []Type
	cursor int
}

// NewPlan creates a plan positioned at its first step.
func NewPlan(steps ...Type) (*Plan, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}
	for i, s := range steps {
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: step %d is %q", ErrUnknownTask, i, s)
		}
	}
	cp := make([]Type, len(steps))
	copy(cp, steps)
	return &Plan{steps: cp}, nil
}

// PlanFor builds the plan for the given options.
func PlanFor(opts Options) *Plan {
	p, err := NewPlan(Layout(opts)...)
	if err != nil {
		// Layout only returns known, non-empty sequences.
		panic(err)
	}
	return p
}

// Current returns the task at the cursor.
func (p *Plan) Current() Type {
	return p.steps[p.cursor]
}

// Cursor returns the cursor index.
func (p *Plan) Cursor() int {
	return p.cursor
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.steps)
}

// Steps returns a copy of the plan's steps.
func (p *Plan) Steps() []Type {
	out := make([]Type, len(p.steps))
	copy(out, p.steps)
	return out
}

// Advance moves the cursor one step and reports whether it wrapped to 0,
// which completes a lap.
func (p *Plan) Advance() (wrapped bool) {
	p.cursor++
	if p.cursor >= len(p.steps) {
		p.cursor = 0
		return true
	}
	return false
}

// IndexOf returns the first index of t, or -1.
func (p *Plan) IndexOf(t Type) int {
	for i, s := range p.steps {
		if s == t {
			return i
		}
	}
	return -1
}

// Seek moves the cursor back to the first step of type t without completing
// a lap. It reports false and leaves the cursor alone when t is not planned.
func (p *Plan) Seek(t Type) bool {
	idx := p.IndexOf(t)
	if idx < 0 {
		return false
	}
	p.cursor = idx
	return true
}

// Rebuild returns a new plan for opts. The cursor stays on the same task type
// when the new plan contains it, otherwise it restarts at the first step.
func (p *Plan) Rebuild(opts Options) *Plan {
	next := PlanFor(opts)
	if idx := next.IndexOf(p.Current()); idx >= 0 {
		next.cursor = idx
	}
	return next
}

// Equal reports whether both plans have the same steps.
func (p *Plan) Equal(other *Plan) bool {
	if other == nil || len(p.steps) != len(other.steps) {
		return false
	}
	for i := range p.steps {
		if p.steps[i] != other.steps[i] {
			return false
		}
	}
	return true
}
