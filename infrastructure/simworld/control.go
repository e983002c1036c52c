package simworld

import (
	"slices"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// FailNext makes the next n interactions with action fail.
func (w *World) FailNext(action world.Action, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failNext[action] += n
}

// Freeze stops or resumes movement.
func (w *World) Freeze(frozen bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frozen = frozen
}

// Blind makes container snapshots unavailable.
func (w *World) Blind(blind bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blind = blind
}

// StopExperience stops experience from increasing.
func (w *World) StopExperience(stop bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.noXP = stop
}

// SetPosition teleports the agent.
func (w *World) SetPosition(p world.Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos = p
}

// SetCount overwrites the inventory count of id.
func (w *World) SetCount(id world.ItemID, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n <= 0 {
		delete(w.inv, id)
		return
	}
	w.inv[id] = n
}

// ShowPanel forces a panel visible with text.
func (w *World) ShowPanel(kind world.PanelKind, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.show(kind, text)
}

// Say appends a status message.
func (w *World) Say(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.say(msg)
}

// Calls returns every recorded interaction.
func (w *World) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.calls)
}

// CallsFor returns the recorded interactions with action.
func (w *World) CallsFor(action world.Action) []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Call
	for _, c := range w.calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Inventory returns a copy of the inventory.
func (w *World) Inventory() world.Counts {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyCounts(w.inv)
}

// Stow moves every id in the inventory into the bank.
func (w *World) Stow(id world.ItemID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := w.inv[id]; n > 0 {
		w.bank[id] += n
		delete(w.inv, id)
	}
}

// BankCounts returns a copy of the bank.
func (w *World) BankCounts() world.Counts {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyCounts(w.bank)
}

// ContainerHeld returns the material stored in the container.
func (w *World) ContainerHeld() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}

// Claims returns the number of offerings claimed.
func (w *World) Claims() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.claims
}

// Delivered returns the number of outputs delivered.
func (w *World) Delivered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.delivered
}
