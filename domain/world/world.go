// Package world defines the narrow interfaces through which the orchestrator
// observes and acts on the external game world.
//
// Everything behind these interfaces is asynchronous and may change between
// two calls. Callers must treat every answer as a point-in-time observation.
package world

import (
	"context"
	"fmt"
	"time"
)

// ItemID identifies an item type.
type ItemID int

// Position is a tile coordinate.
type Position struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Plane int `json:"plane" yaml:"plane"`
}

// String returns a compact representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Plane)
}

// Area is an inclusive rectangle of tiles on one plane.
type Area struct {
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Min  Position `json:"min" yaml:"min"`
	Max  Position `json:"max" yaml:"max"`
}

// Contains reports whether p lies inside the area.
func (a Area) Contains(p Position) bool {
	if p.Plane != a.Min.Plane {
		return false
	}
	return p.X >= a.Min.X && p.X <= a.Max.X && p.Y >= a.Min.Y && p.Y <= a.Max.Y
}

// IsZero reports whether the area was left unset.
func (a Area) IsZero() bool {
	return a.Min == Position{} && a.Max == Position{}
}

// Center returns the middle tile of the area.
func (a Area) Center() Position {
	return Position{
		X:     (a.Min.X + a.Max.X) / 2,
		Y:     (a.Min.Y + a.Max.Y) / 2,
		Plane: a.Min.Plane,
	}
}

// Counts maps item ids to the quantity held.
type Counts map[ItemID]int

// Get returns the quantity held of id.
func (c Counts) Get(id ItemID) int {
	return c[id]
}

// Has reports whether at least one of id is held.
func (c Counts) Has(id ItemID) bool {
	return c[id] > 0
}

// Total returns the sum of all quantities.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// ContainerKind names an item container the agent can inspect.
type ContainerKind string

// Container kinds.
const (
	ContainerInventory ContainerKind = "inventory"
	ContainerBank      ContainerKind = "bank"
)

// PanelKind names an observable UI panel.
type PanelKind string

// Panel kinds.
const (
	PanelBank     PanelKind = "bank"
	PanelDialogue PanelKind = "dialogue"
	PanelPuzzle   PanelKind = "puzzle"
	PanelStatus   PanelKind = "status"
)

// PanelState is the visibility, type and text of a panel.
type PanelState struct {
	Kind    PanelKind `json:"kind"`
	Visible bool      `json:"visible"`
	Type    string    `json:"type,omitempty"`
	Text    string    `json:"text,omitempty"`
	Lines   []string  `json:"lines,omitempty"`
}

// HasLine reports whether the panel shows the exact line s.
func (p PanelState) HasLine(s string) bool {
	for _, l := range p.Lines {
		if l == s {
			return true
		}
	}
	return false
}

// TargetKind classifies what an interaction is aimed at.
type TargetKind string

// Target kinds.
const (
	TargetObject         TargetKind = "object"
	TargetInventoryItem  TargetKind = "inventory_item"
	TargetBankItem       TargetKind = "bank_item"
	TargetDialogueOption TargetKind = "dialogue_option"
	TargetPuzzleOption   TargetKind = "puzzle_option"
)

// Target references something the agent can interact with.
type Target struct {
	Kind     TargetKind `json:"kind"`
	Item     ItemID     `json:"item,omitempty"`
	Name     string     `json:"name,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
	At       Position   `json:"at,omitempty"`
}

// String returns a log-friendly description of the target.
func (t Target) String() string {
	switch t.Kind {
	case TargetInventoryItem, TargetBankItem:
		if t.Quantity > 0 {
			return fmt.Sprintf("%s:%d x%d", t.Kind, t.Item, t.Quantity)
		}
		return fmt.Sprintf("%s:%d", t.Kind, t.Item)
	default:
		return fmt.Sprintf("%s:%s", t.Kind, t.Name)
	}
}

// Action is the verb of an interaction.
type Action string

// Actions understood by the executor.
const (
	ActionOpen     Action = "open"
	ActionUse      Action = "use"
	ActionDeposit  Action = "deposit"
	ActionWithdraw Action = "withdraw"
	ActionFill     Action = "fill"
	ActionEmpty    Action = "empty"
	ActionMake     Action = "make"
	ActionSelect   Action = "select"
	ActionConfirm  Action = "confirm"
	ActionClaim    Action = "claim"
)

// Predicate is a condition polled by waits and moves.
type Predicate func() bool

// WorldQuery returns point-in-time observations of the world.
type WorldQuery interface {
	// Position returns the agent's tile, or false when unknown.
	Position(ctx context.Context) (Position, bool)

	// ContainerSnapshot returns the counts of ids held in the container.
	// A nil id set returns every item. False means no data this instant.
	ContainerSnapshot(ctx context.Context, kind ContainerKind, ids []ItemID) (Counts, bool)

	// UIPanelState returns the state of a panel.
	UIPanelState(ctx context.Context, kind PanelKind) PanelState

	// Experience returns the monitored progress counter.
	Experience(ctx context.Context) (int64, bool)
}

// ActionExecutor performs interactions in the world. Every call is bounded.
type ActionExecutor interface {
	// Interact performs action on target and reports whether it was issued.
	Interact(ctx context.Context, target Target, action Action) bool

	// MoveTo walks towards dest until arrival, until returns true, or timeout.
	MoveTo(ctx context.Context, dest Position, until Predicate, timeout time.Duration) bool

	// WaitUntil polls cond until it holds or timeout elapses.
	WaitUntil(ctx context.Context, cond Predicate, timeout time.Duration) bool
}

// TokenScanner reports the puzzle tokens currently recognised on screen.
type TokenScanner interface {
	ScanTokens(ctx context.Context) []Token
}

// Clock supplies time to the orchestrator.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
