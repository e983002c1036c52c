// Package session holds the per-session state shared by every handler: the
// user's options, the loop-scoped flags and the offering cycle.
package session

import (
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// Site is a place the agent visits: an area plus the object to use there.
type Site struct {
	Name   string         `json:"name" yaml:"name"`
	Area   world.Area     `json:"area" yaml:"area"`
	Object string         `json:"object" yaml:"object"`
	Entry  world.Position `json:"entry" yaml:"entry"`
}

// Target returns the interaction target for the site's object.
func (s Site) Target() world.Target {
	return world.Target{Kind: world.TargetObject, Name: s.Object, At: s.Entry}
}

// Timing bounds every wait a handler performs.
type Timing struct {
	// ActionTimeout bounds short confirmations (panel opens, count changes).
	ActionTimeout time.Duration
	// FletchTimeout bounds one fletching sub-step.
	FletchTimeout time.Duration
	// ProduceTimeout bounds WaitForCount in production.
	ProduceTimeout time.Duration
	// TravelTimeout bounds one movement command.
	TravelTimeout time.Duration
	// CompletionTimeout bounds the wait for the delivery completion phrase.
	CompletionTimeout time.Duration
	// PaceMin and PaceMax bound the pause between puzzle selections.
	PaceMin time.Duration
	PaceMax time.Duration
}

// Options is the user configuration a session is built from.
type Options struct {
	Tool      world.ItemID
	Material  world.ItemID
	Output    world.ItemID
	Container world.ItemID

	// ExtendedCarry enables the container refill step.
	ExtendedCarry bool
	// ClaimOfferings enables the optional bonus claim after deliveries.
	ClaimOfferings bool

	// OutputTarget is the output count required before leaving the bank.
	OutputTarget int
	// MaterialReserve is the material carried onward from the bank.
	MaterialReserve int
	// InventoryCapacity is the number of inventory slots.
	InventoryCapacity int
	// ContainerBatch caps the outputs fletched after emptying the container.
	ContainerBatch int
	// ContainerGainMargin is the material gain at or below which an emptying
	// dialogue is read as "already empty".
	ContainerGainMargin int
	// MaxRetries bounds consecutive failed attempts inside a handler.
	MaxRetries int

	// GoalExperience ends setup early when already reached. Zero disables it.
	GoalExperience int64

	Bank  Site
	Sites []Site

	StartArea    world.Area
	ProblemAreas []world.Area
	SafeWaypoint world.Position

	// CompletionPhrase marks a finished delivery in the status panel.
	CompletionPhrase string
	// MessageWindow is the number of status messages remembered.
	MessageWindow int

	// OfferingMin and OfferingMax bound the randomized trip threshold.
	OfferingMin int
	OfferingMax int

	Timing Timing
}

// DefaultOptions returns options with sensible defaults and no items selected.
func DefaultOptions() Options {
	return Options{
		OutputTarget:      20,
		MaterialReserve:   5,
		InventoryCapacity: 28,
		ContainerBatch:    10,
		MaxRetries:        3,
		CompletionPhrase:  "the spirits accept your offering",
		MessageWindow:     20,
		OfferingMin:       4,
		OfferingMax:       8,
		Timing: Timing{
			ActionTimeout:     3 * time.Second,
			FletchTimeout:     30 * time.Second,
			ProduceTimeout:    60 * time.Second,
			TravelTimeout:     30 * time.Second,
			CompletionTimeout: 15 * time.Second,
			PaceMin:           250 * time.Millisecond,
			PaceMax:           600 * time.Millisecond,
		},
	}
}

// KeepList returns the items depositing must leave in the inventory.
func (o Options) KeepList() []world.ItemID {
	keep := []world.ItemID{o.Tool, o.Material, o.Output}
	if o.ExtendedCarry {
		keep = append(keep, o.Container)
	}
	return keep
}

// Tracked returns every item id the session cares about.
func (o Options) Tracked() []world.ItemID {
	return []world.ItemID{o.Tool, o.Material, o.Output, o.Container}
}

// Toggles are the options that may change while a session runs.
type Toggles struct {
	ExtendedCarry  bool
	ClaimOfferings bool
}
