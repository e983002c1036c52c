package world

import (
	"context"
	"time"
)

// Snapshot is one tick's consistent view of the world.
type Snapshot struct {
	TakenAt time.Time

	Position    Position
	HasPosition bool

	Inventory    Counts
	HasInventory bool

	Experience    int64
	HasExperience bool

	Panels map[PanelKind]PanelState
}

// Capture reads the world once. Panels not listed are reported as hidden.
func Capture(ctx context.Context, q WorldQuery, now time.Time, panels ...PanelKind) Snapshot {
	s := Snapshot{
		TakenAt: now,
		Panels:  make(map[PanelKind]PanelState, len(panels)),
	}
	s.Position, s.HasPosition = q.Position(ctx)
	s.Inventory, s.HasInventory = q.ContainerSnapshot(ctx, ContainerInventory, nil)
	if s.Inventory == nil {
		s.Inventory = Counts{}
	}
	s.Experience, s.HasExperience = q.Experience(ctx)
	for _, kind := range panels {
		s.Panels[kind] = q.UIPanelState(ctx, kind)
	}
	return s
}

// Panel returns the captured state of kind.
func (s Snapshot) Panel(kind PanelKind) PanelState {
	if p, ok := s.Panels[kind]; ok {
		return p
	}
	return PanelState{Kind: kind}
}

// Count returns the inventory count of id.
func (s Snapshot) Count(id ItemID) int {
	return s.Inventory.Get(id)
}
