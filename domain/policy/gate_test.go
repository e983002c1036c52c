package policy

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/domain/world"
)

const (
	tool      world.ItemID = 946
	material  world.ItemID = 1511
	output    world.ItemID = 52
	container world.ItemID = 28140
)

func testOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Tool, opts.Material, opts.Output, opts.Container = tool, material, output, container
	return opts
}

func snapshotOf(inv world.Counts) world.Snapshot {
	return world.Snapshot{TakenAt: time.Unix(0, 0), Inventory: inv, HasInventory: true}
}

func TestCanSkip_Bank(t *testing.T) {
	t.Parallel()

	c := session.NewContext(testOptions(), nil)

	tests := []struct {
		name string
		inv  world.Counts
		want bool
	}{
		{"targets met", world.Counts{tool: 1, output: 20, material: 5}, true},
		{"output short", world.Counts{tool: 1, output: 19, material: 5}, false},
		{"material short", world.Counts{tool: 1, output: 20, material: 4}, false},
		{"tool missing", world.Counts{output: 20, material: 5}, false},
		{"empty", world.Counts{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanSkip(task.TypeBank, c, snapshotOf(tt.inv)); got != tt.want {
				t.Errorf("CanSkip(bank) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanSkip_BankNeedsContainerWithExtendedCarry(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.ExtendedCarry = true
	c := session.NewContext(opts, nil)

	inv := world.Counts{tool: 1, output: 20, material: 5}
	if CanSkip(task.TypeBank, c, snapshotOf(inv)) {
		t.Error("CanSkip(bank) = true without the container")
	}
	inv[container] = 1
	if !CanSkip(task.TypeBank, c, snapshotOf(inv)) {
		t.Error("CanSkip(bank) = false with all requirements met")
	}
}

func TestCanSkip_ProduceNeedsMaterialSpent(t *testing.T) {
	t.Parallel()

	c := session.NewContext(testOptions(), nil)

	if CanSkip(task.TypeProduce, c, snapshotOf(world.Counts{tool: 1, output: 20, material: 5})) {
		t.Error("CanSkip(produce) = true with material left to craft")
	}
	if !CanSkip(task.TypeProduce, c, snapshotOf(world.Counts{tool: 1, output: 25})) {
		t.Error("CanSkip(produce) = false with material spent and output at target")
	}
}

func TestCanSkip_ContainerOnlyAfterRefill(t *testing.T) {
	t.Parallel()

	c := session.NewContext(testOptions(), nil)
	full := snapshotOf(world.Counts{tool: 1, output: 28, material: 28, container: 1})

	if CanSkip(task.TypeContainer, c, full) {
		t.Error("CanSkip(container) = true before the refill happened")
	}
	c.MarkContainerRefilled()
	if !CanSkip(task.TypeContainer, c, full) {
		t.Error("CanSkip(container) = false after the refill")
	}
	c.CompleteLap()
	if CanSkip(task.TypeContainer, c, full) {
		t.Error("CanSkip(container) = true on the next lap")
	}
}

func TestCanSkip_WithoutInventoryData(t *testing.T) {
	t.Parallel()

	c := session.NewContext(testOptions(), nil)
	snap := snapshotOf(world.Counts{tool: 1, output: 20, material: 5})
	snap.HasInventory = false

	if CanSkip(task.TypeBank, c, snap) {
		t.Error("CanSkip() = true without inventory data")
	}
}

func TestCanSkip_DeliverNeverSkips(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(11, 13))
	for i := 0; i < 500; i++ {
		c, snap := randomCase(rng)
		if CanSkip(task.TypeDeliver, c, snap) {
			t.Fatalf("CanSkip(deliver) = true for %v", snap.Inventory)
		}
	}
}

// Skipping must never leave a requirement unmet, whatever the inputs. The
// expectations below restate each family's rule from the raw options rather
// than from RequirementFor.
func TestCanSkip_Soundness(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 2000; i++ {
		c, snap := randomCase(rng)
		opts := c.Options()
		inv := snap.Inventory

		stocked := inv[output] >= opts.OutputTarget
		hasTool := inv[tool] > 0
		want := map[task.Type]bool{
			task.TypeBank: stocked && hasTool &&
				inv[material] >= opts.MaterialReserve &&
				(!opts.ExtendedCarry || inv[container] > 0),
			task.TypeProduce:   stocked && hasTool && inv[material] == 0,
			task.TypeContainer: c.Loop().ContainerRefilled,
			task.TypeDeliver:   false,
		}

		for typ, skip := range want {
			if got := CanSkip(typ, c, snap); got != skip {
				t.Fatalf("CanSkip(%s) = %v, want %v (inventory %v, target %d, reserve %d, extended %v)",
					typ, got, skip, inv, opts.OutputTarget, opts.MaterialReserve, opts.ExtendedCarry)
			}
		}
	}
}

func randomCase(rng *rand.Rand) (*session.Context, world.Snapshot) {
	opts := testOptions()
	opts.ExtendedCarry = rng.IntN(2) == 0
	opts.OutputTarget = 1 + rng.IntN(27)
	opts.MaterialReserve = rng.IntN(6)

	c := session.NewContext(opts, nil)
	if rng.IntN(2) == 0 {
		c.MarkContainerRefilled()
	}

	inv := world.Counts{
		tool:      rng.IntN(2),
		container: rng.IntN(2),
		output:    rng.IntN(30),
		material:  rng.IntN(30),
	}
	return c, snapshotOf(inv)
}
