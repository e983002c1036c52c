package simworld

import (
	"math/rand/v2"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/world"
)

// FromOptions builds a world that matches the session options: the agent
// starts at the bank with the tool, the bank is well stocked and every site
// hides a seeded token order.
func FromOptions(opts session.Options, seed uint64) Config {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	sites := make([]Site, len(opts.Sites))
	for i, s := range opts.Sites {
		u := world.Universe()
		r.Shuffle(len(u), func(a, b int) { u[a], u[b] = u[b], u[a] })
		sites[i] = Site{Area: s.Area, Object: s.Object, Tokens: u[:world.MaxTokens]}
	}

	inv := world.Counts{opts.Tool: 1}
	bank := world.Counts{opts.Material: 5000}
	if opts.ExtendedCarry {
		inv[opts.Container] = 1
	} else {
		bank[opts.Container] = 1
	}

	start := opts.Bank.Entry
	if !opts.StartArea.IsZero() && !opts.StartArea.Contains(start) {
		start = opts.StartArea.Center()
	}

	return Config{
		Tool:              opts.Tool,
		Material:          opts.Material,
		Output:            opts.Output,
		Container:         opts.Container,
		Inventory:         inv,
		Bank:              bank,
		Capacity:          opts.InventoryCapacity,
		Position:          start,
		BankArea:          opts.Bank.Area,
		BankObject:        opts.Bank.Object,
		Sites:             sites,
		ContainerCapacity: opts.ContainerBatch,
		CompletionPhrase:  opts.CompletionPhrase,
	}
}
