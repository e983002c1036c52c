// Package simworld is a deterministic in-memory world with a virtual clock.
// It backs the CLI's simulate mode and the integration tests.
package simworld

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// Site is a delivery site in the simulated world.
type Site struct {
	Area   world.Area
	Object string
	// Tokens is the correct selection order, revealed one scan at a time.
	Tokens []world.Token
}

// Config describes the starting world.
type Config struct {
	Tool      world.ItemID
	Material  world.ItemID
	Output    world.ItemID
	Container world.ItemID

	Inventory world.Counts
	Bank      world.Counts
	Capacity  int

	Position   world.Position
	BankArea   world.Area
	BankObject string
	Sites      []Site

	ContainerCapacity   int
	ContainerHeld       int
	CompletionPhrase    string
	Experience          int64
	ExperiencePerOutput int64
	StatusLines         int
	RevealPerScan       int

	Start         time.Time
	TileTime      time.Duration
	PollInterval  time.Duration
	ActionLatency time.Duration
	CraftTime     time.Duration
}

func (c *Config) defaults() {
	if c.Capacity == 0 {
		c.Capacity = 28
	}
	if c.BankObject == "" {
		c.BankObject = "bank booth"
	}
	if c.CompletionPhrase == "" {
		c.CompletionPhrase = "The spirits accept your offering."
	}
	if c.ExperiencePerOutput == 0 {
		c.ExperiencePerOutput = 10
	}
	if c.StatusLines == 0 {
		c.StatusLines = 5
	}
	if c.RevealPerScan == 0 {
		c.RevealPerScan = 1
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.TileTime == 0 {
		c.TileTime = 300 * time.Millisecond
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.ActionLatency == 0 {
		c.ActionLatency = 300 * time.Millisecond
	}
	if c.CraftTime == 0 {
		c.CraftTime = 600 * time.Millisecond
	}
}

// Call records one interaction.
type Call struct {
	Target world.Target
	Action world.Action
	OK     bool
}

type effect struct {
	at time.Time
	fn func()
}

// World is the simulated world. It implements world.WorldQuery,
// world.ActionExecutor and world.TokenScanner; Clock returns its clock.
type World struct {
	mu  sync.Mutex
	cfg Config

	clock *Clock

	inv      world.Counts
	bank     world.Counts
	pos      world.Position
	xp       int64
	held     int
	panels   map[world.PanelKind]world.PanelState
	status   []string
	revealed []int
	armed    bool
	effects  []effect

	calls     []Call
	failNext  map[world.Action]int
	frozen    bool
	blind     bool
	noXP      bool
	claims    int
	delivered int
}

// New creates a world from cfg.
func New(cfg Config) *World {
	cfg.defaults()
	w := &World{
		cfg:      cfg,
		clock:    NewClock(cfg.Start),
		inv:      copyCounts(cfg.Inventory),
		bank:     copyCounts(cfg.Bank),
		pos:      cfg.Position,
		xp:       cfg.Experience,
		held:     cfg.ContainerHeld,
		panels:   make(map[world.PanelKind]world.PanelState),
		revealed: make([]int, len(cfg.Sites)),
		failNext: make(map[world.Action]int),
	}
	w.clock.onAdv = w.runDue
	return w
}

func copyCounts(c world.Counts) world.Counts {
	out := make(world.Counts, len(c))
	for k, v := range c {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Clock returns the world's virtual clock.
func (w *World) Clock() *Clock { return w.clock }

// Position implements world.WorldQuery.
func (w *World) Position(context.Context) (world.Position, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos, true
}

// ContainerSnapshot implements world.WorldQuery.
func (w *World) ContainerSnapshot(_ context.Context, kind world.ContainerKind, ids []world.ItemID) (world.Counts, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.blind {
		return nil, false
	}
	src := w.inv
	if kind == world.ContainerBank {
		src = w.bank
	}
	if ids == nil {
		return copyCounts(src), true
	}
	out := make(world.Counts, len(ids))
	for _, id := range ids {
		if n := src[id]; n > 0 {
			out[id] = n
		}
	}
	return out, true
}

// UIPanelState implements world.WorldQuery.
func (w *World) UIPanelState(_ context.Context, kind world.PanelKind) world.PanelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if kind == world.PanelStatus {
		lines := w.status
		if over := len(lines) - w.cfg.StatusLines; over > 0 {
			lines = lines[over:]
		}
		return world.PanelState{Kind: kind, Visible: true, Lines: slices.Clone(lines)}
	}
	p := w.panels[kind]
	p.Kind = kind
	p.Lines = slices.Clone(p.Lines)
	return p
}

// Experience implements world.WorldQuery.
func (w *World) Experience(context.Context) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.xp, true
}

// ScanTokens implements world.TokenScanner. Each scan inside a site reveals
// RevealPerScan more of its tokens.
func (w *World) ScanTokens(context.Context) []world.Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.siteAt(w.pos)
	if !ok {
		return nil
	}
	site := w.cfg.Sites[i]
	w.revealed[i] = min(len(site.Tokens), w.revealed[i]+w.cfg.RevealPerScan)
	return slices.Clone(site.Tokens[:w.revealed[i]])
}

// MoveTo implements world.ActionExecutor. The agent walks one tile per
// TileTime.
func (w *World) MoveTo(ctx context.Context, dest world.Position, until world.Predicate, timeout time.Duration) bool {
	start := w.clock.Now()
	w.mu.Lock()
	delete(w.panels, world.PanelBank)
	w.mu.Unlock()

	for ctx.Err() == nil {
		if until != nil && until() {
			return true
		}
		w.mu.Lock()
		arrived := w.pos == dest
		if !arrived && !w.frozen {
			w.pos = step(w.pos, dest)
		}
		w.mu.Unlock()
		if arrived {
			return true
		}
		if w.clock.Now().Sub(start) >= timeout {
			return false
		}
		w.clock.Advance(w.cfg.TileTime)
	}
	return false
}

func step(from, to world.Position) world.Position {
	from.X += sign(to.X - from.X)
	from.Y += sign(to.Y - from.Y)
	from.Plane = to.Plane
	return from
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// WaitUntil implements world.ActionExecutor by polling cond while advancing
// the virtual clock.
func (w *World) WaitUntil(ctx context.Context, cond world.Predicate, timeout time.Duration) bool {
	start := w.clock.Now()
	for ctx.Err() == nil {
		if cond() {
			return true
		}
		if w.clock.Now().Sub(start) >= timeout {
			return false
		}
		w.clock.Advance(w.cfg.PollInterval)
	}
	return false
}

// Interact implements world.ActionExecutor.
func (w *World) Interact(_ context.Context, target world.Target, action world.Action) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok := false
	if n := w.failNext[action]; n > 0 {
		w.failNext[action] = n - 1
	} else {
		ok = w.apply(target, action)
	}
	w.calls = append(w.calls, Call{Target: target, Action: action, OK: ok})
	return ok
}

// schedule runs fn after d. Callers hold w.mu.
func (w *World) schedule(d time.Duration, fn func()) {
	w.effects = append(w.effects, effect{at: w.clock.Now().Add(d), fn: fn})
}

func (w *World) runDue(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		i := slices.IndexFunc(w.effects, func(e effect) bool { return !e.at.After(now) })
		if i < 0 {
			return
		}
		e := w.effects[i]
		w.effects = slices.Delete(w.effects, i, i+1)
		e.fn()
	}
}

func (w *World) free() int {
	return max(0, w.cfg.Capacity-w.inv.Total())
}

func (w *World) siteAt(p world.Position) (int, bool) {
	for i, s := range w.cfg.Sites {
		if s.Area.Contains(p) {
			return i, true
		}
	}
	return 0, false
}

func (w *World) say(msg string) {
	w.status = append(w.status, msg)
	if over := len(w.status) - 100; over > 0 {
		w.status = slices.Delete(w.status, 0, over)
	}
}

func (w *World) show(kind world.PanelKind, text string) {
	w.panels[kind] = world.PanelState{Kind: kind, Visible: true, Text: text}
}

func (w *World) craftOne() {
	if w.inv[w.cfg.Material] == 0 {
		return
	}
	w.inv[w.cfg.Material]--
	if w.inv[w.cfg.Material] == 0 {
		delete(w.inv, w.cfg.Material)
	}
	w.inv[w.cfg.Output]++
	if !w.noXP {
		w.xp += w.cfg.ExperiencePerOutput
	}
}

func (w *World) craftAll() {
	w.craftOne()
	if w.inv[w.cfg.Material] > 0 {
		w.schedule(w.cfg.CraftTime, w.craftAll)
	}
}

// apply performs an interaction. Callers hold w.mu.
func (w *World) apply(t world.Target, action world.Action) bool {
	cfg := w.cfg
	switch action {
	case world.ActionOpen:
		if t.Name != cfg.BankObject || (!cfg.BankArea.IsZero() && !cfg.BankArea.Contains(w.pos)) {
			return false
		}
		w.show(world.PanelBank, "bank")
		return true

	case world.ActionDeposit:
		n := w.inv[t.Item]
		if !w.panels[world.PanelBank].Visible || n == 0 {
			return false
		}
		q := n
		if t.Quantity > 0 {
			q = min(t.Quantity, n)
		}
		w.inv[t.Item] -= q
		if w.inv[t.Item] == 0 {
			delete(w.inv, t.Item)
		}
		w.bank[t.Item] += q
		return true

	case world.ActionWithdraw:
		stock := w.bank[t.Item]
		if !w.panels[world.PanelBank].Visible || stock == 0 {
			return false
		}
		q := min(max(1, t.Quantity), stock, w.free())
		if q == 0 {
			return false
		}
		w.bank[t.Item] -= q
		if w.bank[t.Item] == 0 {
			delete(w.bank, t.Item)
		}
		w.schedule(cfg.ActionLatency, func() { w.inv[t.Item] += q })
		return true

	case world.ActionFill:
		if t.Item != cfg.Container || w.inv[cfg.Container] == 0 || !w.panels[world.PanelBank].Visible {
			return false
		}
		q := min(cfg.ContainerCapacity-w.held, w.bank[cfg.Material])
		if q > 0 {
			w.bank[cfg.Material] -= q
			w.held += q
		}
		return true

	case world.ActionEmpty:
		if t.Item != cfg.Container || w.inv[cfg.Container] == 0 {
			return false
		}
		w.schedule(cfg.ActionLatency, func() { w.show(world.PanelDialogue, "Empty the container?") })
		return true

	case world.ActionUse:
		return w.use(t)

	case world.ActionMake:
		if !w.panels[world.PanelDialogue].Visible || t.Item != cfg.Output {
			return false
		}
		delete(w.panels, world.PanelDialogue)
		w.schedule(cfg.CraftTime, w.craftAll)
		return true

	case world.ActionConfirm:
		return w.confirm(t)

	case world.ActionSelect:
		p := w.panels[world.PanelPuzzle]
		if t.Kind != world.TargetPuzzleOption || !p.Visible {
			return false
		}
		w.schedule(cfg.PollInterval, func() {
			p := w.panels[world.PanelPuzzle]
			if p.Visible && !p.HasLine(t.Name) {
				p.Lines = append(p.Lines, t.Name)
				w.panels[world.PanelPuzzle] = p
			}
		})
		return true

	case world.ActionClaim:
		if _, ok := w.siteAt(w.pos); !ok {
			return false
		}
		w.claims++
		w.say("You claim the offering.")
		return true
	}
	return false
}

func (w *World) use(t world.Target) bool {
	cfg := w.cfg
	switch t.Kind {
	case world.TargetInventoryItem:
		if w.inv[t.Item] == 0 {
			return false
		}
		switch t.Item {
		case cfg.Tool:
			w.armed = true
		case cfg.Material:
			if !w.armed {
				return false
			}
			w.armed = false
			if t.Quantity == 1 {
				w.schedule(cfg.CraftTime, w.craftOne)
			} else {
				w.schedule(cfg.ActionLatency, func() { w.show(world.PanelDialogue, "How many would you like to make?") })
			}
		default:
			w.armed = false
		}
		return true

	case world.TargetObject:
		i, ok := w.siteAt(w.pos)
		if !ok || cfg.Sites[i].Object != t.Name || w.revealed[i] < world.MaxTokens {
			return false
		}
		w.schedule(cfg.ActionLatency, func() { w.show(world.PanelPuzzle, "Choose the tokens") })
		return true
	}
	return false
}

func (w *World) confirm(t world.Target) bool {
	cfg := w.cfg
	switch t.Kind {
	case world.TargetDialogueOption:
		if !w.panels[world.PanelDialogue].Visible {
			return false
		}
		delete(w.panels, world.PanelDialogue)
		q := min(w.held, w.free())
		w.held -= q
		w.inv[cfg.Material] += q
		return true

	case world.TargetPuzzleOption:
		p := w.panels[world.PanelPuzzle]
		i, ok := w.siteAt(w.pos)
		if !p.Visible || !ok {
			return false
		}
		delete(w.panels, world.PanelPuzzle)
		site := cfg.Sites[i]
		want := site.Tokens[:min(world.MaxTokens, len(site.Tokens))]
		if !slices.Equal(p.Lines, tokenNames(want)) {
			w.say("The spirits reject your offering.")
			return true
		}
		w.schedule(time.Second, func() {
			w.say(cfg.CompletionPhrase)
			delivered := w.inv[cfg.Output]
			delete(w.inv, cfg.Output)
			w.delivered += delivered
			if !w.noXP {
				w.xp += int64(delivered) * cfg.ExperiencePerOutput
			}
			w.revealed[i] = 0
			w.cfg.Sites[i].Tokens = rotate(site.Tokens)
		})
		return true
	}
	return false
}

func tokenNames(ts []world.Token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

func rotate(ts []world.Token) []world.Token {
	if len(ts) < 2 {
		return ts
	}
	out := append(slices.Clone(ts[1:]), ts[0])
	return out
}
