package session

// LoopFlags are reset exactly once per lap, when the plan cursor wraps.
type LoopFlags struct {
	// ContainerFilled is set once the container was filled at the bank.
	ContainerFilled bool
	// ContainerEmptied is set once an emptying dialogue has been answered.
	ContainerEmptied bool
	// ContainerGain is the material the emptying produced.
	ContainerGain int
	// ContainerRefilled is set when the container step finished.
	ContainerRefilled bool
	// Delivered is set when the delivery completed.
	Delivered bool
}

// Context is the single mutable session record. It is owned by the
// orchestrator and lent to handlers for the duration of one call.
type Context struct {
	opts       Options
	loop       LoopFlags
	laps       int
	deliveries int
	offering   *OfferingCycle
}

// NewContext creates the session context.
func NewContext(opts Options, offering *OfferingCycle) *Context {
	if offering == nil {
		offering = NewOfferingCycle(opts.OfferingMin, opts.OfferingMax, nil)
	}
	return &Context{opts: opts, offering: offering}
}

// Options returns the session options.
func (c *Context) Options() Options {
	return c.opts
}

// Loop returns the current loop-scoped flags.
func (c *Context) Loop() LoopFlags {
	return c.loop
}

// Laps returns the number of completed laps.
func (c *Context) Laps() int {
	return c.laps
}

// Deliveries returns the number of completed deliveries.
func (c *Context) Deliveries() int {
	return c.deliveries
}

// Offering returns the offering cycle.
func (c *Context) Offering() *OfferingCycle {
	return c.offering
}

// DeliverySite returns the site for the current lap.
func (c *Context) DeliverySite() (Site, bool) {
	if len(c.opts.Sites) == 0 {
		return Site{}, false
	}
	return c.opts.Sites[c.laps%len(c.opts.Sites)], true
}

// MarkContainerFilled records that the container was filled at the bank.
func (c *Context) MarkContainerFilled() {
	c.loop.ContainerFilled = true
}

// MarkContainerEmptied records the outcome of the emptying dialogue.
func (c *Context) MarkContainerEmptied(gain int) {
	c.loop.ContainerEmptied = true
	c.loop.ContainerGain = max(0, gain)
}

// MarkContainerRefilled records that the container step finished.
func (c *Context) MarkContainerRefilled() {
	c.loop.ContainerRefilled = true
}

// RecordDelivery counts a completed delivery and feeds the offering cycle.
func (c *Context) RecordDelivery() {
	c.loop.Delivered = true
	c.deliveries++
	if c.opts.ClaimOfferings {
		c.offering.RecordTrip()
	}
}

// CompleteLap clears the loop flags and closes the offering lap. It reports
// whether the offering cycle was reset.
func (c *Context) CompleteLap() bool {
	c.loop = LoopFlags{}
	c.laps++
	return c.offering.EndLap()
}

// Toggles returns the live-changeable options.
func (c *Context) Toggles() Toggles {
	return Toggles{ExtendedCarry: c.opts.ExtendedCarry, ClaimOfferings: c.opts.ClaimOfferings}
}

// ApplyToggles updates the live-changeable options and reports whether the
// plan layout changed.
func (c *Context) ApplyToggles(t Toggles) (layoutChanged bool) {
	layoutChanged = c.opts.ExtendedCarry != t.ExtendedCarry
	c.opts.ExtendedCarry = t.ExtendedCarry
	c.opts.ClaimOfferings = t.ClaimOfferings
	return layoutChanged
}
