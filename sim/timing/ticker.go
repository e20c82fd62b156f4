package timing

import (
	"log"
	"sync"

	"github.com/anirbannag/usimm-pm/sim/id"
)

// TickEvent is a generic event that almost all the component can use to
// update their status.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTimeInCycle) TickEvent {
	evt := TickEvent{
		EventBase: EventBase{
			ID:        id.Generate(),
			time:      time,
			handler:   handler,
			secondary: false,
		},
	}

	return evt
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() bool
}

// ClockDomain ticks once every Multiplier processor cycles. A memory bus
// running at a quarter of the processor clock has a multiplier of 4.
type ClockDomain struct {
	Multiplier int64
}

// ThisTick returns the first tick of the domain at or after now.
func (d ClockDomain) ThisTick(now VTimeInCycle) VTimeInCycle {
	d.mustBeValid()

	rem := now % d.Multiplier
	if rem == 0 {
		return now
	}

	return now + d.Multiplier - rem
}

// NextTick returns the first tick of the domain strictly after now.
func (d ClockDomain) NextTick(now VTimeInCycle) VTimeInCycle {
	d.mustBeValid()

	return d.ThisTick(now + 1)
}

// Cycle converts a processor cycle to a domain cycle.
func (d ClockDomain) Cycle(now VTimeInCycle) int64 {
	d.mustBeValid()

	return now / d.Multiplier
}

func (d ClockDomain) mustBeValid() {
	if d.Multiplier <= 0 {
		log.Panic("clock multiplier must be positive")
	}
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Domain    ClockDomain
	Engine    Engine
	secondary bool

	nextTickTime VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	domain ClockDomain,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Domain = domain
	ticker.nextTickTime = -1 // This will make sure the first tick is scheduled

	return ticker
}

// NewSecondaryTickScheduler creates a scheduler that always schedule secondary
// tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine Engine,
	domain ClockDomain,
) *TickScheduler {
	ticker := NewTickScheduler(handler, engine, domain)
	ticker.secondary = true

	return ticker
}

// TickNow schedule a Tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.schedule(t.Domain.ThisTick(t.Now()))
}

// TickLater will schedule a tick event at the cycle after the now time.
func (t *TickScheduler) TickLater() {
	t.schedule(t.Domain.NextTick(t.Now()))
}

func (t *TickScheduler) schedule(time VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = time
	tick := MakeTickEvent(t.handler, t.nextTickTime)

	if t.secondary {
		tick.secondary = true
	}

	t.Engine.Schedule(tick)
}

// Now returns the current time of the engine.
func (t *TickScheduler) Now() VTimeInCycle {
	return t.Engine.Now()
}

// TickingComponent is a type of component that update states from cycle to
// cycle. A programmer would only need to program a tick function for a ticking
// component.
type TickingComponent struct {
	*TickScheduler

	name   string
	ticker Ticker
}

// NewTickingComponent creates a new ticking component
func NewTickingComponent(
	name string,
	engine Engine,
	domain ClockDomain,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.TickScheduler = NewTickScheduler(tc, engine, domain)
	tc.name = name
	tc.ticker = ticker

	return tc
}

// Name returns the name of the component.
func (c *TickingComponent) Name() string {
	return c.name
}

// Handle triggers the tick function of the TickingComponent
func (c *TickingComponent) Handle(_ Event) error {
	madeProgress := c.ticker.Tick()
	if madeProgress {
		c.TickLater()
	}

	return nil
}
