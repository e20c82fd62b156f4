package org

import (
	log "github.com/sirupsen/logrus"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// CompletionSink receives the cycle at which the data of a read reaches the
// processor.
type CompletionSink interface {
	NotifyCompletion(core, instructionID int, cycle int64)
}

// CommandObserver is told about every command a unit issues.
type CommandObserver interface {
	CommandIssued(cmd signal.Command)
}

// UnitStats are the request-level statistics of a unit.
type UnitStats struct {
	ReadsCompleted       uint64
	WritesCompleted      uint64
	AvgReadLatency       float64
	AvgReadQueueLatency  float64
	AvgWriteLatency      float64
	AvgWriteQueueLatency float64
}

// Issuable caches the rank and bank level predicates computed at the start of
// a cycle for the scheduling policy.
type Issuable struct {
	Precharge        [][]bool
	AllBankPrecharge []bool
	PowerDownFast    []bool
	PowerDownSlow    []bool
	Refresh          []bool
	PowerUp          []bool
}

// A Unit owns the ranks behind one command bus, which is a vault of a near
// channel or a whole far channel. At most one command is issued to a unit per
// cycle.
type Unit struct {
	Channel int
	Vault   int
	Near    bool

	Timing        Timing
	Multiplier    int64
	PipelineDepth int64
	Ranks         []*Rank

	// PanicOnViolation makes issuers panic instead of returning an error.
	PanicOnViolation bool

	Sink     CompletionSink
	Observer CommandObserver

	Issuable Issuable
	Stats    UnitStats

	commandIssued bool
}

// UnitConfig carries the construction parameters of a unit. Timing is in
// processor cycles.
type UnitConfig struct {
	Channel, Vault   int
	Near             bool
	NumRank, NumBank int
	Timing           Timing
	Multiplier       int64
	PipelineDepth    int64
}

// NewUnit creates a unit with every bank idle.
func NewUnit(c UnitConfig) *Unit {
	if c.Multiplier <= 0 {
		c.Multiplier = 1
	}

	u := &Unit{
		Channel:       c.Channel,
		Vault:         c.Vault,
		Near:          c.Near,
		Timing:        c.Timing,
		Multiplier:    c.Multiplier,
		PipelineDepth: c.PipelineDepth,
		Ranks:         make([]*Rank, c.NumRank),
	}

	for i := range u.Ranks {
		u.Ranks[i] = NewRank(c.NumBank, c.Timing)
	}

	u.Issuable = Issuable{
		Precharge:        make([][]bool, c.NumRank),
		AllBankPrecharge: make([]bool, c.NumRank),
		PowerDownFast:    make([]bool, c.NumRank),
		PowerDownSlow:    make([]bool, c.NumRank),
		Refresh:          make([]bool, c.NumRank),
		PowerUp:          make([]bool, c.NumRank),
	}
	for i := range u.Issuable.Precharge {
		u.Issuable.Precharge[i] = make([]bool, c.NumBank)
	}

	return u
}

// Bank returns a bank of the unit.
func (u *Unit) Bank(rank, bank int) *Bank {
	return u.Ranks[rank].Banks[bank]
}

// NumBank returns the number of banks per rank.
func (u *Unit) NumBank() int {
	return len(u.Ranks[0].Banks)
}

// CommandIssued tells whether the command bus is taken for this cycle.
func (u *Unit) CommandIssued() bool {
	return u.commandIssued
}

// BeginCycle releases the command bus and clears the CAS flags.
func (u *Unit) BeginCycle() {
	u.commandIssued = false

	for _, r := range u.Ranks {
		for _, b := range r.Banks {
			b.CAS = CASNone
		}
	}
}

// AdvanceBookkeeping flushes the activation windows and runs the refresh
// budget of every rank, forcing refreshes where the budget demands it.
func (u *Unit) AdvanceBookkeeping(now int64) {
	for i, r := range u.Ranks {
		r.Window.Flush(now)

		if r.Refresh.Advance(now, u.Timing) {
			u.forceRefresh(now, i)
		}
	}
}

// UpdateIssuable recomputes the cached predicates.
func (u *Unit) UpdateIssuable(now int64) {
	for r := range u.Ranks {
		for b := range u.Ranks[r].Banks {
			u.Issuable.Precharge[r][b] = u.IsPrechargeAllowed(now, r, b)
		}

		u.Issuable.AllBankPrecharge[r] = u.IsAllBankPrechargeAllowed(now, r)
		u.Issuable.PowerDownFast[r] = u.IsPowerDownFastAllowed(now, r)
		u.Issuable.PowerDownSlow[r] = u.IsPowerDownSlowAllowed(now, r)
		u.Issuable.Refresh[r] = u.IsRefreshAllowed(now, r)
		u.Issuable.PowerUp[r] = u.IsPowerUpAllowed(now, r)
	}
}

// GatherStats adds one memory cycle of state residency to every rank.
func (u *Unit) GatherStats() {
	for _, r := range u.Ranks {
		r.accumulate(u.Multiplier)
	}
}

func (u *Unit) take(cmd signal.Command) {
	u.commandIssued = true
	u.notify(cmd)
}

func (u *Unit) notify(cmd signal.Command) {
	if u.Observer != nil {
		u.Observer.CommandIssued(cmd)
	}
}

func (u *Unit) command(
	now int64,
	kind signal.CommandKind,
	rank, bank int,
	req *signal.Request,
) signal.Command {
	loc := signal.Location{Channel: u.Channel, Vault: u.Vault, Rank: rank, Bank: bank}
	if req != nil {
		loc = req.Location
	}

	return signal.Command{Kind: kind, Location: loc, Cycle: now, Request: req}
}

func (u *Unit) violation(
	now int64,
	kind signal.CommandKind,
	rank, bank int,
	reason string,
) error {
	err := &IllegalCommandError{
		Kind:    kind,
		Cycle:   now,
		Channel: u.Channel,
		Vault:   u.Vault,
		Rank:    rank,
		Bank:    bank,
		Reason:  reason,
	}

	fields := log.Fields{
		"cmd":     kind.String(),
		"cycle":   now,
		"channel": u.Channel,
		"vault":   u.Vault,
		"rank":    rank,
		"bank":    bank,
	}

	if u.PanicOnViolation {
		log.WithFields(fields).Panic(reason)
	}

	log.WithFields(fields).Error(reason)

	return err
}
