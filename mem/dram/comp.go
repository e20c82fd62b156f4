package dram

import (
	"sync"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/cmdq"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/trans"
	"github.com/anirbannag/usimm-pm/sim/hooking"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

// HookPosCommandIssued marks that a DRAM command has been issued. The hook
// item is the Command.
var HookPosCommandIssued = &hooking.HookPos{Name: "DRAM Command Issued"}

// HookPosRequestInserted marks that a request entered the controller. The
// hook item is the Request.
var HookPosRequestInserted = &hooking.HookPos{Name: "DRAM Request Inserted"}

type vault struct {
	unit   *org.Unit
	queues *trans.VaultQueues
	policy cmdq.Policy
}

type channel struct {
	near       bool
	multiplier int64
	electrical Electrical
	link       *trans.Link
	vaults     []*vault

	// elapsed counts the processor cycles the channel has been advanced
	// through.
	elapsed int64
}

// Comp is a memory controller that owns every near and far channel. It can
// be stepped directly with Advance or, when built with an engine, ticks
// itself on the processor clock.
type Comp struct {
	*timing.TickingComponent
	hooking.HookableBase

	name     string
	queues   *trans.QueueSet
	channels []*channel
	now      int64
}

// Name returns the name of the controller.
func (c *Comp) Name() string {
	return c.name
}

// NumChannel returns the number of channels, near channels first.
func (c *Comp) NumChannel() int {
	return len(c.channels)
}

// NumVault returns the number of vaults of a channel.
func (c *Comp) NumVault(ch int) int {
	return len(c.channels[ch].vaults)
}

// IsNear tells whether a channel is a near-memory channel.
func (c *Comp) IsNear(ch int) bool {
	return c.channels[ch].near
}

// Multiplier returns the number of processor cycles per memory cycle of a
// channel.
func (c *Comp) Multiplier(ch int) int64 {
	return c.channels[ch].multiplier
}

// Map decodes an address into its DRAM location.
func (c *Comp) Map(addr uint64) Location {
	return c.queues.Map(addr)
}

// InsertRead queues a read. The arrival cycle is in processor cycles.
func (c *Comp) InsertRead(
	addr uint64,
	arrival int64,
	core, instructionID int,
	pc uint64,
) *Request {
	req := c.queues.InsertRead(addr, arrival, core, instructionID, pc)
	c.requestInserted(req)

	return req
}

// InsertWrite queues a write. The arrival cycle is in processor cycles.
func (c *Comp) InsertWrite(
	addr uint64,
	arrival int64,
	core, instructionID int,
) *Request {
	req := c.queues.InsertWrite(addr, arrival, core, instructionID)
	c.requestInserted(req)

	return req
}

func (c *Comp) requestInserted(req *Request) {
	if c.TickingComponent != nil {
		c.TickLater()
	}

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosRequestInserted,
		Now:    req.ArrivalCycle,
		Item:   req,
	})
}

// ReadMatchesPending returns the lookup latency of a pending request that
// can answer a read to addr, or 0 when the read has to go to DRAM.
func (c *Comp) ReadMatchesPending(addr uint64, core int) int64 {
	return c.queues.ReadMatchesPending(addr, core)
}

// WriteMatchesPending tells whether a write to addr merges into a pending
// write.
func (c *Comp) WriteMatchesPending(addr uint64, core int) bool {
	return c.queues.WriteMatchesPending(addr, core)
}

// WriteQueueIsFull tells whether a core has to hold its writes back.
func (c *Comp) WriteQueueIsFull(core int) bool {
	return c.queues.WriteQueueIsFull(core)
}

// AllWritesCompleted tells whether every write has been written to DRAM.
func (c *Comp) AllWritesCompleted() bool {
	return c.queues.AllWritesCompleted()
}

// Pending returns the number of requests that have not been retired.
func (c *Comp) Pending() int {
	return c.queues.Pending()
}

// CommandIssued forwards an issued command to the hooks. With
// AdvanceParallel the hooks are invoked from several goroutines.
func (c *Comp) CommandIssued(cmd signal.Command) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosCommandIssued,
		Now:    cmd.Cycle,
		Item:   cmd,
	})
}

// Advance runs one memory cycle of a channel. now is in processor cycles and
// is expected to be a multiple of the channel's clock multiplier.
func (c *Comp) Advance(now int64, ch int) error {
	chn := c.channels[ch]
	c.transfer(now, chn)

	var firstErr error
	for _, v := range chn.vaults {
		if err := c.advanceVault(now, ch, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.finishCycle(now, chn)

	return firstErr
}

// AdvanceParallel is Advance with the vaults of the channel stepped in
// separate goroutines. Vaults share no state once the link transfers are
// done, so the result is the same as Advance.
func (c *Comp) AdvanceParallel(now int64, ch int) error {
	chn := c.channels[ch]
	c.transfer(now, chn)

	errs := make([]error, len(chn.vaults))

	var wg sync.WaitGroup
	for i, v := range chn.vaults {
		wg.Add(1)

		go func(i int, v *vault) {
			defer wg.Done()
			errs[i] = c.advanceVault(now, ch, v)
		}(i, v)
	}
	wg.Wait()

	c.finishCycle(now, chn)

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// AdvanceAll advances every channel whose memory clock ticks at now.
func (c *Comp) AdvanceAll(now int64) error {
	var firstErr error

	for ch, chn := range c.channels {
		if now%chn.multiplier != 0 {
			continue
		}

		if err := c.Advance(now, ch); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.now = now

	return firstErr
}

// Tick advances the channels at the current engine time. It keeps ticking
// while requests are pending.
func (c *Comp) Tick() bool {
	now := c.TickingComponent.Now()
	_ = c.AdvanceAll(now)

	return c.queues.Pending() > 0
}

func (c *Comp) transfer(now int64, chn *channel) {
	if chn.link == nil {
		return
	}

	chn.link.TransferRequests(now)
	chn.link.TransferResponses(now)
}

func (c *Comp) advanceVault(now int64, ch int, v *vault) error {
	u := v.unit

	u.BeginCycle()
	u.AdvanceBookkeeping(now)
	u.UpdateIssuable(now)

	for _, q := range []*trans.Queue{&v.queues.Read, &v.queues.Write} {
		for _, r := range q.Requests() {
			if r.Served == signal.NotServed {
				u.UpdateRequestCommand(now, r)
			}
		}
	}

	c.queues.UpdateReadReturnQueue(ch, u.Vault, now)
	c.queues.CleanQueues(ch, u.Vault)

	err := v.policy.Schedule(now, u, v.queues)

	u.GatherStats()

	return err
}

func (c *Comp) finishCycle(now int64, chn *channel) {
	chn.elapsed += chn.multiplier
	if now > c.now {
		c.now = now
	}
}

// Stats returns the statistics of every vault.
func (c *Comp) Stats() Snapshot {
	s := Snapshot{Cycle: c.now}

	for ch, chn := range c.channels {
		for vi, v := range chn.vaults {
			s.Vaults = append(s.Vaults, c.snapshotVault(ch, vi, chn, v))
		}
	}

	summarize(&s)

	return s
}

func (c *Comp) snapshotVault(
	ch, vi int,
	chn *channel,
	v *vault,
) VaultSnapshot {
	us := v.unit.Stats
	qs := v.queues.Stats

	vs := VaultSnapshot{
		Channel:              ch,
		Vault:                vi,
		Near:                 chn.near,
		ReadsSeen:            qs.ReadsSeen,
		WritesSeen:           qs.WritesSeen,
		ReadsMerged:          qs.ReadsMerged,
		WritesMerged:         qs.WritesMerged,
		ReadsCompleted:       us.ReadsCompleted,
		WritesCompleted:      us.WritesCompleted,
		AvgReadLatency:       us.AvgReadLatency,
		AvgReadQueueLatency:  us.AvgReadQueueLatency,
		AvgWriteLatency:      us.AvgWriteLatency,
		AvgWriteQueueLatency: us.AvgWriteQueueLatency,
		AggressivePrecharges: v.policy.AggressivePrecharges(),
	}

	var reads, writes, readActs, writeActs uint64
	for i, r := range v.unit.Ranks {
		rs := snapshotRank(i, r)
		reads += rs.Reads
		writes += rs.Writes
		readActs += rs.ReadActivates
		writeActs += rs.WriteActivates
		vs.Ranks = append(vs.Ranks, rs)
	}

	vs.ReadPageHitRate = pageHitRate(reads, readActs)
	vs.WritePageHitRate = pageHitRate(writes, writeActs)

	return vs
}

// Power returns the average power of a rank over the cycles its channel has
// been advanced through.
func (c *Comp) Power(ch, v, rank int) PowerReport {
	chn := c.channels[ch]
	u := chn.vaults[v].unit

	rep := computePower(chn.electrical, u.Timing, u.Ranks[rank], chn.elapsed)
	rep.Channel = ch
	rep.Vault = v
	rep.Rank = rank

	return rep
}

// SetPanicOnViolation switches between returning errors and panicking on
// illegal commands.
func (c *Comp) SetPanicOnViolation(panicOnViolation bool) {
	for _, chn := range c.channels {
		for _, v := range chn.vaults {
			v.unit.PanicOnViolation = panicOnViolation
		}
	}
}
