package frontend

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anirbannag/usimm-pm/mem/cache/tagging"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

// ErrCycleLimit is returned when the cores have not finished within the
// configured number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

// Driver runs the cores on the processor clock and advances the memory
// controller on each memory clock edge.
type Driver struct {
	*timing.TickingComponent

	mem   Memory
	robs  *ReorderBuffers
	cores []*core

	cache        tagging.TagArray
	cacheLatency int64

	fetchWidth    int
	retireWidth   int
	pipelineDepth int64
	maxCycles     int64

	now  int64
	done bool
	err  error
}

// Tick runs one processor cycle at the engine time.
func (d *Driver) Tick() bool {
	if d.done || d.err != nil {
		return false
	}

	if err := d.Step(d.TickingComponent.Now()); err != nil {
		d.err = err
		logrus.WithError(err).Error("driver stopped")

		return false
	}

	return !d.done
}

// Step runs one processor cycle. Memory is advanced first, then every core
// retires and fetches.
func (d *Driver) Step(now int64) error {
	d.now = now

	if d.maxCycles > 0 && now >= d.maxCycles {
		return fmt.Errorf("%w at cycle %d", ErrCycleLimit, now)
	}

	if err := d.mem.AdvanceAll(now); err != nil {
		return err
	}

	allFinished := true

	for _, c := range d.cores {
		if c.finished() {
			continue
		}

		c.retire(now, d.retireWidth)

		if err := d.fetch(now, c); err != nil {
			return fmt.Errorf("core %d: %w", c.id, err)
		}

		if c.finished() {
			logrus.WithFields(logrus.Fields{
				"core":    c.id,
				"cycle":   now,
				"retired": c.stats.Retired,
			}).Debug("core finished")
		} else {
			allFinished = false
		}
	}

	d.done = allFinished && d.mem.AllWritesCompleted()

	return nil
}

func (d *Driver) fetch(now int64, c *core) error {
	for n := 0; n < d.fetchWidth; n++ {
		if c.rob.IsFull() {
			return nil
		}

		ok, err := c.peek()
		if err != nil || !ok {
			return err
		}

		if c.nonMemLeft > 0 {
			c.rob.Push(now + d.pipelineDepth)
			c.nonMemLeft--
			c.stats.Fetched++

			continue
		}

		if !d.issue(now, c, c.next) {
			c.stats.StallCycles++
			return nil
		}

		c.stats.Fetched++
		c.hasNext = false
	}

	return nil
}

// issue sends a memory instruction to the cache or the controller. It
// returns false when the instruction has to wait.
func (d *Driver) issue(now int64, c *core, rec Record) bool {
	if rec.Op == OpWrite && d.mem.WriteQueueIsFull(c.id) {
		return false
	}

	if d.cache != nil {
		return d.issueCached(now, c, rec)
	}

	if rec.Op == OpRead {
		d.readMemory(now, c, rec)
	} else {
		d.writeMemory(now, c, rec.Address, c.rob.Push(now+d.pipelineDepth))
	}

	return true
}

func (d *Driver) readMemory(now int64, c *core, rec Record) int {
	if lat := d.mem.ReadMatchesPending(rec.Address, c.id); lat > 0 {
		c.stats.ReadMerges++
		return c.rob.Push(now + lat + d.pipelineDepth)
	}

	id := c.rob.Push(NotReady)
	d.mem.InsertRead(rec.Address, now, c.id, id, rec.PC)
	c.stats.Reads++

	return id
}

func (d *Driver) writeMemory(now int64, c *core, addr uint64, id int) {
	if d.mem.WriteMatchesPending(addr, c.id) {
		c.stats.WriteMerges++
		return
	}

	d.mem.InsertWrite(addr, now, c.id, id)
	c.stats.Writes++
}

func (d *Driver) issueCached(now int64, c *core, rec Record) bool {
	write := rec.Op == OpWrite

	if _, hit := d.cache.Access(rec.Address, write); hit {
		c.stats.CacheHits++
		if write {
			c.rob.Push(now + d.pipelineDepth)
		} else {
			c.rob.Push(now + d.cacheLatency + d.pipelineDepth)
		}

		return true
	}

	victim := d.cache.Replace(rec.Address)
	if victim.IsValid && victim.IsDirty && d.mem.WriteQueueIsFull(c.id) {
		return false
	}

	c.stats.CacheMisses++

	var id int
	if write {
		id = c.rob.Push(now + d.pipelineDepth)
	} else {
		id = d.readMemory(now, c, rec)
	}

	victim = d.cache.Insert(rec.Address, c.id, id, write)
	if victim.IsValid && victim.IsDirty {
		d.writeMemory(now, c, d.cache.Address(&victim), id)
		c.stats.Writebacks++
	}

	return true
}

// Done tells whether every core retired its whole trace and every write
// reached DRAM.
func (d *Driver) Done() bool {
	return d.done
}

// Err returns the error that stopped the driver, if any.
func (d *Driver) Err() error {
	return d.err
}

// Cycle returns the last cycle the driver ran.
func (d *Driver) Cycle() int64 {
	return d.now
}

// NumFinished returns the number of cores that retired their whole trace.
func (d *Driver) NumFinished() int {
	n := 0
	for _, c := range d.cores {
		if c.finished() {
			n++
		}
	}

	return n
}

// NumCore returns the number of cores.
func (d *Driver) NumCore() int {
	return len(d.cores)
}

// CoreStats returns the counters of a core.
func (d *Driver) CoreStats(core int) CoreStats {
	return d.cores[core].stats
}

// CacheStats returns the hit and miss counts of the last-level cache. It
// returns false when there is no cache.
func (d *Driver) CacheStats() (tagging.Stats, bool) {
	if d.cache == nil {
		return tagging.Stats{}, false
	}

	return d.cache.Stats(), true
}

// Run ticks the driver on its engine until the cores finish.
func (d *Driver) Run() error {
	if d.TickingComponent == nil {
		return errors.New("driver has no engine")
	}

	d.TickNow()

	if err := d.Engine.Run(); err != nil {
		return err
	}

	return d.err
}
