package frontend

import (
	"errors"
	"io"
)

// CoreStats counts what a core has done.
type CoreStats struct {
	Fetched     uint64
	Retired     uint64
	Reads       uint64
	Writes      uint64
	ReadMerges  uint64
	WriteMerges uint64
	CacheHits   uint64
	CacheMisses uint64
	Writebacks  uint64
	StallCycles uint64

	// FinishCycle is the cycle the last instruction retired, or -1 while the
	// core is running.
	FinishCycle int64
}

type core struct {
	id    int
	trace *TraceReader
	rob   *ROB

	next       Record
	hasNext    bool
	nonMemLeft int
	traceDone  bool

	stats CoreStats
}

func newCore(id int, trace io.Reader, rob *ROB) *core {
	return &core{
		id:    id,
		trace: NewTraceReader(trace),
		rob:   rob,
		stats: CoreStats{FinishCycle: -1},
	}
}

func (c *core) finished() bool {
	return c.stats.FinishCycle >= 0
}

// peek makes sure the next trace record is loaded. It returns false at the
// end of the trace.
func (c *core) peek() (bool, error) {
	if c.hasNext {
		return true, nil
	}

	if c.traceDone {
		return false, nil
	}

	rec, err := c.trace.Next()
	if errors.Is(err, io.EOF) {
		c.traceDone = true
		return false, nil
	}

	if err != nil {
		return false, err
	}

	c.next = rec
	c.nonMemLeft = rec.NonMem
	c.hasNext = true

	return true, nil
}

func (c *core) retire(now int64, width int) {
	c.stats.Retired += uint64(c.rob.Retire(now, width))

	if c.traceDone && !c.hasNext && c.rob.Len() == 0 && !c.finished() {
		c.stats.FinishCycle = now
	}
}
