package frontend

import (
	"math"
	"sync"

	"github.com/anirbannag/usimm-pm/mem/dram"
)

// NotReady is the completion cycle of an instruction waiting for memory.
const NotReady int64 = math.MaxInt64

// A ROB is the reorder buffer of one core. Instruction ids are slot indices.
type ROB struct {
	comptime []int64
	head     int
	tail     int
	count    int
}

// NewROB creates an empty reorder buffer.
func NewROB(size int) *ROB {
	return &ROB{comptime: make([]int64, size)}
}

// Len returns the number of instructions in flight.
func (r *ROB) Len() int {
	return r.count
}

// IsFull tells whether no instruction can be added.
func (r *ROB) IsFull() bool {
	return r.count == len(r.comptime)
}

// Push adds an instruction completing at cycle and returns its id.
func (r *ROB) Push(cycle int64) int {
	if r.IsFull() {
		panic("pushing into a full reorder buffer")
	}

	id := r.tail
	r.comptime[id] = cycle
	r.tail = (r.tail + 1) % len(r.comptime)
	r.count++

	return id
}

// Complete sets the completion cycle of an instruction.
func (r *ROB) Complete(id int, cycle int64) {
	r.comptime[id] = cycle
}

// Retire removes up to max completed instructions from the head and returns
// how many were removed.
func (r *ROB) Retire(now int64, max int) int {
	n := 0
	for n < max && r.count > 0 && r.comptime[r.head] <= now {
		r.head = (r.head + 1) % len(r.comptime)
		r.count--
		n++
	}

	return n
}

// ReorderBuffers holds the reorder buffers of all cores and receives read
// completions from the memory controller.
type ReorderBuffers struct {
	lock sync.Mutex
	robs []*ROB
}

// NewReorderBuffers creates one reorder buffer per core.
func NewReorderBuffers(numCore, size int) *ReorderBuffers {
	b := &ReorderBuffers{robs: make([]*ROB, numCore)}
	for i := range b.robs {
		b.robs[i] = NewROB(size)
	}

	return b
}

// Core returns the reorder buffer of a core.
func (b *ReorderBuffers) Core(core int) *ROB {
	return b.robs[core]
}

// NotifyCompletion records the cycle at which a read's data is available.
func (b *ReorderBuffers) NotifyCompletion(core, instructionID int, cycle int64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.robs[core].Complete(instructionID, cycle)
}

var _ dram.CompletionSink = (*ReorderBuffers)(nil)
