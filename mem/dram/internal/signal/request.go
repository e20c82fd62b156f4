// Package signal defines the requests and commands that flow through the
// memory controller.
package signal

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/addressmapping"
	"github.com/anirbannag/usimm-pm/sim/id"
)

// Unset marks a cycle field that has not been determined yet.
const Unset int64 = -100

// OpType is the kind of memory access.
type OpType int

// Memory access kinds.
const (
	OpRead OpType = iota
	OpWrite
)

func (t OpType) String() string {
	if t == OpRead {
		return "READ"
	}

	return "WRITE"
}

// ServeState tracks how far a request has progressed.
type ServeState int

// The serve states. A far-memory request is finished once Served. A
// near-memory read additionally needs to cross the link back to the core and
// becomes Returned; a near-memory write is Returned as soon as its column
// command is issued.
const (
	NotServed ServeState = iota
	Served
	Returned
)

// Request is a read or a write waiting for DRAM.
type Request struct {
	ID       string
	Address  uint64
	Location addressmapping.Location
	Op       OpType

	ArrivalCycle    int64
	DispatchCycle   int64
	CompletionCycle int64
	Latency         int64

	Core          int
	InstructionID int
	PC            uint64

	Served      ServeState
	NextCommand CommandKind
	Issuable    bool

	UserData any
}

// NewRequest creates a request that has not been served.
func NewRequest(
	addr uint64,
	loc addressmapping.Location,
	op OpType,
	arrival int64,
	core, instructionID int,
	pc uint64,
) *Request {
	return &Request{
		ID:              id.Generate(),
		Address:         addr,
		Location:        loc,
		Op:              op,
		ArrivalCycle:    arrival,
		DispatchCycle:   Unset,
		CompletionCycle: Unset,
		Latency:         Unset,
		Core:            core,
		InstructionID:   instructionID,
		PC:              pc,
		NextCommand:     CmdKindNOP,
	}
}

// IsRead returns true for reads.
func (r *Request) IsRead() bool {
	return r.Op == OpRead
}

// IsWrite returns true for writes.
func (r *Request) IsWrite() bool {
	return r.Op == OpWrite
}
