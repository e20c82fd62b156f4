// Package dram provides a cycle-accurate DRAM memory controller with near
// memory (HMC-like vaults behind a serial link) and far memory (DIMM
// channels).
package dram

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/addressmapping"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// Timing lists the DDR timing parameters of a channel in memory cycles.
type Timing = org.Timing

// Location is the DRAM coordinate of a cache line.
type Location = addressmapping.Location

// Mode selects how far-memory addresses are interleaved.
type Mode = addressmapping.Mode

// Far-memory interleavings.
const (
	RowMajor    = addressmapping.RowMajor
	BankStriped = addressmapping.BankStriped
)

// Request is a read or write waiting for DRAM.
type Request = signal.Request

// Command is a DRAM command after it has been issued.
type Command = signal.Command

// CommandKind is the kind of a DRAM command.
type CommandKind = signal.CommandKind

// CompletionSink is told when the data of a read reaches its core.
type CompletionSink = org.CompletionSink

// IllegalCommandError reports a command issued against the timing rules.
type IllegalCommandError = org.IllegalCommandError

// ErrIllegalCommand is wrapped by every IllegalCommandError.
var ErrIllegalCommand = org.ErrIllegalCommand

// DDR3Timing returns the timing of a DDR3-1600 device in memory cycles.
func DDR3Timing() Timing {
	return Timing{
		TRCD:       11,
		TRP:        11,
		TCAS:       11,
		TRC:        39,
		TRAS:       28,
		TRRD:       5,
		TFAW:       32,
		TWR:        12,
		TWTR:       6,
		TRTP:       6,
		TCCD:       4,
		TRFC:       128,
		TREFI:      6240,
		TCWD:       5,
		TRTRS:      2,
		TPDMin:     4,
		TXP:        5,
		TXPDLL:     20,
		TDataTrans: 4,
	}
}
