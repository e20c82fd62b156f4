// Package frontend drives the memory controller with trace-driven cores that
// retire instructions through a reorder buffer.
package frontend

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anirbannag/usimm-pm/mem/dram"
)

// Op is the memory operation of a trace record.
type Op int

// Trace operations.
const (
	OpRead Op = iota
	OpWrite
)

// A Record is one line of a trace: a number of non-memory instructions
// followed by one memory instruction.
type Record struct {
	NonMem  int
	Op      Op
	Address uint64
	PC      uint64
}

// TraceReader parses traces with lines of the form "<nonmem> R <addr> <pc>"
// or "<nonmem> W <addr>". Addresses and PCs are hexadecimal with an optional
// 0x prefix.
type TraceReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewTraceReader creates a reader.
func NewTraceReader(r io.Reader) *TraceReader {
	return &TraceReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next record, or io.EOF at the end of the trace.
func (t *TraceReader) Next() (Record, error) {
	for t.scanner.Scan() {
		t.line++

		text := strings.TrimSpace(t.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rec, err := parseRecord(text)
		if err != nil {
			return Record{}, fmt.Errorf("trace line %d: %w", t.line, err)
		}

		return rec, nil
	}

	if err := t.scanner.Err(); err != nil {
		return Record{}, err
	}

	return Record{}, io.EOF
}

func parseRecord(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return Record{}, fmt.Errorf("expected at least 3 fields, got %q", text)
	}

	nonMem, err := strconv.Atoi(fields[0])
	if err != nil || nonMem < 0 {
		return Record{}, fmt.Errorf("bad non-memory count %q", fields[0])
	}

	addr, err := parseHex(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("bad address %q: %w", fields[2], err)
	}

	rec := Record{NonMem: nonMem, Address: addr}

	switch fields[1] {
	case "R":
		rec.Op = OpRead
		if len(fields) < 4 {
			return Record{}, fmt.Errorf("read without a pc: %q", text)
		}

		if rec.PC, err = parseHex(fields[3]); err != nil {
			return Record{}, fmt.Errorf("bad pc %q: %w", fields[3], err)
		}
	case "W":
		rec.Op = OpWrite
	default:
		return Record{}, fmt.Errorf("unknown operation %q", fields[1])
	}

	return rec, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// Memory is the part of the memory controller the cores use.
type Memory interface {
	InsertRead(addr uint64, arrival int64, core, instructionID int, pc uint64) *dram.Request
	InsertWrite(addr uint64, arrival int64, core, instructionID int) *dram.Request
	ReadMatchesPending(addr uint64, core int) int64
	WriteMatchesPending(addr uint64, core int) bool
	WriteQueueIsFull(core int) bool
	AllWritesCompleted() bool
	AdvanceAll(now int64) error
}

var _ Memory = (*dram.Comp)(nil)
