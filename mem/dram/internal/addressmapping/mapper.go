// Package addressmapping decodes physical addresses into DRAM coordinates.
package addressmapping

import "math/bits"

// Location is the DRAM coordinate of a cache line.
type Location struct {
	Channel int
	Vault   int
	Rank    int
	Bank    int
	Row     int
	Column  int
}

// A Mapper converts a physical address to a DRAM location.
type Mapper interface {
	Map(addr uint64) Location
}

// Mode selects how far-memory addresses are interleaved.
type Mode int

// Supported far-memory interleavings.
const (
	// RowMajor keeps consecutive lines in the same row. The column field is
	// extracted before the channel, bank and rank fields.
	RowMajor Mode = iota

	// BankStriped spreads consecutive lines over channels, banks and ranks
	// before moving to the next column.
	BankStriped
)

// Geometry lists the sizes of one address space. All counts are rounded down
// to a power of two when converted into field widths.
type Geometry struct {
	NumChannel int
	NumVault   int
	NumRank    int
	NumBank    int
	NumRow     int
	NumColumn  int
	LineSize   int
}

type fieldWidths struct {
	offset, channel, vault, rank, bank, row, column int
}

func widthsOf(g Geometry) fieldWidths {
	return fieldWidths{
		offset:  log2(g.LineSize),
		channel: log2(g.NumChannel),
		vault:   log2(g.NumVault),
		rank:    log2(g.NumRank),
		bank:    log2(g.NumBank),
		row:     log2(g.NumRow),
		column:  log2(g.NumColumn),
	}
}

func log2(n int) int {
	if n <= 1 {
		return 0
	}

	return bits.Len(uint(n)) - 1
}

// DefaultMapper decodes near-memory (stacked, vault based) and far-memory
// (DIMM) addresses. Near channels are numbered first; far channel IDs are
// offset by the number of near channels.
type DefaultMapper struct {
	numNearChannel int
	near           fieldWidths
	far            fieldWidths
	mode           Mode
	farSpaceBit    uint
}

// NumNearChannel returns how many channels belong to the near space.
func (m *DefaultMapper) NumNearChannel() int {
	return m.numNearChannel
}

// IsFar tells whether the address belongs to the far-memory space.
func (m *DefaultMapper) IsFar(addr uint64) bool {
	if m.numNearChannel == 0 {
		return true
	}

	return addr>>m.farSpaceBit != 0
}

// Map decodes the address.
func (m *DefaultMapper) Map(addr uint64) Location {
	if !m.IsFar(addr) {
		return m.mapNear(addr)
	}

	if m.mode == RowMajor {
		return m.mapFarRowMajor(addr)
	}

	return m.mapFarBankStriped(addr)
}

type fieldReader struct {
	rest uint64
}

func (r *fieldReader) take(width int) int {
	v := r.rest & (uint64(1)<<uint(width) - 1)
	r.rest >>= uint(width)

	return int(v)
}

func (m *DefaultMapper) mapNear(addr uint64) Location {
	w := m.near
	r := fieldReader{rest: addr}
	r.take(w.offset)

	loc := Location{}
	loc.Channel = r.take(w.channel)
	loc.Vault = r.take(w.vault)
	loc.Bank = r.take(w.bank)
	loc.Rank = r.take(w.rank)
	loc.Column = r.take(w.column)
	loc.Row = r.take(w.row)

	return loc
}

func (m *DefaultMapper) mapFarRowMajor(addr uint64) Location {
	w := m.far
	r := fieldReader{rest: addr}
	r.take(w.offset)

	loc := Location{}
	loc.Column = r.take(w.column)
	loc.Channel = r.take(w.channel) + m.numNearChannel
	loc.Bank = r.take(w.bank)
	loc.Rank = r.take(w.rank)
	loc.Row = r.take(w.row)

	return loc
}

func (m *DefaultMapper) mapFarBankStriped(addr uint64) Location {
	w := m.far
	r := fieldReader{rest: addr}
	r.take(w.offset)

	loc := Location{}
	loc.Channel = r.take(w.channel) + m.numNearChannel
	loc.Bank = r.take(w.bank)
	loc.Rank = r.take(w.rank)
	loc.Column = r.take(w.column)
	loc.Row = r.take(w.row)

	return loc
}
