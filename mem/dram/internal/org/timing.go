// Package org models the organization of DRAM: ranks, banks, their timing
// state and the commands that change it.
package org

// Timing lists the DDR timing parameters. The builder supplies them in
// memory-clock cycles and scales them to processor cycles before use.
type Timing struct {
	TRCD       int64 // activate to column command
	TRP        int64 // precharge
	TCAS       int64 // column read to data
	TRAS       int64 // activate to precharge
	TRC        int64 // row cycle
	TCWD       int64 // column write to data
	TWR        int64 // write recovery
	TWTR       int64 // write to read turnaround
	TRTRS      int64 // rank to rank switch
	TDataTrans int64 // burst transfer
	TRTP       int64 // read to precharge
	TCCD       int64 // column to column
	TXP        int64 // fast power-down exit
	TXPDLL     int64 // slow power-down exit
	TCKE       int64 // power-down entry
	TPDMin     int64 // minimum power-down residency
	TRRD       int64 // activate to activate, same rank
	TFAW       int64 // four activation window
	TREFI      int64 // refresh interval
	TRFC       int64 // refresh cycle
}

// Scale multiplies every parameter by a clock multiplier.
func (t Timing) Scale(multiplier int64) Timing {
	return Timing{
		TRCD:       t.TRCD * multiplier,
		TRP:        t.TRP * multiplier,
		TCAS:       t.TCAS * multiplier,
		TRAS:       t.TRAS * multiplier,
		TRC:        t.TRC * multiplier,
		TCWD:       t.TCWD * multiplier,
		TWR:        t.TWR * multiplier,
		TWTR:       t.TWTR * multiplier,
		TRTRS:      t.TRTRS * multiplier,
		TDataTrans: t.TDataTrans * multiplier,
		TRTP:       t.TRTP * multiplier,
		TCCD:       t.TCCD * multiplier,
		TXP:        t.TXP * multiplier,
		TXPDLL:     t.TXPDLL * multiplier,
		TCKE:       t.TCKE * multiplier,
		TPDMin:     t.TPDMin * multiplier,
		TRRD:       t.TRRD * multiplier,
		TFAW:       t.TFAW * multiplier,
		TREFI:      t.TREFI * multiplier,
		TRFC:       t.TRFC * multiplier,
	}
}

func (t Timing) readToPrecharge() int64 {
	return t.TRTP
}

func (t Timing) writeToPrecharge() int64 {
	return t.TCWD + t.TDataTrans + t.TWR
}

func (t Timing) sameRankColumnGap() int64 {
	return max(t.TCCD, t.TDataTrans)
}
