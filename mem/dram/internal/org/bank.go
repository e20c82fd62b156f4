package org

// BankState is the state of a bank.
type BankState int

// The bank states.
const (
	BankStateIdle BankState = iota
	BankStatePrecharging
	BankStateRefreshing
	BankStateRowActive
	BankStatePrechargePowerDownFast
	BankStatePrechargePowerDownSlow
	BankStateActivePowerDown
)

var bankStateNames = [...]string{
	"Idle",
	"Precharging",
	"Refreshing",
	"RowActive",
	"PrechargePowerDownFast",
	"PrechargePowerDownSlow",
	"ActivePowerDown",
}

func (s BankState) String() string {
	if s < 0 || int(s) >= len(bankStateNames) {
		return "Unknown"
	}

	return bankStateNames[s]
}

// IsClosed returns true if no row is open and the bank is powered up.
func (s BankState) IsClosed() bool {
	return s == BankStateIdle ||
		s == BankStatePrecharging ||
		s == BankStateRefreshing
}

// IsPoweredUp returns true for every state that is not a power-down state.
func (s BankState) IsPoweredUp() bool {
	return s.IsClosed() || s == BankStateRowActive
}

// IsPowerDown returns true for the power-down states.
func (s BankState) IsPowerDown() bool {
	return !s.IsPoweredUp()
}

// NoRow is the active row of a bank without an open row.
const NoRow = -1

// CASFlag records the column command a bank received in the current cycle.
type CASFlag int

// The CAS flags.
const (
	CASNone CASFlag = iota
	CASRead
	CASWrite
)

// BankStats counts the commands a bank received.
type BankStats struct {
	ReadActivates     uint64
	WriteActivates    uint64
	ExplicitActivates uint64
	Precharges        uint64
	Reads             uint64
	Writes            uint64
}

// A Bank holds the state of a DRAM bank and the earliest cycle at which each
// command may be sent to it. The Next* counters only ever grow.
type Bank struct {
	State     BankState
	ActiveRow int

	NextActivate  int64
	NextPrecharge int64
	NextRead      int64
	NextWrite     int64
	NextPowerDown int64
	NextPowerUp   int64
	NextRefresh   int64

	CAS   CASFlag
	Stats BankStats
}

// NewBank creates an idle bank.
func NewBank() *Bank {
	return &Bank{
		State:     BankStateIdle,
		ActiveRow: NoRow,
	}
}

func raise(counter *int64, cycle int64) {
	if cycle > *counter {
		*counter = cycle
	}
}

// holdRowCycle pushes the counters that a precharge or refresh blocks.
func (b *Bank) holdRowCycle(cycle int64) {
	raise(&b.NextActivate, cycle)
	raise(&b.NextPrecharge, cycle)
	raise(&b.NextRefresh, cycle)
	raise(&b.NextPowerDown, cycle)
}

// holdAll pushes every counter except NextPowerUp.
func (b *Bank) holdAll(cycle int64) {
	b.holdRowCycle(cycle)
	raise(&b.NextRead, cycle)
	raise(&b.NextWrite, cycle)
}

func (b *Bank) close(state BankState) {
	b.State = state
	b.ActiveRow = NoRow
}
