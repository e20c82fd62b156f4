package signal

import "github.com/anirbannag/usimm-pm/mem/dram/internal/addressmapping"

// Location is the DRAM coordinate a command or request targets.
type Location = addressmapping.Location

// CommandKind is the kind of a DRAM command.
type CommandKind int

// DRAM command kinds.
const (
	CmdKindActivate CommandKind = iota
	CmdKindRead
	CmdKindPrecharge
	CmdKindWrite
	CmdKindPowerDownSlow
	CmdKindPowerDownFast
	CmdKindPowerUp
	CmdKindRefresh
	CmdKindNOP
	CmdKindAllBankPrecharge
	CmdKindAutoPrecharge
	CmdKindForcedRefresh
	NumCmdKind
)

var cmdKindNames = [...]string{
	"ACT",
	"COL_READ",
	"PRE",
	"COL_WRITE",
	"PWR_DN_SLOW",
	"PWR_DN_FAST",
	"PWR_UP",
	"REFRESH",
	"NOP",
	"PRE_ALL",
	"AUTO_PRE",
	"FORCED_REFRESH",
}

func (k CommandKind) String() string {
	if k < 0 || k >= NumCmdKind {
		return "UNKNOWN"
	}

	return cmdKindNames[k]
}

// IsColumn returns true for column reads and writes.
func (k CommandKind) IsColumn() bool {
	return k == CmdKindRead || k == CmdKindWrite
}

// Command describes a command after it has been issued. Rank or bank wide
// commands carry a Bank of -1.
type Command struct {
	Kind     CommandKind
	Location Location
	Cycle    int64
	Request  *Request
}
