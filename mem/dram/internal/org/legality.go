package org

import "github.com/anirbannag/usimm-pm/mem/dram/internal/signal"

// guard holds the preconditions shared by every command: the bus is free,
// the rank is not being force-refreshed and the command finishes before the
// refresh issue deadline.
func (u *Unit) guard(now int64, rank int, latency int64) bool {
	return !u.commandIssued && u.Ranks[rank].Refresh.Allows(now, latency)
}

// IsActivateAllowed tells whether a bank can be activated at now.
func (u *Unit) IsActivateAllowed(now int64, rank, bank int) bool {
	if !u.guard(now, rank, u.Timing.TRAS) {
		return false
	}

	b := u.Bank(rank, bank)

	return b.State.IsClosed() &&
		now >= b.NextActivate &&
		u.Ranks[rank].Window.Allows(now)
}

// IsPrechargeAllowed tells whether a bank can be precharged at now.
func (u *Unit) IsPrechargeAllowed(now int64, rank, bank int) bool {
	if !u.guard(now, rank, u.Timing.TRP) {
		return false
	}

	b := u.Bank(rank, bank)

	return b.State.IsPoweredUp() && now >= b.NextPrecharge
}

// IsAllBankPrechargeAllowed tells whether every bank of a rank can be
// precharged at now.
func (u *Unit) IsAllBankPrechargeAllowed(now int64, rank int) bool {
	if !u.guard(now, rank, u.Timing.TRP) {
		return false
	}

	for _, b := range u.Ranks[rank].Banks {
		if !b.State.IsPoweredUp() || now < b.NextPrecharge {
			return false
		}
	}

	return true
}

// IsPowerDownFastAllowed tells whether a rank can enter fast power-down.
func (u *Unit) IsPowerDownFastAllowed(now int64, rank int) bool {
	if !u.guard(now, rank, u.Timing.TPDMin+u.Timing.TXP) {
		return false
	}

	for _, b := range u.Ranks[rank].Banks {
		if !b.State.IsPoweredUp() || now < b.NextPowerDown {
			return false
		}
	}

	return true
}

// IsPowerDownSlowAllowed tells whether a rank can enter slow power-down.
// Every bank has to be precharged.
func (u *Unit) IsPowerDownSlowAllowed(now int64, rank int) bool {
	if !u.guard(now, rank, u.Timing.TPDMin+u.Timing.TXPDLL) {
		return false
	}

	for _, b := range u.Ranks[rank].Banks {
		if !b.State.IsClosed() || now < b.NextPowerDown {
			return false
		}
	}

	return true
}

func (u *Unit) powerUpLatency(state BankState) int64 {
	if state == BankStatePrechargePowerDownSlow {
		return u.Timing.TXPDLL
	}

	return u.Timing.TXP
}

// IsPowerUpAllowed tells whether a powered-down rank can wake up at now.
func (u *Unit) IsPowerUpAllowed(now int64, rank int) bool {
	r := u.Ranks[rank]
	state := r.PowerState()

	if !state.IsPowerDown() || now < r.Banks[0].NextPowerUp {
		return false
	}

	return u.guard(now, rank, u.powerUpLatency(state))
}

// IsRefreshAllowed tells whether a rank can be refreshed at now.
func (u *Unit) IsRefreshAllowed(now int64, rank int) bool {
	r := u.Ranks[rank]
	if u.commandIssued || r.Refresh.Forced {
		return false
	}

	for _, b := range r.Banks {
		if now < b.NextRefresh {
			return false
		}
	}

	return true
}

func (u *Unit) autoPrechargeStart(now int64, b *Bank) int64 {
	if b.CAS == CASRead {
		return max(now+u.Timing.readToPrecharge(), b.NextPrecharge)
	}

	return max(now+u.Timing.writeToPrecharge(), b.NextPrecharge)
}

// IsAutoPrechargeAllowed tells whether a bank that received a column command
// this cycle can close its row right after. It does not need the command
// bus.
func (u *Unit) IsAutoPrechargeAllowed(now int64, rank, bank int) bool {
	b := u.Bank(rank, bank)
	if b.CAS == CASNone {
		return false
	}

	start := u.autoPrechargeStart(now, b)

	return start+u.Timing.TRP <= u.Ranks[rank].Refresh.IssueDeadline
}

// UpdateRequestCommand decides the next command of a request and whether it
// can be issued at now, ignoring the command bus.
func (u *Unit) UpdateRequestCommand(now int64, req *signal.Request) {
	loc := req.Location
	r := u.Ranks[loc.Rank]
	b := r.Banks[loc.Bank]

	var (
		ready   bool
		latency int64
	)

	switch {
	case b.State.IsClosed():
		req.NextCommand = signal.CmdKindActivate
		ready = now >= b.NextActivate && r.Window.Allows(now)
		latency = u.Timing.TRAS
	case b.State == BankStateRowActive && b.ActiveRow == loc.Row:
		if req.IsRead() {
			req.NextCommand = signal.CmdKindRead
			ready = now >= b.NextRead
			latency = u.Timing.readToPrecharge()
		} else {
			req.NextCommand = signal.CmdKindWrite
			ready = now >= b.NextWrite
			latency = u.Timing.writeToPrecharge()
		}
	case b.State == BankStateRowActive:
		req.NextCommand = signal.CmdKindPrecharge
		ready = now >= b.NextPrecharge
		latency = u.Timing.TRP
	default:
		req.NextCommand = signal.CmdKindPowerUp
		ready = now >= b.NextPowerUp
		latency = u.powerUpLatency(b.State)
	}

	req.Issuable = ready && r.Refresh.Allows(now, latency)
}
