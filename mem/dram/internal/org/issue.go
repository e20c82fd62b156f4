package org

import "github.com/anirbannag/usimm-pm/mem/dram/internal/signal"

// IssueRequestCommand issues the next command of a request. The request must
// have been marked issuable at now and the command bus must be free.
func (u *Unit) IssueRequestCommand(now int64, req *signal.Request) error {
	loc := req.Location
	kind := req.NextCommand

	if !req.Issuable || u.commandIssued || now < req.ArrivalCycle {
		return u.violation(now, kind, loc.Rank, loc.Bank,
			"request command selected while not issuable")
	}

	b := u.Bank(loc.Rank, loc.Bank)

	switch kind {
	case signal.CmdKindActivate:
		if !b.State.IsClosed() {
			return u.violation(now, kind, loc.Rank, loc.Bank, "bank has an open row")
		}

		u.activate(now, loc.Rank, loc.Bank, loc.Row)

		if req.IsRead() {
			b.Stats.ReadActivates++
		} else {
			b.Stats.WriteActivates++
		}
	case signal.CmdKindRead:
		if b.State != BankStateRowActive {
			return u.violation(now, kind, loc.Rank, loc.Bank, "bank has no open row")
		}

		u.columnRead(now, req)
	case signal.CmdKindWrite:
		if b.State != BankStateRowActive {
			return u.violation(now, kind, loc.Rank, loc.Bank, "bank has no open row")
		}

		u.columnWrite(now, req)
	case signal.CmdKindPrecharge:
		if !b.State.IsPoweredUp() {
			return u.violation(now, kind, loc.Rank, loc.Bank, "bank is powered down")
		}

		u.precharge(now, loc.Rank, loc.Bank)
	case signal.CmdKindPowerUp:
		if !b.State.IsPowerDown() {
			return u.violation(now, kind, loc.Rank, loc.Bank, "rank is not powered down")
		}

		u.powerUp(now, loc.Rank)
	default:
		return nil
	}

	u.take(u.command(now, kind, loc.Rank, loc.Bank, req))

	return nil
}

func (u *Unit) activate(now int64, rank, bank, row int) {
	t := u.Timing
	r := u.Ranks[rank]
	b := r.Banks[bank]

	b.State = BankStateRowActive
	b.ActiveRow = row

	raise(&b.NextPrecharge, now+t.TRAS)
	raise(&b.NextRefresh, now+t.TRAS)
	raise(&b.NextRead, now+t.TRCD)
	raise(&b.NextWrite, now+t.TRCD)
	raise(&b.NextActivate, now+t.TRC)
	raise(&b.NextPowerDown, now+t.TRCD)

	for i, other := range r.Banks {
		if i != bank {
			raise(&other.NextActivate, now+t.TRRD)
		}
	}

	r.recordActivate(now)
}

func (u *Unit) columnRead(now int64, req *signal.Request) {
	t := u.Timing
	loc := req.Location
	b := u.Bank(loc.Rank, loc.Bank)

	raise(&b.NextPrecharge, now+t.readToPrecharge())
	raise(&b.NextRefresh, now+t.readToPrecharge())
	raise(&b.NextPowerDown, now+t.readToPrecharge())

	for i, r := range u.Ranks {
		for _, other := range r.Banks {
			if i != loc.Rank {
				raise(&other.NextRead, now+t.TDataTrans+t.TRTRS)
			} else {
				raise(&other.NextRead, now+t.sameRankColumnGap())
			}

			raise(&other.NextWrite, now+t.TCAS+t.TDataTrans+t.TRTRS-t.TCWD)
		}

		if i != loc.Rank {
			r.Stats.CyclesTerminatingReads += t.TDataTrans
		}
	}

	req.CompletionCycle = now + t.TCAS + t.TDataTrans
	req.Latency = req.CompletionCycle - req.ArrivalCycle
	req.DispatchCycle = now
	req.Served = signal.Served

	if !u.Near && u.Sink != nil {
		u.Sink.NotifyCompletion(req.Core, req.InstructionID,
			req.CompletionCycle+u.PipelineDepth)
	}

	s := &u.Stats
	s.ReadsCompleted++
	n := float64(s.ReadsCompleted)
	s.AvgReadLatency += (float64(req.Latency) - s.AvgReadLatency) / n
	s.AvgReadQueueLatency +=
		(float64(req.DispatchCycle-req.ArrivalCycle) - s.AvgReadQueueLatency) / n

	b.Stats.Reads++
	b.CAS = CASRead
}

func (u *Unit) columnWrite(now int64, req *signal.Request) {
	t := u.Timing
	loc := req.Location
	b := u.Bank(loc.Rank, loc.Bank)

	raise(&b.NextPrecharge, now+t.writeToPrecharge())
	raise(&b.NextRefresh, now+t.writeToPrecharge())
	raise(&b.NextPowerDown, now+t.writeToPrecharge())

	for i, r := range u.Ranks {
		for _, other := range r.Banks {
			if i != loc.Rank {
				raise(&other.NextWrite, now+t.TDataTrans+t.TRTRS)
				raise(&other.NextRead, now+t.TCWD+t.TDataTrans+t.TRTRS-t.TCAS)
			} else {
				raise(&other.NextWrite, now+t.sameRankColumnGap())
				raise(&other.NextRead, now+t.TCWD+t.TDataTrans+t.TWTR)
			}
		}

		if i != loc.Rank {
			r.Stats.CyclesTerminatingWrites += t.TDataTrans
		}
	}

	req.CompletionCycle = now + t.TDataTrans + t.TWR
	req.Latency = req.CompletionCycle - req.ArrivalCycle
	req.DispatchCycle = now

	if u.Near {
		req.Served = signal.Returned
	} else {
		req.Served = signal.Served
	}

	s := &u.Stats
	s.WritesCompleted++
	n := float64(s.WritesCompleted)
	s.AvgWriteLatency += (float64(req.Latency) - s.AvgWriteLatency) / n
	s.AvgWriteQueueLatency +=
		(float64(req.DispatchCycle-req.ArrivalCycle) - s.AvgWriteQueueLatency) / n

	b.Stats.Writes++
	b.CAS = CASWrite
}

func (u *Unit) precharge(now int64, rank, bank int) {
	b := u.Bank(rank, bank)

	b.close(BankStatePrecharging)
	b.holdRowCycle(now + u.Timing.TRP)
	b.Stats.Precharges++
}

func (u *Unit) powerUp(now int64, rank int) {
	r := u.Ranks[rank]

	for _, b := range r.Banks {
		delay := u.powerUpLatency(b.State)

		if b.State == BankStateActivePowerDown {
			b.State = BankStateRowActive
		} else {
			b.close(BankStateIdle)
		}

		b.holdAll(now + delay)
	}

	r.Stats.PowerUps++
}

// IssueActivate opens a row outside of any request.
func (u *Unit) IssueActivate(now int64, rank, bank, row int) error {
	if !u.IsActivateAllowed(now, rank, bank) {
		return u.violation(now, signal.CmdKindActivate, rank, bank,
			"activate not allowed")
	}

	u.activate(now, rank, bank, row)
	u.Bank(rank, bank).Stats.ExplicitActivates++

	cmd := u.command(now, signal.CmdKindActivate, rank, bank, nil)
	cmd.Location.Row = row
	u.take(cmd)

	return nil
}

// IssuePrecharge closes the row of a bank.
func (u *Unit) IssuePrecharge(now int64, rank, bank int) error {
	if !u.IsPrechargeAllowed(now, rank, bank) {
		return u.violation(now, signal.CmdKindPrecharge, rank, bank,
			"precharge not allowed")
	}

	u.precharge(now, rank, bank)
	u.take(u.command(now, signal.CmdKindPrecharge, rank, bank, nil))

	return nil
}

// IssueAllBankPrecharge closes every row of a rank with a single command.
func (u *Unit) IssueAllBankPrecharge(now int64, rank int) error {
	if !u.IsAllBankPrechargeAllowed(now, rank) {
		return u.violation(now, signal.CmdKindAllBankPrecharge, rank, -1,
			"all-bank precharge not allowed")
	}

	for b := range u.Ranks[rank].Banks {
		u.precharge(now, rank, b)
	}

	u.take(u.command(now, signal.CmdKindAllBankPrecharge, rank, -1, nil))

	return nil
}

// IssueAutoPrecharge closes a row right after the column command issued to
// it in this cycle. It rides on the column command and does not take the
// command bus. It returns false when the precharge is not allowed.
func (u *Unit) IssueAutoPrecharge(now int64, rank, bank int) bool {
	if !u.IsAutoPrechargeAllowed(now, rank, bank) {
		return false
	}

	b := u.Bank(rank, bank)
	start := u.autoPrechargeStart(now, b)

	b.close(BankStatePrecharging)
	b.holdRowCycle(start + u.Timing.TRP)
	b.Stats.Precharges++

	for _, r := range u.Ranks {
		for _, other := range r.Banks {
			other.CAS = CASNone
		}
	}

	u.notify(u.command(now, signal.CmdKindAutoPrecharge, rank, bank, nil))

	return true
}

// IssuePowerDown puts a rank into fast or slow power-down. Banks with an open
// row go to active power-down.
func (u *Unit) IssuePowerDown(now int64, rank int, kind signal.CommandKind) error {
	switch kind {
	case signal.CmdKindPowerDownFast:
		if !u.IsPowerDownFastAllowed(now, rank) {
			return u.violation(now, kind, rank, -1, "fast power-down not allowed")
		}
	case signal.CmdKindPowerDownSlow:
		if !u.IsPowerDownSlowAllowed(now, rank) {
			return u.violation(now, kind, rank, -1, "slow power-down not allowed")
		}
	default:
		return u.violation(now, kind, rank, -1, "not a power-down command")
	}

	r := u.Ranks[rank]
	precharged := false

	for _, b := range r.Banks {
		raise(&b.NextPowerUp, now+u.Timing.TPDMin)
		raise(&b.NextRefresh, now+u.Timing.TPDMin)

		switch {
		case b.State.IsClosed() && kind == signal.CmdKindPowerDownSlow:
			b.close(BankStatePrechargePowerDownSlow)
			precharged = true
		case b.State.IsClosed():
			b.close(BankStatePrechargePowerDownFast)
			precharged = true
		default:
			b.State = BankStateActivePowerDown
		}
	}

	if precharged && kind == signal.CmdKindPowerDownSlow {
		r.Stats.PowerDownsSlow++
	} else if precharged {
		r.Stats.PowerDownsFast++
	}

	u.take(u.command(now, kind, rank, -1, nil))

	return nil
}

// IssuePowerUp wakes a rank up.
func (u *Unit) IssuePowerUp(now int64, rank int) error {
	if !u.IsPowerUpAllowed(now, rank) {
		return u.violation(now, signal.CmdKindPowerUp, rank, -1,
			"power-up not allowed")
	}

	u.powerUp(now, rank)
	u.take(u.command(now, signal.CmdKindPowerUp, rank, -1, nil))

	return nil
}

func (u *Unit) refreshDelay(r *Rank) int64 {
	t := u.Timing

	switch r.PowerState() {
	case BankStatePrechargePowerDownSlow:
		return t.TXPDLL + t.TRFC
	case BankStatePrechargePowerDownFast:
		return t.TXP + t.TRFC
	case BankStateActivePowerDown:
		return t.TXP + t.TRP + t.TRFC
	}

	if r.HasOpenRow() {
		return t.TRP + t.TRFC
	}

	return t.TRFC
}

// IssueRefresh refreshes every bank of a rank, waking it up and closing its
// rows first if needed.
func (u *Unit) IssueRefresh(now int64, rank int) error {
	if !u.IsRefreshAllowed(now, rank) {
		return u.violation(now, signal.CmdKindRefresh, rank, -1,
			"refresh not allowed")
	}

	r := u.Ranks[rank]
	until := now + u.refreshDelay(r)

	for _, b := range r.Banks {
		b.holdRowCycle(until)
		b.close(BankStateRefreshing)
	}

	r.Refresh.Issued++
	r.Stats.Refreshes++

	u.take(u.command(now, signal.CmdKindRefresh, rank, -1, nil))

	return nil
}

// forceRefresh performs the refreshes still owed in the current window. The
// rank stays blocked until the window completes.
func (u *Unit) forceRefresh(now int64, rank int) {
	r := u.Ranks[rank]
	until := r.Refresh.NextCompletion

	for _, b := range r.Banks {
		b.close(BankStateRefreshing)
		b.holdRowCycle(until)
	}

	owed := RefreshesPerWindow - r.Refresh.Issued
	r.Refresh.Issued = RefreshesPerWindow
	r.Stats.ForcedRefreshes += uint64(owed)

	u.notify(u.command(now, signal.CmdKindForcedRefresh, rank, -1, nil))
}
