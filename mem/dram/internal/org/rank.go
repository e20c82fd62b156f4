package org

// RankStats accumulates per-rank activity used by the power model.
type RankStats struct {
	Activates       uint64
	AvgActivateGap  float64
	LastActivate    int64
	Refreshes       uint64
	ForcedRefreshes uint64
	PowerDownsFast  uint64
	PowerDownsSlow  uint64
	PowerUps        uint64

	CyclesActiveStandby     int64
	CyclesActivePowerDown   int64
	CyclesPrePowerDownFast  int64
	CyclesPrePowerDownSlow  int64
	CyclesPoweredUp         int64
	CyclesTerminatingReads  int64
	CyclesTerminatingWrites int64
}

// A Rank is a set of banks that share a refresh budget and an activation
// window.
type Rank struct {
	Banks   []*Bank
	Refresh RefreshDeadline
	Window  *ActivationWindow
	Stats   RankStats
}

// NewRank creates a rank with all banks idle.
func NewRank(numBank int, t Timing) *Rank {
	r := &Rank{
		Banks:   make([]*Bank, numBank),
		Refresh: NewRefreshDeadline(t),
		Window:  NewActivationWindow(t.TFAW),
	}

	for i := range r.Banks {
		r.Banks[i] = NewBank()
	}

	return r
}

// PowerState returns the state that decides rank-wide power behavior. All
// banks of a rank enter and leave power-down together, so bank 0 speaks for
// the rank.
func (r *Rank) PowerState() BankState {
	return r.Banks[0].State
}

// HasOpenRow returns true if at least one bank has an active row.
func (r *Rank) HasOpenRow() bool {
	for _, b := range r.Banks {
		if b.State == BankStateRowActive {
			return true
		}
	}

	return false
}

func (r *Rank) recordActivate(now int64) {
	r.Window.Record(now)

	s := &r.Stats
	s.Activates++
	gap := float64(now - s.LastActivate)
	s.AvgActivateGap += (gap - s.AvgActivateGap) / float64(s.Activates)
	s.LastActivate = now
}

// accumulate adds one memory cycle worth of residency to the state counters.
func (r *Rank) accumulate(cycles int64) {
	switch r.PowerState() {
	case BankStatePrechargePowerDownSlow:
		r.Stats.CyclesPrePowerDownSlow += cycles
	case BankStatePrechargePowerDownFast:
		r.Stats.CyclesPrePowerDownFast += cycles
	case BankStateActivePowerDown:
		r.Stats.CyclesActivePowerDown += cycles
	default:
		if r.HasOpenRow() {
			r.Stats.CyclesActiveStandby += cycles
		}

		r.Stats.CyclesPoweredUp += cycles
	}
}
