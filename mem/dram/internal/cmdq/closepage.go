package cmdq

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/trans"
)

// ClosePage serves requests first-come-first-served and closes rows early.
// A bank that just served a column access becomes a candidate for closure;
// when the command bus is left free in a cycle, the first candidate that can
// be precharged is.
type ClosePage struct {
	recentColAcc [][]bool
	aggressive   uint64
}

// NewClosePage creates a close-page policy for a unit.
func NewClosePage(numRank, numBank int) *ClosePage {
	p := &ClosePage{recentColAcc: make([][]bool, numRank)}
	for i := range p.recentColAcc {
		p.recentColAcc[i] = make([]bool, numBank)
	}

	return p
}

// AggressivePrecharges returns the number of rows closed early.
func (p *ClosePage) AggressivePrecharges() uint64 {
	return p.aggressive
}

// Schedule issues a command.
func (p *ClosePage) Schedule(now int64, u *org.Unit, q *trans.VaultQueues) error {
	queue := activeQueue(q)

	for _, req := range queue.Requests() {
		if !req.Issuable || now < req.ArrivalCycle ||
			req.Served != signal.NotServed {
			continue
		}

		loc := req.Location
		switch req.NextCommand {
		case signal.CmdKindRead, signal.CmdKindWrite:
			p.recentColAcc[loc.Rank][loc.Bank] = true
		case signal.CmdKindActivate, signal.CmdKindPrecharge:
			p.recentColAcc[loc.Rank][loc.Bank] = false
		}

		if err := u.IssueRequestCommand(now, req); err != nil {
			return err
		}

		break
	}

	if u.CommandIssued() {
		return nil
	}

	return p.closeRows(now, u)
}

func (p *ClosePage) closeRows(now int64, u *org.Unit) error {
	for rank, banks := range p.recentColAcc {
		for bank, recent := range banks {
			if !recent || !u.IsPrechargeAllowed(now, rank, bank) {
				continue
			}

			if err := u.IssuePrecharge(now, rank, bank); err != nil {
				return err
			}

			p.aggressive++
			banks[bank] = false

			return nil
		}
	}

	return nil
}
