package cmdq

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/trans"
)

// FRFCFS is the open-page first-ready first-come-first-served policy. It
// serves the oldest issuable request, but does not close a row that another
// queued request can still hit.
type FRFCFS struct{}

// NewFRFCFS creates an FR-FCFS policy.
func NewFRFCFS() *FRFCFS {
	return &FRFCFS{}
}

// AggressivePrecharges is always 0 since open-page never closes rows early.
func (p *FRFCFS) AggressivePrecharges() uint64 {
	return 0
}

// Schedule issues a command.
func (p *FRFCFS) Schedule(now int64, u *org.Unit, q *trans.VaultQueues) error {
	queue := activeQueue(q)
	hit := columnKind(queue, q)

	for _, req := range queue.Requests() {
		if !req.Issuable || now < req.ArrivalCycle ||
			req.Served != signal.NotServed {
			continue
		}

		if req.NextCommand == signal.CmdKindPrecharge &&
			rowHitPending(u, queue, req, hit) {
			continue
		}

		return u.IssueRequestCommand(now, req)
	}

	return nil
}

func rowHitPending(
	u *org.Unit,
	queue *trans.Queue,
	req *signal.Request,
	hit signal.CommandKind,
) bool {
	loc := req.Location
	openRow := u.Bank(loc.Rank, loc.Bank).ActiveRow

	for _, other := range queue.Requests() {
		o := other.Location
		if other.NextCommand == hit &&
			o.Row == openRow &&
			o.Channel == loc.Channel &&
			o.Vault == loc.Vault &&
			o.Rank == loc.Rank &&
			o.Bank == loc.Bank {
			return true
		}
	}

	return false
}
