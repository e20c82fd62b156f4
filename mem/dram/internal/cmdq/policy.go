// Package cmdq provides the scheduling policies that pick the command a vault
// issues in a cycle.
package cmdq

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/trans"
)

// A Policy issues at most one command to a unit per cycle, choosing among the
// requests in the unit's queues. Schedule runs after the requests' next
// commands have been updated for the cycle.
type Policy interface {
	Schedule(now int64, u *org.Unit, q *trans.VaultQueues) error
	AggressivePrecharges() uint64
}

// activeQueue updates the drain state and returns the queue to serve.
func activeQueue(q *trans.VaultQueues) *trans.Queue {
	if q.Drain.Update(q.Write.Len(), q.Read.Len() == 0) {
		return &q.Write
	}

	return &q.Read
}

func columnKind(queue *trans.Queue, q *trans.VaultQueues) signal.CommandKind {
	if queue == &q.Write {
		return signal.CmdKindWrite
	}

	return signal.CmdKindRead
}
