// Package trans holds the request queues of the controller and the link that
// carries requests between the cores and near-memory vaults.
package trans

import (
	"errors"
	"log"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// ErrNotQueued is raised when a request is removed from a queue it is not in.
var ErrNotQueued = errors.New("request is not in the queue")

// A Queue keeps requests in arrival order.
type Queue struct {
	reqs []*signal.Request
}

// Push appends a request.
func (q *Queue) Push(req *signal.Request) {
	q.reqs = append(q.reqs, req)
}

// Len returns the number of requests in the queue.
func (q *Queue) Len() int {
	return len(q.reqs)
}

// Requests returns the queued requests, oldest first. The slice must not be
// modified.
func (q *Queue) Requests() []*signal.Request {
	return q.reqs
}

// Head returns the oldest request or nil.
func (q *Queue) Head() *signal.Request {
	if len(q.reqs) == 0 {
		return nil
	}

	return q.reqs[0]
}

// Remove takes a request out of the queue.
func (q *Queue) Remove(req *signal.Request) {
	for i, r := range q.reqs {
		if r == req {
			q.reqs = append(q.reqs[:i], q.reqs[i+1:]...)
			return
		}
	}

	log.Panicf("%v: %s", ErrNotQueued, req.ID)
}

// RemoveIf removes and returns the requests that satisfy the predicate,
// keeping the order of the rest.
func (q *Queue) RemoveIf(pred func(*signal.Request) bool) []*signal.Request {
	var removed []*signal.Request

	kept := q.reqs[:0]
	for _, r := range q.reqs {
		if pred(r) {
			removed = append(removed, r)
			continue
		}

		kept = append(kept, r)
	}

	for i := len(kept); i < len(q.reqs); i++ {
		q.reqs[i] = nil
	}

	q.reqs = kept

	return removed
}

// FindAddress returns the oldest request to a physical address or nil.
func (q *Queue) FindAddress(addr uint64) *signal.Request {
	for _, r := range q.reqs {
		if r.Address == addr {
			return r
		}
	}

	return nil
}
