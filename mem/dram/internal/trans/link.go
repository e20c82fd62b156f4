package trans

import (
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// ReturnQueueLimit caps the number of reads waiting in the read-return queue
// of a vault before the link stops sending it reads.
const ReturnQueueLimit = 10

// LinkStats counts link transfers.
type LinkStats struct {
	RequestsSent  uint64
	ResponsesSent uint64
}

// A Link is the serial connection between the cores and the vaults of a near
// channel. It sends one request per read or write link latency toward the
// vaults and one response per write link latency back.
type Link struct {
	Channel int

	ReadLatency   int64
	WriteLatency  int64
	PipelineDepth int64
	Sink          org.CompletionSink

	Stats LinkStats

	queues          *QueueSet
	nextRequestTime int64
	nextRespondTime int64
	lastCore        int
	nextVault       int
}

// NewLink creates a link for a near channel.
func NewLink(channel int, queues *QueueSet, readLatency, writeLatency int64) *Link {
	return &Link{
		Channel:      channel,
		ReadLatency:  readLatency,
		WriteLatency: writeLatency,
		queues:       queues,
	}
}

// NextRequestTime returns the first cycle the link may send a request.
func (l *Link) NextRequestTime() int64 {
	return l.nextRequestTime
}

// NextRespondTime returns the first cycle the link may send a response.
func (l *Link) NextRespondTime() int64 {
	return l.nextRespondTime
}

func (l *Link) cores() []int {
	n := l.queues.NumCore()
	order := make([]int, 0, n)

	for i := 1; i <= n; i++ {
		order = append(order, (l.lastCore+i)%n)
	}

	return order
}

func (l *Link) sendable(s *Staging) *signal.Request {
	for _, r := range s.Read.Requests() {
		vq := l.queues.Vault(l.Channel, r.Location.Vault)
		if vq.Return.Len() < ReturnQueueLimit {
			return r
		}
	}

	return nil
}

// ScheduleToVault picks the next staged request to send. Cores are visited
// round-robin starting after the last one served. A core that drains writes
// sends its oldest write, otherwise a core sends a read whose vault can take
// one more response. When no core qualifies any pending write is sent.
func (l *Link) ScheduleToVault(now int64) *signal.Request {
	order := l.cores()

	for _, core := range order {
		s := l.queues.Staging(core, l.Channel)

		if s.Drain.Update(s.Write.Len(), false) {
			l.nextRequestTime = now + l.WriteLatency
			l.lastCore = core

			return s.Write.Head()
		}

		if r := l.sendable(s); r != nil {
			l.nextRequestTime = now + l.ReadLatency
			l.lastCore = core

			return r
		}
	}

	for _, core := range order {
		s := l.queues.Staging(core, l.Channel)

		if s.Write.Len() > 0 {
			l.nextRequestTime = now + l.WriteLatency
			l.lastCore = core

			return s.Write.Head()
		}
	}

	return nil
}

// ScheduleCompleted picks the next read to return to its core. Vaults are
// visited round-robin.
func (l *Link) ScheduleCompleted(now int64) *signal.Request {
	n := l.queues.NumVault(l.Channel)
	start := l.nextVault

	for i := 0; i < n; i++ {
		v := (start + i) % n
		vq := l.queues.Vault(l.Channel, v)

		for _, r := range vq.Return.Requests() {
			if r.Served != signal.Served {
				continue
			}

			l.nextRespondTime = now + l.WriteLatency
			l.nextVault = (v + 1) % n

			return r
		}
	}

	l.nextVault = (l.nextVault + 1) % n

	return nil
}

// TransferRequests moves one staged request into its vault queue when the
// link is free. The request arrives at the vault once the link latency has
// passed.
func (l *Link) TransferRequests(now int64) bool {
	if now < l.nextRequestTime || now == 0 {
		return false
	}

	req := l.ScheduleToVault(now)
	if req == nil {
		return false
	}

	s := l.queues.Staging(req.Core, l.Channel)
	vq := l.queues.Vault(l.Channel, req.Location.Vault)
	req.ArrivalCycle = l.nextRequestTime

	if req.IsRead() {
		s.Read.Remove(req)
		vq.Read.Push(req)
	} else {
		s.Write.Remove(req)
		vq.Write.Push(req)
	}

	l.Stats.RequestsSent++

	return true
}

// TransferResponses sends one completed read back to its core when the link
// is free and tells the sink when the data arrives.
func (l *Link) TransferResponses(now int64) bool {
	if now < l.nextRespondTime || now == 0 {
		return false
	}

	req := l.ScheduleCompleted(now)
	if req == nil {
		return false
	}

	req.Served = signal.Returned

	if l.Sink != nil {
		l.Sink.NotifyCompletion(req.Core, req.InstructionID,
			l.nextRespondTime+l.PipelineDepth)
	}

	l.Stats.ResponsesSent++

	return true
}
