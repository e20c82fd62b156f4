package trans

import (
	"log"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/addressmapping"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

// ChannelSpec lists the queue parameters of a channel.
type ChannelSpec struct {
	NumVault           int
	WriteQueueCapacity int
	ReadLookupLatency  int64
	WriteLookupLatency int64
}

// VaultStats counts the requests a vault has seen.
type VaultStats struct {
	ReadsSeen    uint64
	WritesSeen   uint64
	ReadsMerged  uint64
	WritesMerged uint64
}

// VaultQueues are the queues in front of one command bus.
type VaultQueues struct {
	Read   Queue
	Write  Queue
	Return Queue
	Drain  DrainState
	Stats  VaultStats
}

// Staging holds the requests a core has for a near channel before they cross
// the link.
type Staging struct {
	Read  Queue
	Write Queue
	Drain DrainState
}

// QueueSet owns every request queue of the controller. Near channels come
// first in channel numbering; their requests are staged per core until the
// link moves them to a vault. Far-channel requests go to the vault queues
// directly.
type QueueSet struct {
	mapper   addressmapping.Mapper
	numNear  int
	channels []ChannelSpec
	vaults   [][]*VaultQueues
	staging  [][]*Staging
}

// NewQueueSet creates empty queues.
func NewQueueSet(
	mapper addressmapping.Mapper,
	numNear, numCore int,
	channels []ChannelSpec,
) *QueueSet {
	qs := &QueueSet{
		mapper:   mapper,
		numNear:  numNear,
		channels: channels,
		vaults:   make([][]*VaultQueues, len(channels)),
		staging:  make([][]*Staging, numCore),
	}

	for ch, spec := range channels {
		qs.vaults[ch] = make([]*VaultQueues, spec.NumVault)
		for v := range qs.vaults[ch] {
			qs.vaults[ch][v] = &VaultQueues{}
		}
	}

	for c := range qs.staging {
		qs.staging[c] = make([]*Staging, numNear)
		for ch := range qs.staging[c] {
			qs.staging[c][ch] = &Staging{}
		}
	}

	return qs
}

// NumChannel returns the number of channels.
func (qs *QueueSet) NumChannel() int {
	return len(qs.channels)
}

// NumVault returns the number of vaults of a channel.
func (qs *QueueSet) NumVault(channel int) int {
	return len(qs.vaults[channel])
}

// NumCore returns the number of cores.
func (qs *QueueSet) NumCore() int {
	return len(qs.staging)
}

// IsNear tells whether a channel is a near-memory channel.
func (qs *QueueSet) IsNear(channel int) bool {
	return channel < qs.numNear
}

// Vault returns the queues of a vault.
func (qs *QueueSet) Vault(channel, vault int) *VaultQueues {
	return qs.vaults[channel][vault]
}

// Staging returns the staging queues of a core for a near channel.
func (qs *QueueSet) Staging(core, channel int) *Staging {
	return qs.staging[core][channel]
}

// Map decodes an address.
func (qs *QueueSet) Map(addr uint64) addressmapping.Location {
	return qs.mapper.Map(addr)
}

func (qs *QueueSet) insert(
	addr uint64,
	op signal.OpType,
	arrival int64,
	core, instID int,
	pc uint64,
) *signal.Request {
	loc := qs.mapper.Map(addr)
	req := signal.NewRequest(addr, loc, op, arrival, core, instID, pc)
	vq := qs.vaults[loc.Channel][loc.Vault]

	var q *Queue
	switch {
	case qs.IsNear(loc.Channel) && req.IsRead():
		q = &qs.staging[core][loc.Channel].Read
	case qs.IsNear(loc.Channel):
		q = &qs.staging[core][loc.Channel].Write
	case req.IsRead():
		q = &vq.Read
	default:
		q = &vq.Write
	}

	if req.IsRead() {
		vq.Stats.ReadsSeen++
	} else {
		vq.Stats.WritesSeen++
	}

	q.Push(req)

	return req
}

// InsertRead queues a new read.
func (qs *QueueSet) InsertRead(
	addr uint64,
	arrival int64,
	core, instID int,
	pc uint64,
) *signal.Request {
	return qs.insert(addr, signal.OpRead, arrival, core, instID, pc)
}

// InsertWrite queues a new write.
func (qs *QueueSet) InsertWrite(
	addr uint64,
	arrival int64,
	core, instID int,
) *signal.Request {
	return qs.insert(addr, signal.OpWrite, arrival, core, instID, 0)
}

func (qs *QueueSet) pendingQueues(
	loc addressmapping.Location,
	core int,
) (reads, writes *Queue) {
	if qs.IsNear(loc.Channel) {
		s := qs.staging[core][loc.Channel]
		return &s.Read, &s.Write
	}

	vq := qs.vaults[loc.Channel][loc.Vault]

	return &vq.Read, &vq.Write
}

// ReadMatchesPending checks whether a new read can be answered by a pending
// request to the same address. It returns the lookup latency of the matching
// queue, preferring writes, or 0 when the read has to go to DRAM.
func (qs *QueueSet) ReadMatchesPending(addr uint64, core int) int64 {
	loc := qs.mapper.Map(addr)
	reads, writes := qs.pendingQueues(loc, core)
	spec := qs.channels[loc.Channel]
	vq := qs.vaults[loc.Channel][loc.Vault]

	switch {
	case writes.FindAddress(addr) != nil:
		vq.Stats.ReadsMerged++
		return spec.WriteLookupLatency
	case reads.FindAddress(addr) != nil:
		vq.Stats.ReadsMerged++
		return spec.ReadLookupLatency
	}

	return 0
}

// WriteMatchesPending checks whether a new write can be merged into a pending
// write to the same address.
func (qs *QueueSet) WriteMatchesPending(addr uint64, core int) bool {
	loc := qs.mapper.Map(addr)
	_, writes := qs.pendingQueues(loc, core)

	if writes.FindAddress(addr) == nil {
		return false
	}

	qs.vaults[loc.Channel][loc.Vault].Stats.WritesMerged++

	return true
}

// WriteQueueIsFull tells whether a core has to stop issuing writes. It is
// true when a near staging write queue of the core or any far vault write
// queue is at capacity.
func (qs *QueueSet) WriteQueueIsFull(core int) bool {
	for ch, spec := range qs.channels {
		if qs.IsNear(ch) {
			if qs.staging[core][ch].Write.Len() >= spec.WriteQueueCapacity {
				return true
			}

			continue
		}

		for _, vq := range qs.vaults[ch] {
			if vq.Write.Len() >= spec.WriteQueueCapacity {
				return true
			}
		}
	}

	return false
}

// UpdateReadReturnQueue moves the near-memory reads whose data is ready into
// the read-return queue.
func (qs *QueueSet) UpdateReadReturnQueue(channel, vault int, now int64) {
	if !qs.IsNear(channel) {
		return
	}

	vq := qs.vaults[channel][vault]
	done := vq.Read.RemoveIf(func(r *signal.Request) bool {
		return r.Served == signal.Served && now >= r.CompletionCycle
	})

	for _, r := range done {
		mustBeRetirable(r, signal.CmdKindRead)
		vq.Return.Push(r)
	}
}

// CleanQueues retires the requests whose terminal command has been issued.
func (qs *QueueSet) CleanQueues(channel, vault int) {
	vq := qs.vaults[channel][vault]

	terminal := signal.Served
	reads := &vq.Read
	if qs.IsNear(channel) {
		terminal = signal.Returned
		reads = &vq.Return
	}

	for _, r := range reads.RemoveIf(func(r *signal.Request) bool {
		return r.Served == terminal
	}) {
		mustBeRetirable(r, signal.CmdKindRead)
		r.UserData = nil
	}

	for _, r := range vq.Write.RemoveIf(func(r *signal.Request) bool {
		return r.Served == terminal
	}) {
		mustBeRetirable(r, signal.CmdKindWrite)
		r.UserData = nil
	}
}

func mustBeRetirable(r *signal.Request, kind signal.CommandKind) {
	if r.NextCommand != kind || r.CompletionCycle == signal.Unset {
		log.Panicf("request %s retired before its %s was issued", r.ID, kind)
	}
}

// AllWritesCompleted tells whether no write is pending anywhere.
func (qs *QueueSet) AllWritesCompleted() bool {
	for _, perCore := range qs.staging {
		for _, s := range perCore {
			if s.Write.Len() > 0 {
				return false
			}
		}
	}

	for _, perChannel := range qs.vaults {
		for _, vq := range perChannel {
			if vq.Write.Len() > 0 {
				return false
			}
		}
	}

	return true
}

// Pending returns the number of requests that have not been retired.
func (qs *QueueSet) Pending() int {
	n := 0

	for _, perCore := range qs.staging {
		for _, s := range perCore {
			n += s.Read.Len() + s.Write.Len()
		}
	}

	for _, perChannel := range qs.vaults {
		for _, vq := range perChannel {
			n += vq.Read.Len() + vq.Write.Len() + vq.Return.Len()
		}
	}

	return n
}
