package timing

import (
	"sync"

	"github.com/google/btree"
)

// EventQueue are a queue of event ordered by the time of events
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

type queuedEvent struct {
	evt Event
	seq uint64
}

// Less orders by time and keeps insertion order among same-time events.
func (e queuedEvent) Less(than btree.Item) bool {
	other := than.(queuedEvent)
	if e.evt.Time() != other.evt.Time() {
		return e.evt.Time() < other.evt.Time()
	}

	return e.seq < other.seq
}

// EventQueueImpl provides a thread safe event queue backed by a B-tree.
type EventQueueImpl struct {
	sync.Mutex
	tree    *btree.BTree
	nextSeq uint64
}

// NewEventQueue creates and returns a newly created EventQueue
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.tree = btree.New(2)

	return q
}

// Push adds an event to the event queue
func (q *EventQueueImpl) Push(evt Event) {
	q.Lock()
	q.tree.ReplaceOrInsert(queuedEvent{evt: evt, seq: q.nextSeq})
	q.nextSeq++
	q.Unlock()
}

// Pop returns the next earliest event
func (q *EventQueueImpl) Pop() Event {
	q.Lock()
	item := q.tree.DeleteMin()
	q.Unlock()

	if item == nil {
		return nil
	}

	return item.(queuedEvent).evt
}

// Len returns the number of event in the queue
func (q *EventQueueImpl) Len() int {
	q.Lock()
	l := q.tree.Len()
	q.Unlock()

	return l
}

// Peek returns the event in front of the queue without removing it from the
// queue
func (q *EventQueueImpl) Peek() Event {
	q.Lock()
	item := q.tree.Min()
	q.Unlock()

	if item == nil {
		return nil
	}

	return item.(queuedEvent).evt
}
