// SPDX-License-Identifier: EPL-2.0

package mixer

import "sync"

type EventKind int

const (
	// EventChannelEnd: a channel finished playing naturally.
	EventChannelEnd EventKind = iota + 1
	// EventChannelVirtual: a channel lost its mixing slot.
	EventChannelVirtual
	// EventChannelReal: a channel got a mixing slot back.
	EventChannelReal
	// EventChannelError: a channel was stopped by a decode failure; Err
	// says why.
	EventChannelError
	// EventStateChanged: the system moved to State.
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventChannelEnd:
		return "channel-end"
	case EventChannelVirtual:
		return "channel-virtual"
	case EventChannelReal:
		return "channel-real"
	case EventChannelError:
		return "channel-error"
	case EventStateChanged:
		return "state-changed"
	default:
		return "unknown"
	}
}

// Event is a notification produced by the system. Events are delivered in
// the order they happened, at the end of the tick that caused them.
type Event struct {
	Kind    EventKind
	Channel Channel
	Err     error
	State   State
}

// eventQueue is a bounded ring; when full the oldest event is dropped.
// Subscribers get a copy of every event on a non-blocking send.
type eventQueue struct {
	mtx sync.Mutex

	ring    []Event
	head    int
	size    int
	dropped uint64

	subs   map[int]chan Event
	nextID int
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{
		ring: make([]Event, max(capacity, 1)),
		subs: make(map[int]chan Event),
	}
}

func (q *eventQueue) push(e Event) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.size == len(q.ring) {
		q.head = (q.head + 1) % len(q.ring)
		q.size--
		q.dropped++
	}
	q.ring[(q.head+q.size)%len(q.ring)] = e
	q.size++

	for _, ch := range q.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (q *eventQueue) poll() []Event {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.size == 0 {
		return nil
	}
	out := make([]Event, q.size)
	for i := range out {
		out[i] = q.ring[(q.head+i)%len(q.ring)]
		q.ring[(q.head+i)%len(q.ring)] = Event{}
	}
	q.head, q.size = 0, 0
	return out
}

func (q *eventQueue) subscribe(buffer int) (<-chan Event, func()) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	id := q.nextID
	q.nextID++
	ch := make(chan Event, max(buffer, 1))
	q.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.mtx.Lock()
			defer q.mtx.Unlock()
			if c, ok := q.subs[id]; ok {
				delete(q.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (q *eventQueue) closeAll() {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
}

func (q *eventQueue) droppedCount() uint64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.dropped
}
