// SPDX-License-Identifier: EPL-2.0

package mixer

type commandKind uint8

const (
	cmdStart commandKind = iota
	cmdStop
	// cmdGraph marks a DSP graph or group tree edit; the tick resyncs the
	// graph after draining.
	cmdGraph
)

type command struct {
	kind commandKind
	v    *voice
}

// commandQueue carries structural changes from control calls to the tick.
// Both sides hold the system lock; the tick swaps the pending slice out in
// one step so draining never races with new pushes.
type commandQueue struct {
	pending []command
	spare   []command
	limit   int

	// refused counts rejected reservations since the last drain.
	refused int
}

func newCommandQueue(limit int) commandQueue {
	return commandQueue{
		pending: make([]command, 0, limit),
		spare:   make([]command, 0, limit),
		limit:   limit,
	}
}

// reserve reports ErrQueueFull when n more commands would not fit.
func (q *commandQueue) reserve(n int) error {
	if len(q.pending)+n > q.limit {
		q.refused++
		return ErrQueueFull
	}
	return nil
}

func (q *commandQueue) push(c command) error {
	if err := q.reserve(1); err != nil {
		return err
	}
	q.pending = append(q.pending, c)
	return nil
}

// drain hands back every pending command. The slice is valid until the
// next drain.
func (q *commandQueue) drain() []command {
	q.refused = 0
	out := q.pending
	q.pending, q.spare = q.spare[:0], out
	return out
}

func (q *commandQueue) len() int { return len(q.pending) }
