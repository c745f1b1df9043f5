// SPDX-License-Identifier: EPL-2.0

package arena

import (
	"errors"
	"fmt"
)

var ErrFull = errors.New("arena is full")

// Handle identifies a value in an Arena. The zero Handle never resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Index returns the slot index, usable as a dense key while h is valid.
func (h Handle) Index() int { return int(h.index) }

// Generation returns the slot generation h was issued for.
func (h Handle) Generation() uint32 { return h.gen }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d:%d)", h.index, h.gen)
}

type slot[T any] struct {
	gen   uint32
	used  bool
	value T
}

// Arena is a slot allocator. It is not safe for concurrent use.
//
// Pointers returned by Get stay valid until the slot is removed when the
// arena is bounded; an unbounded arena may move values when it grows.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	limit int
	live  int
}

// New returns an unbounded arena with room for capacity values before it
// has to grow.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, max(capacity, 0)),
	}
}

// NewBounded returns an arena holding at most limit values. All slots are
// allocated up front, so Insert never allocates.
func NewBounded[T any](limit int) *Arena[T] {
	limit = max(limit, 1)
	a := &Arena[T]{
		slots: make([]slot[T], limit),
		free:  make([]uint32, 0, limit),
		limit: limit,
	}
	// pop order hands out low indexes first
	for i := limit - 1; i >= 0; i-- {
		a.free = append(a.free, uint32(i))
	}
	return a
}

// Insert stores v and returns its handle. A bounded arena returns ErrFull
// when every slot is taken.
func (a *Arena[T]) Insert(v T) (Handle, error) {
	var idx uint32

	switch {
	case len(a.free) > 0:
		idx = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	case a.limit > 0:
		return Handle{}, ErrFull
	default:
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		// generation 0 is reserved for the zero handle
		s.gen = 1
	}
	s.used = true
	s.value = v
	a.live++

	return Handle{index: idx, gen: s.gen}, nil
}

// Get returns a pointer to the value behind h.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return &s.value, true
}

// Valid reports whether h still resolves.
func (a *Arena[T]) Valid(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot behind h and returns the value it held.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T

	v, ok := a.Get(h)
	if !ok {
		return zero, false
	}
	out := *v

	s := &a.slots[h.index]
	s.used = false
	s.value = zero
	a.free = append(a.free, h.index)
	a.live--

	return out, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// Cap returns the limit of a bounded arena, or 0 when unbounded.
func (a *Arena[T]) Cap() int { return a.limit }

// Each calls fn for every live value in slot order. fn must not insert into
// or remove from the arena.
func (a *Arena[T]) Each(fn func(Handle, *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			fn(Handle{index: uint32(i), gen: s.gen}, &s.value)
		}
	}
}

// Clear removes every value. Outstanding handles stop resolving.
func (a *Arena[T]) Clear() {
	var zero T
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 0; i-- {
		s := &a.slots[i]
		if s.used {
			s.used = false
			s.value = zero
			s.gen++
			if s.gen == 0 {
				s.gen = 1
			}
		}
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
}
