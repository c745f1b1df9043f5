// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/dsp"
)

// A chain is the ordered list of units a channel or group pushes audio
// through. Index 0 is the head fader; audio enters at the last unit and
// each unit feeds the one before it. Group chains end with a hidden bus
// that sums the group's channels and child groups.

// splice inserts h at position p (1 <= p <= len(units)). Both new edges are
// checked before anything changes, so a failure leaves the graph as it was.
func (s *System) splice(units []arena.Handle, p int, h arena.Handle) ([]arena.Handle, error) {
	g := s.graph
	prev := units[p-1]
	var next arena.Handle
	if p < len(units) {
		next = units[p]
	}

	if g.WouldCycle(prev, h) {
		return units, structural(dsp.ErrCycle)
	}
	for _, c := range g.Inputs(prev) {
		if c.Input == h {
			return units, structural(dsp.ErrAlreadyConnected)
		}
	}
	if !next.IsZero() {
		if g.WouldCycle(h, next) {
			return units, structural(dsp.ErrCycle)
		}
		for _, c := range g.Inputs(h) {
			if c.Input == next {
				return units, structural(dsp.ErrAlreadyConnected)
			}
		}
		if err := g.Disconnect(prev, next); err != nil {
			return units, structural(err)
		}
	}

	if err := g.Connect(prev, h, 1); err != nil {
		s.relink(prev, next)
		return units, structural(err)
	}
	if !next.IsZero() {
		if err := g.Connect(h, next, 1); err != nil {
			_ = g.Disconnect(prev, h)
			s.relink(prev, next)
			return units, structural(err)
		}
	}

	return slices.Insert(units, p, h), nil
}

func (s *System) relink(prev, next arena.Handle) {
	if !next.IsZero() {
		_ = s.graph.Connect(prev, next, 1)
	}
}

// unsplice removes the unit at position p (p >= 1) and joins its
// neighbours.
func (s *System) unsplice(units []arena.Handle, p int) []arena.Handle {
	g := s.graph
	prev, h := units[p-1], units[p]

	_ = g.Disconnect(prev, h)
	if p+1 < len(units) {
		next := units[p+1]
		_ = g.Disconnect(h, next)
		_ = g.Connect(prev, next, 1)
	}
	return slices.Delete(units, p, p+1)
}

// insertDSP places d at index in a chain whose last hidden units are not
// addressable. index is clamped to the user range.
func (s *System) insertDSP(units []arena.Handle, hidden, index int, d DSP, own dspOwner) ([]arena.Handle, error) {
	o, ok := s.owners[d.h]
	if !ok {
		return units, ErrInvalidHandle
	}
	if o.builtin {
		return units, ErrBuiltinDSP
	}
	if o.attached() {
		return units, ErrDSPInUse
	}
	if err := s.queue.reserve(1); err != nil {
		return units, err
	}

	visible := len(units) - hidden
	p := min(max(index, 1), visible)
	out, err := s.splice(units, p, d.h)
	if err != nil {
		return units, err
	}

	s.owners[d.h] = own
	s.graphChanged()
	return out, nil
}

// removeDSP detaches d from the chain. The unit stays alive for the caller.
func (s *System) removeDSP(units []arena.Handle, d DSP) ([]arena.Handle, error) {
	o, ok := s.owners[d.h]
	if !ok {
		return units, ErrInvalidHandle
	}
	if o.builtin {
		return units, ErrBuiltinDSP
	}
	p := slices.Index(units, d.h)
	if p < 1 {
		return units, structural(dsp.ErrNotConnected)
	}
	if err := s.queue.reserve(1); err != nil {
		return units, err
	}

	out := s.unsplice(units, p)
	s.owners[d.h] = dspOwner{}
	s.resume(d.h)
	s.graphChanged()
	return out, nil
}

// stripChain detaches every user unit of a chain, removes its built-in
// units from the graph and returns nothing left.
func (s *System) stripChain(units []arena.Handle, hidden int) {
	for len(units)-hidden > 1 {
		p := len(units) - hidden - 1
		h := units[p]
		units = s.unsplice(units, p)
		s.owners[h] = dspOwner{}
		s.resume(h)
	}
	for _, h := range units {
		_ = s.graph.Remove(h)
		delete(s.owners, h)
	}
}

// resume queues a unit that left its chain; the next tick clears the
// render flags the chain had set on it.
func (s *System) resume(h arena.Handle) {
	s.detached = append(s.detached, h)
}

// graphChanged records a structural edit for the tick; callers reserve the
// slot first.
func (s *System) graphChanged() {
	_ = s.queue.push(command{kind: cmdGraph})
}
