// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/utils"
)

type groupState struct {
	name     string
	parent   arena.Handle
	children []arena.Handle
	members  []arena.Handle
	chain    []arena.Handle

	volume float64
	pitch  float64
	mute   bool
	paused bool

	// resolved down the tree by the tick
	effVolume float64
	effPitch  float64
	effPaused bool
}

func (g *groupState) head() arena.Handle { return g.chain[0] }
func (g *groupState) bus() arena.Handle  { return g.chain[len(g.chain)-1] }

// ChannelGroup is a handle to a node of the group tree. Its chain mixes
// the group's channels and child groups and feeds the parent group.
type ChannelGroup struct {
	sys *System
	h   arena.Handle
}

// newGroup builds a group with a fader head and a bus. Called with mu held.
func (s *System) newGroup(name string, parent arena.Handle) (arena.Handle, error) {
	if err := s.queue.reserve(1); err != nil {
		return arena.Handle{}, err
	}

	fader, err := s.newUnit(dsp.NewFader())
	if err != nil {
		return arena.Handle{}, err
	}
	bus, err := s.newUnit(dsp.NewMixer())
	if err != nil {
		_ = s.graph.Remove(fader)
		delete(s.owners, fader)
		return arena.Handle{}, err
	}
	_ = s.graph.Connect(fader, bus, 1)

	h, _ := s.groups.Insert(groupState{
		name:      name,
		parent:    parent,
		chain:     []arena.Handle{fader, bus},
		volume:    1,
		pitch:     1,
		effVolume: 1,
		effPitch:  1,
	})
	s.owners[fader] = dspOwner{group: h, builtin: true}
	s.owners[bus] = dspOwner{group: h, builtin: true}

	if p, ok := s.groups.Get(parent); ok {
		p.children = append(p.children, h)
		_ = s.graph.Connect(p.bus(), fader, 1)
	}
	s.graphChanged()

	return h, nil
}

// CreateChannelGroup adds a group under the master group.
func (s *System) CreateChannelGroup(name string) (ChannelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return ChannelGroup{}, err
	}
	h, err := s.newGroup(name, s.master)
	if err != nil {
		return ChannelGroup{}, err
	}
	return ChannelGroup{sys: s, h: h}, nil
}

// MasterChannelGroup returns the root of the group tree. Its head output
// is the system output.
func (s *System) MasterChannelGroup() (ChannelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return ChannelGroup{}, err
	}
	return ChannelGroup{sys: s, h: s.master}, nil
}

// group resolves a caller supplied group; the zero value means master.
// Called with mu held.
func (s *System) group(g ChannelGroup) (arena.Handle, *groupState, error) {
	h := g.h
	if g.sys == nil && h.IsZero() {
		h = s.master
	} else if g.sys != s {
		return arena.Handle{}, nil, ErrInvalidHandle
	}
	st, ok := s.groups.Get(h)
	if !ok {
		return arena.Handle{}, nil, ErrInvalidHandle
	}
	return h, st, nil
}

func (g ChannelGroup) with(fn func(s *System, st *groupState) error) error {
	s := g.sys
	if s == nil {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	st, ok := s.groups.Get(g.h)
	if !ok {
		return ErrInvalidHandle
	}
	return fn(s, st)
}

func (g ChannelGroup) IsValid() bool {
	return g.with(func(*System, *groupState) error { return nil }) == nil
}

func (g ChannelGroup) IsMaster() bool {
	master := false
	_ = g.with(func(s *System, _ *groupState) error {
		master = g.h == s.master
		return nil
	})
	return master
}

func (g ChannelGroup) Name() (name string, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		name = st.name
		return nil
	})
	return name, err
}

// SetVolume sets the linear group gain, clamped to [0, 1].
func (g ChannelGroup) SetVolume(v float64) error {
	return g.with(func(_ *System, st *groupState) error {
		st.volume = utils.Clamp(v, 0, 1)
		return nil
	})
}

// SetVolumeDB sets the group gain in decibels.
func (g ChannelGroup) SetVolumeDB(db float64) error {
	return g.SetVolume(utils.DbToLinear(db))
}

func (g ChannelGroup) Volume() (v float64, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		v = st.volume
		return nil
	})
	return v, err
}

func (g ChannelGroup) SetMute(m bool) error {
	return g.with(func(_ *System, st *groupState) error {
		st.mute = m
		return nil
	})
}

func (g ChannelGroup) Mute() (m bool, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		m = st.mute
		return nil
	})
	return m, err
}

// SetPaused pauses every channel in the group and its descendants.
func (g ChannelGroup) SetPaused(p bool) error {
	return g.with(func(_ *System, st *groupState) error {
		st.paused = p
		return nil
	})
}

func (g ChannelGroup) Paused() (p bool, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		p = st.paused
		return nil
	})
	return p, err
}

// SetPitch scales the playback rate of every channel below the group.
func (g ChannelGroup) SetPitch(p float64) error {
	return g.with(func(_ *System, st *groupState) error {
		st.pitch = utils.Clamp(p, minPitch, maxPitch)
		return nil
	})
}

func (g ChannelGroup) Pitch() (p float64, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		p = st.pitch
		return nil
	})
	return p, err
}

// Parent returns the parent group; the master group has none.
func (g ChannelGroup) Parent() (parent ChannelGroup, err error) {
	err = g.with(func(s *System, st *groupState) error {
		if st.parent.IsZero() {
			return ErrMasterGroup
		}
		parent = ChannelGroup{sys: s, h: st.parent}
		return nil
	})
	return parent, err
}

// SetParent moves the group under parent. A move that would make the
// group its own ancestor fails with ErrGroupCycle.
func (g ChannelGroup) SetParent(parent ChannelGroup) error {
	return g.with(func(s *System, st *groupState) error {
		if g.h == s.master {
			return ErrMasterGroup
		}
		ph, p, err := s.group(parent)
		if err != nil {
			return err
		}
		for a := ph; !a.IsZero(); {
			if a == g.h {
				return ErrGroupCycle
			}
			anc, ok := s.groups.Get(a)
			if !ok {
				break
			}
			a = anc.parent
		}
		if ph == st.parent {
			return nil
		}
		if err := s.queue.reserve(1); err != nil {
			return err
		}

		old, ok := s.groups.Get(st.parent)
		if !ok {
			return ErrInvalidHandle
		}
		_ = s.graph.Disconnect(old.bus(), st.head())
		if err := s.graph.Connect(p.bus(), st.head(), 1); err != nil {
			_ = s.graph.Connect(old.bus(), st.head(), 1)
			return structural(err)
		}

		old.children = slices.DeleteFunc(old.children, func(c arena.Handle) bool { return c == g.h })
		p.children = append(p.children, g.h)
		st.parent = ph
		s.graphChanged()
		return nil
	})
}

// AddGroup makes child a member of g.
func (g ChannelGroup) AddGroup(child ChannelGroup) error {
	return child.SetParent(g)
}

func (g ChannelGroup) NumGroups() (n int, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		n = len(st.children)
		return nil
	})
	return n, err
}

func (g ChannelGroup) Group(index int) (child ChannelGroup, err error) {
	err = g.with(func(s *System, st *groupState) error {
		if index < 0 || index >= len(st.children) {
			return ErrInvalidHandle
		}
		child = ChannelGroup{sys: s, h: st.children[index]}
		return nil
	})
	return child, err
}

// NumChannels counts the channels directly in the group.
func (g ChannelGroup) NumChannels() (n int, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		n = len(st.members)
		return nil
	})
	return n, err
}

func (g ChannelGroup) Channel(index int) (ch Channel, err error) {
	err = g.with(func(s *System, st *groupState) error {
		if index < 0 || index >= len(st.members) {
			return ErrInvalidHandle
		}
		ch = Channel{sys: s, h: st.members[index]}
		return nil
	})
	return ch, err
}

// Stop stops every channel in the group and its descendants.
func (g ChannelGroup) Stop() error {
	return g.with(func(s *System, _ *groupState) error {
		var hs []arena.Handle
		s.collectChannels(g.h, &hs)
		if err := s.queue.reserve(len(hs)); err != nil {
			return err
		}
		for _, h := range hs {
			if rec, ok := s.channels.Get(h); ok {
				s.stopChannel(h, rec)
			}
		}
		return nil
	})
}

func (s *System) collectChannels(h arena.Handle, out *[]arena.Handle) {
	st, ok := s.groups.Get(h)
	if !ok {
		return
	}
	*out = append(*out, st.members...)
	for _, c := range st.children {
		s.collectChannels(c, out)
	}
}

// Release removes the group. Its channels and child groups move to the
// master group; its user DSPs are detached but stay alive.
func (g ChannelGroup) Release() error {
	return g.with(func(s *System, st *groupState) error {
		if g.h == s.master {
			return ErrMasterGroup
		}
		if err := s.queue.reserve(1); err != nil {
			return err
		}
		master, _ := s.groups.Get(s.master)

		for _, h := range slices.Clone(st.members) {
			if rec, ok := s.channels.Get(h); ok {
				if err := s.moveChannel(h, rec, s.master); err != nil {
					return err
				}
			}
		}
		for _, c := range st.children {
			child, ok := s.groups.Get(c)
			if !ok {
				continue
			}
			_ = s.graph.Disconnect(st.bus(), child.head())
			_ = s.graph.Connect(master.bus(), child.head(), 1)
			child.parent = s.master
			master.children = append(master.children, c)
		}

		if parent, ok := s.groups.Get(st.parent); ok {
			parent.children = slices.DeleteFunc(parent.children, func(c arena.Handle) bool { return c == g.h })
		}
		s.stripChain(st.chain, 1)
		s.groups.Remove(g.h)
		s.graphChanged()
		return nil
	})
}

// AddDSP inserts d into the group's chain at index (clamped so the head
// fader stays first).
func (g ChannelGroup) AddDSP(index int, d DSP) error {
	return g.with(func(s *System, st *groupState) error {
		if d.sys != s {
			return ErrInvalidHandle
		}
		chain, err := s.insertDSP(st.chain, 1, index, d, dspOwner{group: g.h})
		if err != nil {
			return err
		}
		st.chain = chain
		return nil
	})
}

func (g ChannelGroup) RemoveDSP(d DSP) error {
	return g.with(func(s *System, st *groupState) error {
		if d.sys != s {
			return ErrInvalidHandle
		}
		chain, err := s.removeDSP(st.chain, d)
		if err != nil {
			return err
		}
		st.chain = chain
		return nil
	})
}

// DSP returns the unit at index; index 0 is the group fader.
func (g ChannelGroup) DSP(index int) (d DSP, err error) {
	err = g.with(func(s *System, st *groupState) error {
		if index < 0 || index >= len(st.chain)-1 {
			return ErrDSPIndex
		}
		d = DSP{sys: s, h: st.chain[index]}
		return nil
	})
	return d, err
}

func (g ChannelGroup) NumDSPs() (n int, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		n = len(st.chain) - 1
		return nil
	})
	return n, err
}

func (g ChannelGroup) DSPIndex(d DSP) (index int, err error) {
	err = g.with(func(_ *System, st *groupState) error {
		index = slices.Index(st.chain[:len(st.chain)-1], d.h)
		if index < 0 {
			return ErrDSPIndex
		}
		return nil
	})
	return index, err
}

// resolveGroup pushes volume, pitch and pause down the tree and sets each
// group head's gain. Called by the tick with mu held.
func (s *System) resolveGroup(h arena.Handle, volume, pitch float64, paused bool) {
	st, ok := s.groups.Get(h)
	if !ok {
		return
	}

	gain := st.volume
	if st.mute {
		gain = 0
	}
	st.effVolume = volume * gain
	st.effPitch = pitch * st.pitch
	st.effPaused = paused || st.paused

	if u, ok := s.graph.Unit(st.head()); ok {
		u.SetOutputGain(float32(gain))
	}
	for _, c := range st.children {
		s.resolveGroup(c, st.effVolume, st.effPitch, st.effPaused)
	}
}
