// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/dsp"
)

// dspOwner records which chain, if any, holds a unit.
type dspOwner struct {
	channel arena.Handle
	group   arena.Handle
	builtin bool
}

func (o dspOwner) attached() bool { return !o.channel.IsZero() || !o.group.IsZero() }

// DSP is a handle to a unit in the system's graph.
type DSP struct {
	sys *System
	h   arena.Handle
}

// Connection is an input edge of a DSP.
type Connection struct {
	Input DSP
	Mix   float32
}

// CreateDSP adds an unconnected unit of a built-in kind.
func (s *System) CreateDSP(kind dsp.Kind) (DSP, error) {
	u, err := dsp.New(kind)
	if err != nil {
		return DSP{}, structural(err)
	}
	return s.addDSP(u)
}

// CreateCustomDSP adds an unconnected unit running desc.
func (s *System) CreateCustomDSP(desc dsp.Description) (DSP, error) {
	return s.addDSP(dsp.NewCustom(desc))
}

func (s *System) addDSP(u *dsp.Unit) (DSP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return DSP{}, err
	}
	h, err := s.graph.Add(u)
	if err != nil {
		return DSP{}, structural(err)
	}
	s.owners[h] = dspOwner{}
	return DSP{sys: s, h: h}, nil
}

// newUnit adds a built-in unit owned by the system. Called with mu held.
func (s *System) newUnit(u *dsp.Unit) (arena.Handle, error) {
	h, err := s.graph.Add(u)
	if err != nil {
		return arena.Handle{}, structural(err)
	}
	s.owners[h] = dspOwner{builtin: true}
	return h, nil
}

// with runs fn on the unit under the system lock.
func (d DSP) with(fn func(s *System, u *dsp.Unit) error) error {
	s := d.sys
	if s == nil {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	u, ok := s.graph.Unit(d.h)
	if !ok {
		return ErrInvalidHandle
	}
	return fn(s, u)
}

func (d DSP) IsValid() bool {
	return d.with(func(*System, *dsp.Unit) error { return nil }) == nil
}

func (d DSP) Kind() (k dsp.Kind, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		k = u.Kind()
		return nil
	})
	return k, err
}

func (d DSP) Name() (name string, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		name = u.Name()
		return nil
	})
	return name, err
}

func (d DSP) NumParams() (n int, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		n = u.NumParams()
		return nil
	})
	return n, err
}

func (d DSP) ParamInfo(index int) (desc dsp.ParamDesc, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		desc, err = u.ParamInfo(index)
		return err
	})
	return desc, err
}

// ParamIndex finds a parameter by name.
func (d DSP) ParamIndex(name string) (int, bool) {
	index, found := -1, false
	_ = d.with(func(_ *System, u *dsp.Unit) error {
		index, found = u.ParamIndex(name)
		return nil
	})
	return index, found
}

// SetFloat sets a float parameter; out-of-range values are clamped. The
// new value is heard from the next tick.
func (d DSP) SetFloat(index int, v float64) error {
	return d.with(func(_ *System, u *dsp.Unit) error { return u.SetFloat(index, v) })
}

func (d DSP) Float(index int) (v float64, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		v, err = u.Float(index)
		return err
	})
	return v, err
}

func (d DSP) SetInt(index int, v int) error {
	return d.with(func(_ *System, u *dsp.Unit) error { return u.SetInt(index, v) })
}

func (d DSP) Int(index int) (v int, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		v, err = u.Int(index)
		return err
	})
	return v, err
}

func (d DSP) SetBool(index int, v bool) error {
	return d.with(func(_ *System, u *dsp.Unit) error { return u.SetBool(index, v) })
}

func (d DSP) Bool(index int) (v bool, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		v, err = u.Bool(index)
		return err
	})
	return v, err
}

func (d DSP) SetData(index int, b []byte) error {
	return d.with(func(_ *System, u *dsp.Unit) error { return u.SetData(index, b) })
}

func (d DSP) Data(index int) (b []byte, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		b, err = u.Data(index)
		return err
	})
	return b, err
}

// SetBypass makes the unit pass its summed input through unchanged.
func (d DSP) SetBypass(b bool) error {
	return d.with(func(_ *System, u *dsp.Unit) error {
		u.SetBypass(b)
		return nil
	})
}

func (d DSP) Bypass() (b bool, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		b = u.Bypass()
		return nil
	})
	return b, err
}

// SetActive false silences the unit.
func (d DSP) SetActive(a bool) error {
	return d.with(func(_ *System, u *dsp.Unit) error {
		u.SetActive(a)
		return nil
	})
}

func (d DSP) Active() (a bool, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		a = u.Active()
		return nil
	})
	return a, err
}

// AddInput makes in feed d at the given mix level. A connection that would
// close a loop fails with ErrStructural and changes nothing.
func (d DSP) AddInput(in DSP, mix float32) error {
	return d.with(func(s *System, _ *dsp.Unit) error {
		if in.sys != s {
			return ErrInvalidHandle
		}
		if err := s.queue.reserve(1); err != nil {
			return err
		}
		if err := s.graph.Connect(d.h, in.h, mix); err != nil {
			return structural(err)
		}
		s.graphChanged()
		return nil
	})
}

// DisconnectInput removes the edge from in to d.
func (d DSP) DisconnectInput(in DSP) error {
	return d.with(func(s *System, _ *dsp.Unit) error {
		if in.sys != s {
			return ErrInvalidHandle
		}
		if isChainLink(s, d.h, in.h) {
			return ErrBuiltinDSP
		}
		if err := s.queue.reserve(1); err != nil {
			return err
		}
		if err := s.graph.Disconnect(d.h, in.h); err != nil {
			return structural(err)
		}
		s.graphChanged()
		return nil
	})
}

// isChainLink reports whether the edge in -> out belongs to a chain or a
// bus, which only chain operations may change.
func isChainLink(s *System, out, in arena.Handle) bool {
	o := s.owners[out]
	i := s.owners[in]
	return (o.attached() || o.builtin) && (i.attached() || i.builtin)
}

// SetInputMix changes the level of an existing input edge.
func (d DSP) SetInputMix(in DSP, mix float32) error {
	return d.with(func(s *System, _ *dsp.Unit) error {
		if err := s.graph.SetMix(d.h, in.h, mix); err != nil {
			return structural(err)
		}
		return nil
	})
}

// Inputs lists d's input edges in connection order.
func (d DSP) Inputs() (conns []Connection, err error) {
	err = d.with(func(s *System, _ *dsp.Unit) error {
		for _, c := range s.graph.Inputs(d.h) {
			conns = append(conns, Connection{Input: DSP{sys: s, h: c.Input}, Mix: c.Mix})
		}
		return nil
	})
	return conns, err
}

// Spectrum returns the last magnitudes of an FFT unit.
func (d DSP) Spectrum() (bins []float32, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		bins = u.Spectrum()
		return nil
	})
	return bins, err
}

func (d DSP) DominantFrequency() (hz float64, err error) {
	err = d.with(func(_ *System, u *dsp.Unit) error {
		hz = u.DominantFrequency()
		return nil
	})
	return hz, err
}

// Release removes the unit from the graph. A unit still in a chain is
// detached first; built-in faders cannot be released.
func (d DSP) Release() error {
	return d.with(func(s *System, _ *dsp.Unit) error {
		o := s.owners[d.h]
		if o.builtin {
			return ErrBuiltinDSP
		}
		if err := s.queue.reserve(2); err != nil {
			return err
		}

		switch {
		case !o.channel.IsZero():
			if rec, ok := s.channels.Get(o.channel); ok {
				rec.chain, _ = s.removeDSP(rec.chain, d)
			}
		case !o.group.IsZero():
			if g, ok := s.groups.Get(o.group); ok {
				g.chain, _ = s.removeDSP(g.chain, d)
			}
		}

		if err := s.graph.Remove(d.h); err != nil {
			return structural(err)
		}
		delete(s.owners, d.h)
		s.graphChanged()
		return nil
	})
}
