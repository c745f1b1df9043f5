// SPDX-License-Identifier: EPL-2.0

package dsp

// ProcessFunc transforms buf in place. buf holds frames interleaved frames
// of u's channel count. Parameter values are read with u.Value.
type ProcessFunc func(u *Unit, buf []float32, frames int)

// Description declares a custom unit.
type Description struct {
	Name    string
	Params  []ParamDesc
	Process ProcessFunc
	// Reset, when set, is called by Unit.Reset.
	Reset func(u *Unit)
}

type custom struct {
	unit *Unit
	desc Description
}

// NewCustom returns a unit driven by desc.Process. A nil Process makes the
// unit a plain mix point.
func NewCustom(desc Description) *Unit {
	name := desc.Name
	if name == "" {
		name = "custom"
	}
	descs := append([]ParamDesc(nil), desc.Params...)

	c := &custom{desc: desc}
	u := newUnit(KindCustom, name, descs, c)
	c.unit = u
	return u
}

func (c *custom) prepare(*Unit) {}
func (c *custom) update(*Unit)  {}

func (c *custom) reset() {
	if c.desc.Reset != nil {
		c.desc.Reset(c.unit)
	}
}

func (c *custom) process(u *Unit, buf []float32, frames int) {
	if c.desc.Process != nil {
		c.desc.Process(u, buf, frames)
	}
}
