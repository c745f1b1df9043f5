// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// Filter parameters, shared by the low-pass and high-pass units.
const (
	// FilterCutoff is in Hz, [10, 22000].
	FilterCutoff = 0
)

// onePole is a first order IIR filter per channel. The high-pass output is
// the input minus the low-pass output.
type onePole struct {
	high  bool
	a     float32
	state []float32
}

// NewLowPass returns a one-pole low-pass filter, cutoff 5 kHz by default.
func NewLowPass() *Unit {
	return newUnit(KindLowPass, "lowpass", []ParamDesc{
		floatParam("cutoff", "Hz", 10, 22000, 5000),
	}, &onePole{})
}

// NewHighPass returns a one-pole high-pass filter, cutoff 1 kHz by default.
func NewHighPass() *Unit {
	return newUnit(KindHighPass, "highpass", []ParamDesc{
		floatParam("cutoff", "Hz", 10, 22000, 1000),
	}, &onePole{high: true})
}

func (f *onePole) prepare(u *Unit) {
	f.state = make([]float32, u.channels)
}

func (f *onePole) update(u *Unit) {
	cutoff := min(u.Value(FilterCutoff), float64(u.sampleRate)/2)
	f.a = float32(math.Exp(-2 * math.Pi * cutoff / float64(u.sampleRate)))
}

func (f *onePole) reset() { clear(f.state) }

func (f *onePole) process(u *Unit, buf []float32, frames int) {
	ch := u.channels
	for i := range frames {
		for c := range ch {
			x := buf[i*ch+c]
			y := (1-f.a)*x + f.a*f.state[c]
			f.state[c] = y
			if f.high {
				y = x - y
			}
			buf[i*ch+c] = y
		}
	}
}
