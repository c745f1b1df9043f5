// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/ik5/audmix/utils"

// Fader parameters.
const (
	// FaderGain is in decibels, [-80, 10]; -80 is silence.
	FaderGain = 0
)

const (
	FaderMinGain = utils.MinDecibels
	FaderMaxGain = 10.0
)

type fader struct {
	gain float32
}

// NewFader returns a unit that scales its input by a gain in dB.
func NewFader() *Unit {
	return newUnit(KindFader, "fader", []ParamDesc{
		floatParam("gain", "dB", FaderMinGain, FaderMaxGain, 0),
	}, &fader{gain: 1})
}

func (f *fader) prepare(*Unit) {}
func (f *fader) reset()        {}

func (f *fader) update(u *Unit) {
	f.gain = float32(utils.DbToLinear(u.Value(FaderGain)))
}

func (f *fader) process(_ *Unit, buf []float32, _ int) {
	if f.gain == 1 {
		return
	}
	for i := range buf {
		buf[i] *= f.gain
	}
}
