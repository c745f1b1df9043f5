// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"math/rand/v2"
)

// Oscillator parameters.
const (
	OscillatorType = 0 // Waveform, [0, 5]
	OscillatorRate = 1 // Hz, [1, 22000]
)

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawUp
	WaveSawDown
	WaveTriangle
	WaveNoise
)

type oscillator struct {
	wave  Waveform
	step  float64
	phase float64
	rng   *rand.Rand
}

// NewOscillator returns a tone generator. It replaces its input with the
// generated signal on every channel.
func NewOscillator() *Unit {
	return newUnit(KindOscillator, "oscillator", []ParamDesc{
		intParam("type", int(WaveSine), int(WaveNoise), int(WaveSine)),
		floatParam("rate", "Hz", 1, 22000, 220),
	}, &oscillator{rng: rand.New(rand.NewPCG(0x5eed, 0xa0d1))})
}

func (o *oscillator) prepare(*Unit) {}

func (o *oscillator) update(u *Unit) {
	o.wave = Waveform(u.Value(OscillatorType))
	o.step = u.Value(OscillatorRate) / float64(u.sampleRate)
}

func (o *oscillator) reset() { o.phase = 0 }

func (o *oscillator) sample() float32 {
	p := o.phase
	switch o.wave {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawUp:
		return float32(2*p - 1)
	case WaveSawDown:
		return float32(1 - 2*p)
	case WaveTriangle:
		if p < 0.5 {
			return float32(4*p - 1)
		}
		return float32(3 - 4*p)
	case WaveNoise:
		return o.rng.Float32()*2 - 1
	default:
		return float32(math.Sin(2 * math.Pi * p))
	}
}

func (o *oscillator) process(u *Unit, buf []float32, frames int) {
	ch := u.channels
	for i := range frames {
		v := o.sample()
		for c := range ch {
			buf[i*ch+c] = v
		}
		o.phase += o.step
		o.phase -= math.Floor(o.phase)
	}
}
