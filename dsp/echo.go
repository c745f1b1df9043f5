// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/ik5/audmix/utils"

// Echo parameters.
const (
	EchoDelay    = 0 // ms, [10, 5000]
	EchoFeedback = 1 // percent, [0, 100]
	EchoDryLevel = 2 // dB, [-80, 10]
	EchoWetLevel = 3 // dB, [-80, 10]
)

const echoMaxDelayMs = 5000

type echo struct {
	line  []float32
	size  int // active delay in samples
	pos   int
	delay float64

	feedback float32
	dry      float32
	wet      float32
}

// NewEcho returns a feedback delay line.
func NewEcho() *Unit {
	return newUnit(KindEcho, "echo", []ParamDesc{
		floatParam("delay", "ms", 10, echoMaxDelayMs, 500),
		floatParam("feedback", "%", 0, 100, 50),
		floatParam("drylevel", "dB", FaderMinGain, FaderMaxGain, 0),
		floatParam("wetlevel", "dB", FaderMinGain, FaderMaxGain, 0),
	}, &echo{})
}

func (e *echo) prepare(u *Unit) {
	frames := echoMaxDelayMs*u.sampleRate/1000 + 1
	e.line = make([]float32, frames*u.channels)
	e.delay = -1
}

func (e *echo) update(u *Unit) {
	e.feedback = float32(u.Value(EchoFeedback) / 100)
	e.dry = float32(utils.DbToLinear(u.Value(EchoDryLevel)))
	e.wet = float32(utils.DbToLinear(u.Value(EchoWetLevel)))

	delay := u.Value(EchoDelay)
	if delay == e.delay {
		return
	}
	e.delay = delay
	frames := max(int(delay*float64(u.sampleRate)/1000), 1)
	e.size = min(frames*u.channels, len(e.line))
	e.reset()
}

func (e *echo) reset() {
	clear(e.line)
	e.pos = 0
}

func (e *echo) process(_ *Unit, buf []float32, _ int) {
	for i, x := range buf {
		delayed := e.line[e.pos]
		e.line[e.pos] = x + delayed*e.feedback
		buf[i] = x*e.dry + delayed*e.wet

		e.pos++
		if e.pos == e.size {
			e.pos = 0
		}
	}
}
