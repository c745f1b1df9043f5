// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/ik5/audmix/arena"

// Kind is the closed set of unit types.
type Kind uint8

const (
	// KindMixer sums its inputs and does nothing else.
	KindMixer Kind = iota
	KindFader
	KindFFT
	KindLowPass
	KindHighPass
	KindEcho
	KindOscillator
	KindCustom
)

var kindNames = [...]string{
	KindMixer:      "mixer",
	KindFader:      "fader",
	KindFFT:        "fft",
	KindLowPass:    "lowpass",
	KindHighPass:   "highpass",
	KindEcho:       "echo",
	KindOscillator: "oscillator",
	KindCustom:     "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Connection is an edge into a unit: Input's output is added to the unit's
// input sum scaled by Mix.
type Connection struct {
	Input arena.Handle
	Mix   float32
}

type renderInput struct {
	unit *Unit
	mix  float32
}

// processor is the per-kind transform. prepare runs once the format is
// known, update after every parameter sync, process on each block.
type processor interface {
	prepare(u *Unit)
	update(u *Unit)
	process(u *Unit, buf []float32, frames int)
	reset()
}

// publisher is implemented by processors with readouts copied out after a
// graph run.
type publisher interface {
	publish(u *Unit)
}

// Unit is one processing node. Parameter and flag setters are control-side
// and take effect at the next sync; the graph owner serializes them with
// Sync.
type Unit struct {
	kind   Kind
	name   string
	params []param
	proc   processor

	graph  *Graph
	handle arena.Handle
	inputs []Connection

	bypass bool
	active bool

	// render side
	rbypass    bool
	ractive    bool
	rinputs    []renderInput
	sampleRate int
	channels   int
	maxFrames  int
	out        []float32
	feed       []float32
	fed        bool
	live       bool
	suspended  bool
	outGain    float32
	mark       uint64

	// published readouts
	spectrum []float32
	dominant float64
}

func newUnit(kind Kind, name string, descs []ParamDesc, proc processor) *Unit {
	return &Unit{
		kind:    kind,
		name:    name,
		params:  newParams(descs),
		proc:    proc,
		active:  true,
		ractive: true,
		outGain: 1,
	}
}

// New creates a built-in unit of kind k.
func New(k Kind) (*Unit, error) {
	switch k {
	case KindMixer:
		return NewMixer(), nil
	case KindFader:
		return NewFader(), nil
	case KindFFT:
		return NewFFT(), nil
	case KindLowPass:
		return NewLowPass(), nil
	case KindHighPass:
		return NewHighPass(), nil
	case KindEcho:
		return NewEcho(), nil
	case KindOscillator:
		return NewOscillator(), nil
	default:
		return nil, ErrCustomKind
	}
}

// NewMixer returns a pure mix point.
func NewMixer() *Unit {
	return newUnit(KindMixer, "mixer", nil, nil)
}

func (u *Unit) Kind() Kind           { return u.kind }
func (u *Unit) Name() string         { return u.name }
func (u *Unit) Handle() arena.Handle { return u.handle }

// SetBypass makes the unit pass its summed input through untouched.
func (u *Unit) SetBypass(b bool) { u.bypass = b }
func (u *Unit) Bypass() bool     { return u.bypass }

// SetActive false silences the unit's output.
func (u *Unit) SetActive(a bool) { u.active = a }
func (u *Unit) Active() bool     { return u.active }

// Format returns the format resolved by Prepare.
func (u *Unit) Format() (sampleRate, channels int) { return u.sampleRate, u.channels }

// Prepare fixes the unit's format and allocates its buffers. Graph.Add
// calls it with the graph's format.
func (u *Unit) Prepare(sampleRate, channels, maxFrames int) {
	u.sampleRate = max(sampleRate, 1)
	u.channels = max(channels, 1)
	u.maxFrames = max(maxFrames, 1)

	n := u.channels * u.maxFrames
	u.out = make([]float32, n)
	u.feed = make([]float32, n)
	u.syncParams()
	if u.proc != nil {
		u.proc.prepare(u)
		u.proc.update(u)
	}
}

// Reset clears processing state such as delay lines and filter memory.
func (u *Unit) Reset() {
	if u.proc != nil {
		u.proc.reset()
	}
}

// Process sums inputs and applies the unit's transform. It syncs
// parameters first, so it must not be used on a unit whose graph is being
// run elsewhere. The returned slice is reused by the next call.
func (u *Unit) Process(inputs [][]float32, frames int) ([]float32, error) {
	if u.out == nil {
		return nil, ErrNotPrepared
	}
	u.sync()

	frames = min(frames, u.maxFrames)
	buf := u.out[:frames*u.channels]
	clear(buf)
	for _, in := range inputs {
		n := min(len(in), len(buf))
		for i := range n {
			buf[i] += in[i]
		}
	}

	u.transform(buf, frames)
	if u.proc != nil {
		if p, ok := u.proc.(publisher); ok {
			p.publish(u)
		}
	}
	return buf, nil
}

func (u *Unit) sync() {
	u.syncParams()
	u.rbypass = u.bypass
	u.ractive = u.active
	if u.proc != nil {
		u.proc.update(u)
	}
}

func (u *Unit) transform(buf []float32, frames int) {
	if !u.ractive {
		clear(buf)
		return
	}
	if !u.rbypass && u.proc != nil {
		u.proc.process(u, buf, frames)
	}
	if u.outGain != 1 {
		for i := range buf {
			buf[i] *= u.outGain
		}
	}
}

// render runs the unit inside a graph: feed plus weighted live inputs.
func (u *Unit) render(frames int) {
	n := frames * u.channels
	buf := u.out[:n]
	if u.fed {
		copy(buf, u.feed[:n])
	} else {
		clear(buf)
	}

	for _, in := range u.rinputs {
		if !in.unit.live || in.mix == 0 {
			continue
		}
		src := in.unit.out[:n]
		for i := range buf {
			buf[i] += in.mix * src[i]
		}
	}

	u.transform(buf, frames)
}

// Feed returns the unit's external input buffer for the next run, cleared
// on the first call after a run. Callers accumulate into it.
func (u *Unit) Feed(frames int) []float32 {
	buf := u.feed[:min(frames, u.maxFrames)*u.channels]
	if !u.fed {
		clear(buf)
		u.fed = true
	}
	return buf
}

// Output returns the unit's last rendered block.
func (u *Unit) Output(frames int) []float32 {
	return u.out[:min(frames, u.maxFrames)*u.channels]
}

// SetOutputGain scales the unit's output after its transform. It is render
// state, set by whoever drives the graph.
func (u *Unit) SetOutputGain(g float32) { u.outGain = g }

// SetSuspended keeps the unit, and any input reachable only through it,
// from running. Render state.
func (u *Unit) SetSuspended(s bool) { u.suspended = s }

// Spectrum returns the magnitudes published by an FFT unit, one per bin
// from DC to Nyquist, or nil for other kinds.
func (u *Unit) Spectrum() []float32 {
	if u.spectrum == nil {
		return nil
	}
	return append([]float32(nil), u.spectrum...)
}

// DominantFrequency returns the strongest bin of an FFT unit in Hz.
func (u *Unit) DominantFrequency() float64 { return u.dominant }
