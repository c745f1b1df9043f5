// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"math/bits"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT parameters.
const (
	// FFTWindowSize is in samples, [128, 16384], rounded down to a power of two.
	FFTWindowSize = 0
	// FFTWindowType selects the analysis window, [0, 5].
	FFTWindowType = 1
)

const (
	FFTMinWindowSize = 128
	FFTMaxWindowSize = 16384
)

type Window int

const (
	WindowRect Window = iota
	WindowTriangle
	WindowHamming
	WindowHanning
	WindowBlackman
	WindowBlackmanHarris
)

// fft analyses a mono downmix of its input in consecutive windows and passes
// the audio through unchanged.
type fft struct {
	size   int
	window Window

	plan   *fourier.FFT
	coeffs []complex128
	seq    []float64
	ring   []float32
	shape  []float64
	pos    int

	spec     []float32
	dominant float64
	ready    bool
}

// NewFFT returns a spectrum analyser. Read the result with Unit.Spectrum
// and Unit.DominantFrequency.
func NewFFT() *Unit {
	return newUnit(KindFFT, "fft", []ParamDesc{
		intParam("windowsize", FFTMinWindowSize, FFTMaxWindowSize, 2048),
		intParam("windowtype", int(WindowRect), int(WindowBlackmanHarris), int(WindowHamming)),
	}, &fft{window: -1})
}

func (f *fft) prepare(*Unit) {}

func (f *fft) update(u *Unit) {
	size := 1 << (bits.Len(uint(u.Value(FFTWindowSize))) - 1)
	window := Window(u.Value(FFTWindowType))
	if size == f.size && window == f.window {
		return
	}

	if size != f.size {
		f.size = size
		f.plan = fourier.NewFFT(size)
		f.coeffs = make([]complex128, size/2+1)
		f.seq = make([]float64, size)
		f.ring = make([]float32, size)
		f.shape = make([]float64, size)
		f.spec = make([]float32, size/2+1)
		f.pos = 0
		f.ready = false
	}
	f.window = window
	fillWindow(f.shape, window)
}

func (f *fft) reset() {
	clear(f.ring)
	f.pos = 0
}

func (f *fft) process(u *Unit, buf []float32, frames int) {
	ch := u.channels
	inv := 1 / float32(ch)

	for i := range frames {
		var sum float32
		for c := range ch {
			sum += buf[i*ch+c]
		}
		f.ring[f.pos] = sum * inv
		f.pos++

		if f.pos == f.size {
			f.analyse(u.sampleRate)
			f.pos = 0
		}
	}
}

func (f *fft) analyse(sampleRate int) {
	for i, v := range f.ring {
		f.seq[i] = float64(v) * f.shape[i]
	}
	f.plan.Coefficients(f.coeffs, f.seq)

	scale := 2 / float64(f.size)
	best, bestBin := 0.0, 0
	for k, c := range f.coeffs {
		m := cmplx.Abs(c) * scale
		f.spec[k] = float32(m)
		if k > 0 && m > best {
			best, bestBin = m, k
		}
	}

	f.dominant = float64(bestBin) * float64(sampleRate) / float64(f.size)
	f.ready = true
}

func (f *fft) publish(u *Unit) {
	if !f.ready {
		return
	}
	if len(u.spectrum) != len(f.spec) {
		u.spectrum = make([]float32, len(f.spec))
	}
	copy(u.spectrum, f.spec)
	u.dominant = f.dominant
}

func fillWindow(w []float64, kind Window) {
	n := float64(len(w) - 1)
	for i := range w {
		x := float64(i)
		switch kind {
		case WindowRect:
			w[i] = 1
		case WindowTriangle:
			w[i] = 1 - math.Abs((x-n/2)/(n/2))
		case WindowHanning:
			w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*x/n)
		case WindowBlackman:
			w[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x/n) + 0.08*math.Cos(4*math.Pi*x/n)
		case WindowBlackmanHarris:
			w[i] = 0.35875 - 0.48829*math.Cos(2*math.Pi*x/n) +
				0.14128*math.Cos(4*math.Pi*x/n) - 0.01168*math.Cos(6*math.Pi*x/n)
		default:
			w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*x/n)
		}
	}
}
