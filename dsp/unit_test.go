// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"errors"
	"math"
	"testing"
)

func prepared(u *Unit, rate, channels, frames int) *Unit {
	u.Prepare(rate, channels, frames)
	return u
}

func TestFader_ClampLaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"inside", -12, -12},
		{"upper bound", 10, 10},
		{"above", 10.0001, 10},
		{"far above", 1e9, 10},
		{"below", -80.5, -80},
		{"far below", math.Inf(-1), -80},
		{"nan restores default", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFader()
			if err := f.SetFloat(FaderGain, tt.in); err != nil {
				t.Fatalf("SetFloat() error = %v", err)
			}
			got, _ := f.Float(FaderGain)
			if got != tt.want {
				t.Errorf("gain = %v, want %v", got, tt.want)
			}
			if got < FaderMinGain || got > FaderMaxGain {
				t.Errorf("gain %v escaped [%v, %v]", got, FaderMinGain, FaderMaxGain)
			}
		})
	}
}

func TestFFT_ParamClamp(t *testing.T) {
	t.Parallel()

	u := NewFFT()

	u.SetInt(FFTWindowSize, 64)
	if got, _ := u.Int(FFTWindowSize); got != FFTMinWindowSize {
		t.Errorf("window size = %d, want %d", got, FFTMinWindowSize)
	}
	u.SetInt(FFTWindowSize, 1<<20)
	if got, _ := u.Int(FFTWindowSize); got != FFTMaxWindowSize {
		t.Errorf("window size = %d, want %d", got, FFTMaxWindowSize)
	}
	u.SetInt(FFTWindowType, 9)
	if got, _ := u.Int(FFTWindowType); got != int(WindowBlackmanHarris) {
		t.Errorf("window type = %d, want %d", got, WindowBlackmanHarris)
	}
	u.SetInt(FFTWindowType, -3)
	if got, _ := u.Int(FFTWindowType); got != int(WindowRect) {
		t.Errorf("window type = %d, want %d", got, WindowRect)
	}
}

func TestUnit_ParamErrors(t *testing.T) {
	t.Parallel()

	f := NewFader()

	if err := f.SetFloat(3, 0); !errors.Is(err, ErrParamIndex) {
		t.Errorf("SetFloat(3) error = %v, want ErrParamIndex", err)
	}
	if err := f.SetInt(FaderGain, 0); !errors.Is(err, ErrParamType) {
		t.Errorf("SetInt(gain) error = %v, want ErrParamType", err)
	}
	if i, ok := f.ParamIndex("gain"); !ok || i != FaderGain {
		t.Errorf("ParamIndex(gain) = (%d, %v)", i, ok)
	}
	if _, ok := f.ParamIndex("nope"); ok {
		t.Error("ParamIndex(nope) found a parameter")
	}
}

func TestUnit_ProcessNotPrepared(t *testing.T) {
	t.Parallel()

	if _, err := NewFader().Process(nil, 16); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("Process() error = %v, want ErrNotPrepared", err)
	}
}

func TestFader_UnityAndGain(t *testing.T) {
	t.Parallel()

	f := prepared(NewFader(), 48000, 2, 8)
	in := []float32{0.5, -0.5, 0.25, -0.25}

	out, err := f.Process([][]float32{in}, 2)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("0 dB out[%d] = %v, want %v", i, out[i], in[i])
		}
	}

	f.SetFloat(FaderGain, -80)
	out, _ = f.Process([][]float32{in}, 2)
	for i := range out {
		if out[i] != 0 {
			t.Errorf("-80 dB out[%d] = %v, want 0", i, out[i])
		}
	}
}

func TestUnit_ProcessSumsInputs(t *testing.T) {
	t.Parallel()

	m := prepared(NewMixer(), 48000, 1, 4)
	out, _ := m.Process([][]float32{{0.1, 0.2}, {0.3, 0.4}}, 2)

	want := []float32{0.4, 0.6}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestUnit_BypassAndActive(t *testing.T) {
	t.Parallel()

	f := prepared(NewFader(), 48000, 1, 4)
	f.SetFloat(FaderGain, -80)
	f.SetBypass(true)

	out, _ := f.Process([][]float32{{0.7}}, 1)
	if out[0] != 0.7 {
		t.Errorf("bypassed out = %v, want 0.7", out[0])
	}

	f.SetBypass(false)
	f.SetFloat(FaderGain, 0)
	f.SetActive(false)
	out, _ = f.Process([][]float32{{0.7}}, 1)
	if out[0] != 0 {
		t.Errorf("inactive out = %v, want 0", out[0])
	}
}

func TestEcho_ImpulseResponse(t *testing.T) {
	t.Parallel()

	e := prepared(NewEcho(), 1000, 1, 32)
	e.SetFloat(EchoDelay, 10)

	in := make([]float32, 32)
	in[0] = 1
	out, _ := e.Process([][]float32{in}, 32)

	checks := map[int]float32{0: 1, 5: 0, 10: 1, 20: 0.5, 30: 0.25}
	for i, want := range checks {
		if out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestOscillator_Square(t *testing.T) {
	t.Parallel()

	o := prepared(NewOscillator(), 1000, 2, 8)
	o.SetInt(OscillatorType, int(WaveSquare))
	o.SetFloat(OscillatorRate, 250)

	out, _ := o.Process([][]float32{make([]float32, 16)}, 8)

	// four samples per period: two high, two low, on both channels
	want := []float32{1, 1, -1, -1, 1, 1, -1, -1}
	for i, w := range want {
		if out[2*i] != w || out[2*i+1] != w {
			t.Errorf("frame %d = (%v, %v), want %v", i, out[2*i], out[2*i+1], w)
		}
	}
}

func TestFilters_DC(t *testing.T) {
	t.Parallel()

	const frames = 4096
	dc := make([]float32, frames)
	for i := range dc {
		dc[i] = 1
	}

	lp := prepared(NewLowPass(), 48000, 1, frames)
	out, _ := lp.Process([][]float32{dc}, frames)
	if got := out[frames-1]; math.Abs(float64(got-1)) > 1e-3 {
		t.Errorf("low-pass DC = %v, want ~1", got)
	}

	hp := prepared(NewHighPass(), 48000, 1, frames)
	out, _ = hp.Process([][]float32{dc}, frames)
	if got := out[frames-1]; math.Abs(float64(got)) > 1e-3 {
		t.Errorf("high-pass DC = %v, want ~0", got)
	}
}

func TestFFT_DominantFrequency(t *testing.T) {
	t.Parallel()

	const (
		rate   = 8000
		frames = 1024
	)
	u := prepared(NewFFT(), rate, 1, frames)
	u.SetInt(FFTWindowSize, frames)

	sine := make([]float32, frames)
	for i := range sine {
		sine[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / rate))
	}

	out, _ := u.Process([][]float32{sine}, frames)
	if out[10] != sine[10] {
		t.Error("FFT unit altered the audio")
	}

	if got := u.DominantFrequency(); got != 1000 {
		t.Errorf("DominantFrequency() = %v, want 1000", got)
	}
	if got := len(u.Spectrum()); got != frames/2+1 {
		t.Errorf("len(Spectrum()) = %d, want %d", got, frames/2+1)
	}
}

func TestCustom_ParamsAndCallback(t *testing.T) {
	t.Parallel()

	u := NewCustom(Description{
		Name: "scale",
		Params: []ParamDesc{
			{Name: "amount", Type: ParamFloat, Min: 0, Max: 2, Default: 1},
		},
		Process: func(u *Unit, buf []float32, _ int) {
			k := float32(u.Value(0))
			for i := range buf {
				buf[i] *= k
			}
		},
	})
	prepared(u, 48000, 1, 4)

	u.SetFloat(0, 5)
	if got, _ := u.Float(0); got != 2 {
		t.Errorf("amount = %v, want clamped 2", got)
	}

	out, _ := u.Process([][]float32{{0.25}}, 1)
	if out[0] != 0.5 {
		t.Errorf("out = %v, want 0.5", out[0])
	}
	if u.Kind() != KindCustom || u.Name() != "scale" {
		t.Errorf("Kind/Name = %v/%q", u.Kind(), u.Name())
	}
}

func TestKind_ParseRoundTrip(t *testing.T) {
	t.Parallel()

	for k := KindMixer; k <= KindCustom; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = (%v, %v)", k.String(), got, ok)
		}
	}
	if _, err := New(KindCustom); !errors.Is(err, ErrCustomKind) {
		t.Errorf("New(KindCustom) error = %v, want ErrCustomKind", err)
	}
}
