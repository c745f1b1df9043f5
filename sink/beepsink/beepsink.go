// SPDX-License-Identifier: EPL-2.0

// Package beepsink exposes a mixer.System as a beep.Streamer so it can be
// composed with beep's own streamers, resamplers and speakers.
package beepsink

import (
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/audmix/mixer"
)

var _ beep.Streamer = (*Streamer)(nil)

// Streamer pulls from the system one DSP block at a time. Output is
// always stereo: a mono mix is copied to both sides and wider layouts
// contribute their front pair.
type Streamer struct {
	sys      *mixer.System
	rate     int
	channels int
	block    int

	mtx sync.Mutex
	buf []float32
	err error
}

func New(sys *mixer.System) *Streamer {
	rate, mode := sys.SoftwareFormat()
	ch := max(mode.Channels(), 1)
	block := max(sys.DSPBufferSize(), 1)
	return &Streamer{
		sys:      sys,
		rate:     rate,
		channels: ch,
		block:    block,
		buf:      make([]float32, block*ch),
	}
}

// Format describes the stream for beep encoders and speakers.
func (s *Streamer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.rate),
		NumChannels: 2,
		Precision:   4,
	}
}

// Resampled returns the stream converted to rate. quality follows
// beep.Resample.
func (s *Streamer) Resampled(rate beep.SampleRate, quality int) beep.Streamer {
	if int(rate) == s.rate {
		return s
	}
	return beep.Resample(quality, beep.SampleRate(s.rate), rate, s)
}

// Stream stops at the first failed tick; Err reports it.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.err != nil {
		return 0, false
	}

	for n < len(samples) {
		frames := min(s.block, len(samples)-n)
		buf := s.buf[:frames*s.channels]
		if err := s.sys.Tick(buf, frames); err != nil {
			s.err = err
			return n, n > 0
		}

		for i := range frames {
			l := float64(buf[i*s.channels])
			r := l
			if s.channels > 1 {
				r = float64(buf[i*s.channels+1])
			}
			samples[n+i] = [2]float64{l, r}
		}
		n += frames
	}

	return n, true
}

func (s *Streamer) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.err
}
