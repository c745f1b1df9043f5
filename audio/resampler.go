// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/utils"
)

// errUnderrun is returned by fetchFrame when a streaming source has no data
// ready. The frame window is left untouched so reading can resume later.
var errUnderrun = errors.New("source underrun")

// Resampler streams from src at a variable ratio using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// Includes basic anti-aliasing filtering when the ratio is above 1.
//
// The ratio is the number of source frames consumed per output frame, so a
// channel playing at twice its pitch uses ratio*2. Output frame k is the
// source signal at position pos0 + k*ratio where pos0 is the last seek point.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64
	channels int

	// Window of 4 frames for cubic interpolation
	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool

	// Fractional position between frames[1] and frames[2]
	pos float64

	// Block read from the source and consumed one frame at a time
	block    []float32
	blockPos int
	blockLen int
	eof      bool

	filterState []float32
	useFilter   bool
	filterAlpha float32
}

// NewResampler converts src to dstRate. The ratio can later be changed with
// SetRatio to apply pitch on top of the rate conversion.
func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	if channels < 1 {
		channels = 1
	}

	blockFrames := 256
	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		channels:    channels,
		block:       make([]float32, blockFrames*channels),
		filterState: make([]float32, channels),
		filterAlpha: 0.5,
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	r.SetRatio(float64(src.SampleRate()) / float64(dstRate))

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Ratio returns the number of source frames consumed per output frame.
func (r *Resampler) Ratio() float64 { return r.ratio }

// SetRatio changes the consumption rate. Non-positive ratios are ignored.
func (r *Resampler) SetRatio(ratio float64) {
	if ratio <= 0 {
		return
	}
	r.ratio = ratio
	// One-pole low-pass against aliasing when consuming faster than 1:1
	r.useFilter = ratio > 1.0
}

// Reset drops the interpolation window so the next read starts fresh from the
// source's current position.
func (r *Resampler) Reset() {
	for i := range r.hasFrame {
		r.hasFrame[i] = false
	}
	for c := range r.filterState {
		r.filterState[c] = 0
	}
	r.primed = false
	r.pos = 0
	r.blockPos, r.blockLen = 0, 0
	r.eof = false
}

// SeekFrame positions the resampler so the next output frame is the source
// signal at frame + frac. The source must implement Seeker.
func (r *Resampler) SeekFrame(frame int64, frac float64) error {
	s, ok := r.src.(Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if err := s.SeekFrame(frame); err != nil {
		return fmt.Errorf("%w", err)
	}

	r.Reset()
	r.pos = frac
	return nil
}

// nextFrame copies the next source frame into dst.
func (r *Resampler) nextFrame(dst []float32) error {
	if r.blockPos >= r.blockLen {
		if r.eof {
			return io.EOF
		}

		n, err := r.src.ReadSamples(r.block)
		n -= n % r.channels
		r.blockPos, r.blockLen = 0, n

		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return fmt.Errorf("%w", err)
		}

		if n == 0 {
			if r.eof {
				return io.EOF
			}
			return errUnderrun
		}
	}

	copy(dst, r.block[r.blockPos:r.blockPos+r.channels])
	r.blockPos += r.channels

	if r.useFilter {
		for c := range r.channels {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return nil
}

// prime fills the window with the first frames after a reset. frames[0]
// duplicates the first frame so the edge has a neighbour.
func (r *Resampler) prime() error {
	if err := r.nextFrame(r.frames[1]); err != nil {
		return err
	}
	if r.useFilter {
		// start the filter from the first sample to avoid a warm-up transient
		copy(r.filterState, r.frames[1])
	}
	copy(r.frames[0], r.frames[1])
	r.hasFrame[0], r.hasFrame[1] = true, true

	for i := 2; i < 4; i++ {
		err := r.nextFrame(r.frames[i])
		switch {
		case err == nil:
			r.hasFrame[i] = true
		case err == io.EOF:
			r.hasFrame[i] = false
		default:
			// underrun or failure while priming: start again next read
			r.hasFrame[0], r.hasFrame[1] = false, false
			return err
		}
	}

	r.primed = true
	return nil
}

// advance shifts the window by one frame.
func (r *Resampler) advance() error {
	var next []float32
	// reuse the dropped slot as the incoming frame
	next = r.frames[0]

	err := r.nextFrame(next)
	if err != nil && err != io.EOF {
		return err
	}

	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], next
	r.hasFrame[0], r.hasFrame[1], r.hasFrame[2] = r.hasFrame[1], r.hasFrame[2], r.hasFrame[3]
	r.hasFrame[3] = err == nil

	return nil
}

// ReadSamples produces interleaved samples at the current ratio.
// dst length should be a multiple of r.channels. A short read with a nil
// error means the source ran dry temporarily.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			if err == errUnderrun {
				return 0, nil
			}
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			if err := r.advance(); err != nil {
				if err == errUnderrun {
					return written * r.channels, nil
				}
				return written * r.channels, err
			}
			r.pos -= 1.0
		}

		if !r.hasFrame[1] {
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		base := written * r.channels

		for c := range r.channels {
			y0 := r.frames[0][c]
			y1 := r.frames[1][c]
			y2 := y1
			if r.hasFrame[2] {
				y2 = r.frames[2][c]
			}
			y3 := y2
			if r.hasFrame[3] {
				y3 = r.frames[3][c]
			}

			dst[base+c] = utils.CubicInterpolate(y0, y1, y2, y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
