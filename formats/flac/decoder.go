// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	beepflac "github.com/gopxl/beep/v2/flac"

	"github.com/ik5/audmix/audio"
)

type source struct {
	s        beep.StreamSeekCloser
	format   beep.Format
	channels int
	frames   [][2]float64
	done     bool
}

func newSource(s beep.StreamSeekCloser, format beep.Format) *source {
	return &source{
		s:        s,
		format:   format,
		channels: min(max(format.NumChannels, 1), 2),
		frames:   make([][2]float64, 2048),
	}
}

func (s *source) SampleRate() int { return int(s.format.SampleRate) }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return cap(s.frames) * s.channels }
func (s *source) Frames() int64   { return int64(s.s.Len()) }

func (s *source) SampleFormat() audio.SampleFormat {
	return audio.FormatFromBitDepth(8 * s.format.Precision)
}

func (s *source) Close() error {
	if err := s.s.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (s *source) SeekFrame(frame int64) error {
	if frame < 0 || frame > s.Frames() {
		return audio.ErrSeekRange
	}
	if err := s.s.Seek(int(frame)); err != nil {
		return fmt.Errorf("%w: %w", audio.ErrNotSeekable, err)
	}
	s.done = false
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if s.done {
		return 0, io.EOF
	}

	want := len(dst) / s.channels
	if cap(s.frames) < want {
		s.frames = make([][2]float64, want)
	}
	buf := s.frames[:want]

	n, ok := s.s.Stream(buf)
	for i, f := range buf[:n] {
		if s.channels == 1 {
			dst[i] = float32(f[0])
			continue
		}
		dst[2*i] = float32(f[0])
		dst[2*i+1] = float32(f[1])
	}

	if !ok {
		s.done = true
		if err := s.s.Err(); err != nil {
			return n * s.channels, fmt.Errorf("%w", err)
		}
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

// Decoder reads FLAC streams.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	s, format, err := beepflac.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return newSource(s, format), nil
}
