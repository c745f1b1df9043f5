// SPDX-License-Identifier: EPL-2.0

// Package wavfile writes mixed output to a WAV file.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audmix/utils"
)

const wavFormatPCM = 1

var (
	ErrClosed      = errors.New("wav sink is closed")
	ErrBitDepth    = errors.New("unsupported bit depth")
	ErrChannels    = errors.New("invalid channel count")
	ErrPartialData = errors.New("sample count is not a multiple of the channel count")
)

// Sink encodes interleaved float32 blocks as integer PCM. It implements
// mixer.Sink.
type Sink struct {
	mtx      sync.Mutex
	enc      *wav.Encoder
	closer   io.Closer
	buf      *goaudio.IntBuffer
	bitDepth int
	channels int
	frames   int64
	closed   bool
}

// New encodes to w. The header is finalized on Close; w itself is left
// open.
func New(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*Sink, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d", ErrChannels, channels)
	}

	return &Sink{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
		channels: channels,
	}, nil
}

// Create writes a new file at path; Close also closes the file.
func Create(path string, sampleRate, channels, bitDepth int) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	s, err := New(f, sampleRate, channels, bitDepth)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	s.closer = f
	return s, nil
}

func (s *Sink) Write(samples []float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return ErrClosed
	}
	if len(samples)%s.channels != 0 {
		return ErrPartialData
	}

	data := s.buf.Data[:0]
	for _, v := range samples {
		data = append(data, pcm(v, s.bitDepth))
	}
	s.buf.Data = data

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	s.frames += int64(len(samples) / s.channels)
	return nil
}

// Frames returns the number of frames written so far.
func (s *Sink) Frames() int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.frames
}

// Close finalizes the header. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.enc.Close()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// pcm converts to the encoder's integer range. 8-bit WAV is unsigned.
func pcm(v float32, bitDepth int) int {
	if bitDepth == 16 {
		return int(utils.Float32ToInt16(v))
	}
	n := utils.Float32ToPCM(v, bitDepth)
	if bitDepth == 8 {
		n += 128
	}
	return n
}
