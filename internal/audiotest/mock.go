// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
	"math"
)

// ErrMockDecode is returned by sources built with NewFailingSource.
var ErrMockDecode = errors.New("mock decode failure")

// MockSource is a test helper that generates audio data for testing.
// It implements audio.Source, audio.Seeker and audio.Lengther without
// importing the audio package.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // total frames to generate
	generated    int // frames generated so far
	waveform     func(sample int, channel int) float32

	// failAt makes ReadSamples fail once this many frames were produced (<0 disables)
	failAt int
	// starve makes every other ReadSamples return (0, nil) to mimic an underrun
	starve  bool
	starved bool

	closed bool
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of frames to generate.
// waveform is a function that generates sample values given frame index and channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
		failAt:       -1,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewConstantSource(sampleRate, channels, totalSamples, 0)
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		return value
	})
}

// NewRampSource produces frame index / totalSamples on every channel, which
// makes the read position observable from the sample values.
func NewRampSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		return float32(sample) / float32(totalSamples)
	})
}

// NewFailingSource produces value until failAt frames were read and then
// returns ErrMockDecode.
func NewFailingSource(sampleRate, channels, totalSamples, failAt int, value float32) *MockSource {
	m := NewConstantSource(sampleRate, channels, totalSamples, value)
	m.failAt = failAt
	return m
}

// NewStarvingSource alternates between real reads and empty (0, nil) reads.
func NewStarvingSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	m := NewConstantSource(sampleRate, channels, totalSamples, value)
	m.starve = true
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Frames() int64   { return int64(m.totalSamples) }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Position returns the next frame to be generated.
func (m *MockSource) Position() int { return m.generated }

// Reset resets the generated sample counter to allow re-reading
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) SeekFrame(frame int64) error {
	if frame < 0 || frame > int64(m.totalSamples) {
		return io.ErrUnexpectedEOF
	}
	m.generated = int(frame)
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAt >= 0 && m.generated >= m.failAt {
		return 0, ErrMockDecode
	}
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}
	if m.starve {
		m.starved = !m.starved
		if m.starved {
			return 0, nil
		}
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)
	if m.failAt >= 0 {
		framesToWrite = min(framesToWrite, m.failAt-m.generated)
	}

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}
