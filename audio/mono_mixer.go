// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// MonoMixer folds a multi-channel source down to one channel by averaging.
type MonoMixer struct {
	src Source
	tmp []float32
}

func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) BufSize() int    { return m.src.BufSize() }
func (m *MonoMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// SeekFrame forwards to the wrapped source; frame positions are unchanged
// by downmixing.
func (m *MonoMixer) SeekFrame(frame int64) error {
	s, ok := m.src.(Seeker)
	if !ok {
		return ErrNotSeekable
	}
	return s.SeekFrame(frame)
}

func (m *MonoMixer) Frames() int64 { return FramesOf(m.src) }

func (m *MonoMixer) SampleFormat() SampleFormat { return FormatOf(m.src) }

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	channels := m.src.Channels()
	if channels == 1 {
		return m.src.ReadSamples(dst)
	}

	samplesNeeded := len(dst) * channels

	// Grow but never shrink to avoid thrashing
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}

	return DownmixMono(dst, m.tmp[:n], channels), err
}

// DownmixMono averages each interleaved frame of src into one sample of dst
// and returns the number of frames written. dst must hold len(src)/channels
// samples.
func DownmixMono(dst, src []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, src)
	}

	frames := len(src) / channels

	switch channels {
	case 2:
		for f := range frames {
			idx := f << 1
			dst[f] = (src[idx] + src[idx+1]) * 0.5
		}
	case 4:
		for f := range frames {
			idx := f << 2
			dst[f] = (src[idx] + src[idx+1] + src[idx+2] + src[idx+3]) * 0.25
		}
	default:
		inv := float32(1.0) / float32(channels)
		for f := range frames {
			sum := float32(0)
			base := f * channels
			for c := range channels {
				sum += src[base+c]
			}
			dst[f] = sum * inv
		}
	}

	return frames
}
