// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/audmix/audio"
)

// fakeStream serves pre-decoded frames the way beep's flac decoder does.
type fakeStream struct {
	frames [][2]float64
	pos    int
	closed bool
}

func (f *fakeStream) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= len(f.frames) {
		return 0, false
	}
	n := copy(samples, f.frames[f.pos:])
	f.pos += n
	return n, true
}

func (f *fakeStream) Err() error    { return nil }
func (f *fakeStream) Len() int      { return len(f.frames) }
func (f *fakeStream) Position() int { return f.pos }
func (f *fakeStream) Close() error  { f.closed = true; return nil }

func (f *fakeStream) Seek(p int) error {
	if p < 0 || p > len(f.frames) {
		return errors.New("out of range")
	}
	f.pos = p
	return nil
}

func newFake(n int) *fakeStream {
	f := &fakeStream{frames: make([][2]float64, n)}
	for i := range f.frames {
		f.frames[i] = [2]float64{float64(i) / float64(n), -float64(i) / float64(n)}
	}
	return f
}

func TestSource_Stereo(t *testing.T) {
	t.Parallel()

	fake := newFake(100)
	src := newSource(fake, beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})

	if src.Channels() != 2 || src.SampleRate() != 44100 || src.Frames() != 100 {
		t.Fatalf("format = %d ch, %d Hz, %d frames", src.Channels(), src.SampleRate(), src.Frames())
	}
	if got := src.SampleFormat(); got != audio.FormatPCM16 {
		t.Fatalf("SampleFormat = %v", got)
	}

	buf, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if buf.Len() != 100 {
		t.Fatalf("Len = %d, want 100", buf.Len())
	}
	if got, want := buf.Data[2*10], float32(0.1); got != want {
		t.Errorf("frame 10 left = %v, want %v", got, want)
	}
	if got, want := buf.Data[2*10+1], float32(-0.1); got != want {
		t.Errorf("frame 10 right = %v, want %v", got, want)
	}
	if !fake.closed {
		t.Error("stream was not closed")
	}
}

func TestSource_MonoAndSeek(t *testing.T) {
	t.Parallel()

	fake := newFake(50)
	src := newSource(fake, beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 3})

	if src.Channels() != 1 {
		t.Fatalf("Channels = %d, want 1", src.Channels())
	}
	if err := src.SeekFrame(25); err != nil {
		t.Fatalf("SeekFrame: %v", err)
	}

	dst := make([]float32, 10)
	n, err := src.ReadSamples(dst)
	if err != nil || n != 10 {
		t.Fatalf("ReadSamples = %d, %v", n, err)
	}
	if dst[0] != 0.5 {
		t.Errorf("first sample after seek = %v, want 0.5", dst[0])
	}

	if err := src.SeekFrame(51); !errors.Is(err, audio.ErrSeekRange) {
		t.Errorf("SeekFrame(51) = %v, want ErrSeekRange", err)
	}
}

func TestSource_EOF(t *testing.T) {
	t.Parallel()

	src := newSource(newFake(4), beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2})
	dst := make([]float32, 16)

	if n, err := src.ReadSamples(dst); n != 8 || err != nil {
		t.Fatalf("first read = %d, %v", n, err)
	}
	if n, err := src.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Fatalf("second read = %d, %v, want 0, EOF", n, err)
	}
	if _, err := src.ReadSamples(make([]float32, 3)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Fatalf("odd dst = %v", err)
	}
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(strings.NewReader("not a flac stream")); err == nil {
		t.Fatal("expected an error for garbage input")
	}
}
