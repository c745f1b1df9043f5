// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
)

// drainStream reads s until it reports an error, polling through
// underruns. It fails the test if the stream stalls.
func drainStream(t *testing.T, s *stream, limit int) ([]float32, error) {
	t.Helper()

	var got []float32
	buf := make([]float32, 300)
	deadline := time.Now().Add(5 * time.Second)

	for len(got) <= limit {
		n, err := s.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			return got, err
		}
		if n == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("stream stalled after %d samples", len(got))
			}
			time.Sleep(100 * time.Microsecond)
		}
	}
	return got, nil
}

func TestStream_ReadsWholeSource(t *testing.T) {
	t.Parallel()

	const total = 5000
	src := audiotest.NewRampSource(48000, 2, total)
	s := newStream(src, 256)
	defer s.Close()

	got, err := drainStream(t, s, 2*total+10)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want EOF", err)
	}
	if len(got) != 2*total {
		t.Fatalf("read %d samples, want %d", len(got), 2*total)
	}
	for i := 0; i < len(got); i += 2 {
		want := float32(i/2) / total
		if got[i] != want || got[i+1] != want {
			t.Fatalf("frame %d = (%v, %v), want %v", i/2, got[i], got[i+1], want)
		}
	}
}

func TestStream_Seek(t *testing.T) {
	t.Parallel()

	const total = 10000
	src := audiotest.NewRampSource(48000, 1, total)
	s := newStream(src, 512)
	defer s.Close()

	buf := make([]float32, 64)
	deadline := time.Now().Add(5 * time.Second)
	for s.buffered() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never filled")
		}
		time.Sleep(100 * time.Microsecond)
	}
	if _, err := s.ReadSamples(buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	s.setPrefill(256)
	if err := s.SeekFrame(5000); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if n := s.buffered(); n < 256 {
		t.Fatalf("buffered after seek = %d, want at least 256", n)
	}
	got, err := drainStream(t, s, 1)
	if err != nil {
		t.Fatalf("read after seek: %v", err)
	}
	if got[0] != 0.5 {
		t.Fatalf("first sample after seek = %v, want 0.5", got[0])
	}

	if err := s.SeekFrame(total + 1); !errors.Is(err, audio.ErrSeekRange) {
		t.Errorf("seek past end = %v, want ErrSeekRange", err)
	}
	if err := s.SeekFrame(-1); !errors.Is(err, audio.ErrSeekRange) {
		t.Errorf("negative seek = %v, want ErrSeekRange", err)
	}
}

func TestStream_LoopCount(t *testing.T) {
	t.Parallel()

	const total = 1000
	src := audiotest.NewRampSource(48000, 1, total)
	s := newStream(src, 256)
	defer s.Close()
	s.setLoop(true, 0, 0, 1)

	got, err := drainStream(t, s, 3*total)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want EOF", err)
	}
	if len(got) != 2*total {
		t.Fatalf("read %d samples, want %d", len(got), 2*total)
	}
	if got[total-1] != float32(total-1)/total || got[total] != 0 {
		t.Fatalf("wrap at %d: %v then %v", total, got[total-1], got[total])
	}
}

func TestStream_DecodeFailure(t *testing.T) {
	t.Parallel()

	src := audiotest.NewFailingSource(48000, 1, 10000, 500, 0.25)
	s := newStream(src, 256)
	defer s.Close()

	got, err := drainStream(t, s, 10000)
	if !errors.Is(err, audiotest.ErrMockDecode) {
		t.Fatalf("err = %v, want ErrMockDecode", err)
	}
	if len(got) != 500 {
		t.Fatalf("read %d samples before failing, want 500", len(got))
	}
}

func TestStream_NotSeekable(t *testing.T) {
	t.Parallel()

	type plain struct{ audio.Source }
	s := newStream(plain{audiotest.NewSilentSource(48000, 1, 100)}, 64)
	defer s.Close()

	if err := s.SeekFrame(0); !errors.Is(err, audio.ErrNotSeekable) {
		t.Fatalf("seek = %v, want ErrNotSeekable", err)
	}
	if n := s.Frames(); n != -1 {
		t.Fatalf("frames = %d, want -1", n)
	}
}

func TestStream_CloseClosesSource(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(48000, 1, 100000)
	s := newStream(src, 256)

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !src.Closed() {
		t.Fatal("source not closed")
	}
}
