// SPDX-License-Identifier: EPL-2.0

package wavfile

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

func readBack(t *testing.T, path string) ([]float32, int, int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer src.Close()

	var out []float32
	buf := make([]float32, 256)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	return out, src.SampleRate(), src.Channels()
}

func TestSink_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits int
		tol  float64
	}{
		{8, 1.0 / 64},
		{16, 1.0 / 16384},
		{24, 1e-6},
		{32, 1e-6},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "out.wav")
			s, err := Create(path, 44100, 2, tt.bits)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			in := []float32{0, 0.5, -0.5, 0.25, 2, -2}
			if err := s.Write(in[:4]); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := s.Write(in[4:]); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if got := s.Frames(); got != 3 {
				t.Errorf("Frames = %d, want 3", got)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("second Close: %v", err)
			}
			if err := s.Write(in); !errors.Is(err, ErrClosed) {
				t.Fatalf("Write after Close = %v", err)
			}

			got, rate, chans := readBack(t, path)
			if rate != 44100 || chans != 2 {
				t.Fatalf("format = %d Hz x %d, want 44100 x 2", rate, chans)
			}
			want := []float32{0, 0.5, -0.5, 0.25, 1, -1}
			if len(got) != len(want) {
				t.Fatalf("read %d samples, want %d", len(got), len(want))
			}
			for i := range want {
				if math.Abs(float64(got[i]-want[i])) > tt.tol {
					t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.wav")
	if _, err := Create(path, 48000, 2, 12); !errors.Is(err, ErrBitDepth) {
		t.Errorf("bit depth 12: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("failed Create left %s behind", path)
	}
	if _, err := Create(path, 48000, 0, 16); !errors.Is(err, ErrChannels) {
		t.Errorf("0 channels: %v", err)
	}

	s, err := Create(path, 48000, 2, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()
	if err := s.Write([]float32{1, 2, 3}); !errors.Is(err, ErrPartialData) {
		t.Errorf("odd sample count: %v", err)
	}
}

func TestSink_MixerUpdate(t *testing.T) {
	t.Parallel()

	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = spatial.SpeakerStereo
	cfg.DSPBufferLength = 480
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 8); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sys.Release()

	path := filepath.Join(t.TempDir(), "mix.wav")
	s, err := Create(path, 48000, 2, 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sys.SetOutput(s)

	snd, err := sys.CreateSoundFromSource("tone", audiotest.NewSineSource(48000, 2, 4800, 440), mixer.ModeDefault)
	if err != nil {
		t.Fatalf("CreateSoundFromSource: %v", err)
	}
	if _, err := sys.PlaySound(snd, mixer.ChannelGroup{}, false); err != nil {
		t.Fatalf("PlaySound: %v", err)
	}

	for range 10 {
		if err := sys.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, _, chans := readBack(t, path)
	if chans != 2 || len(got) != 2*4800 {
		t.Fatalf("read %d samples x %d channels, want 9600 x 2", len(got), chans)
	}
	peak := float32(0)
	for _, v := range got {
		peak = max(peak, v)
	}
	if peak < 0.9 {
		t.Errorf("peak = %v, want a full scale sine", peak)
	}
}
