// SPDX-License-Identifier: EPL-2.0

package beepsink

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

func newSystem(t *testing.T, mode spatial.SpeakerMode) *mixer.System {
	t.Helper()

	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = mode
	cfg.DSPBufferLength = 256
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 8); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = sys.Release() })
	return sys
}

func playConstant(t *testing.T, sys *mixer.System, channels int, value float32) {
	t.Helper()

	snd, err := sys.CreateSoundFromSource("c", audiotest.NewConstantSource(48000, channels, 48000, value), mixer.ModeDefault)
	if err != nil {
		t.Fatalf("CreateSoundFromSource: %v", err)
	}
	if _, err := sys.PlaySound(snd, mixer.ChannelGroup{}, false); err != nil {
		t.Fatalf("PlaySound: %v", err)
	}
}

func TestStreamer_Layouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode spatial.SpeakerMode
		want [2]float64
	}{
		{name: "mono", mode: spatial.SpeakerMono, want: [2]float64{0.5, 0.5}},
		{name: "stereo", mode: spatial.SpeakerStereo, want: [2]float64{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sys := newSystem(t, tt.mode)
			playConstant(t, sys, tt.mode.Channels(), 0.5)

			s := New(sys)
			samples := make([][2]float64, 600)
			n, ok := beep.Take(600, s).Stream(samples)
			if n != 600 || !ok {
				t.Fatalf("Stream = %d, %v", n, ok)
			}
			for i, got := range samples {
				if got != tt.want {
					t.Fatalf("frame %d = %v, want %v", i, got, tt.want)
				}
			}
		})
	}
}

func TestStreamer_Format(t *testing.T) {
	t.Parallel()

	s := New(newSystem(t, spatial.SpeakerQuad))
	f := s.Format()
	if f.SampleRate != 48000 || f.NumChannels != 2 {
		t.Fatalf("Format = %+v", f)
	}
	if s.Resampled(48000, 4) != beep.Streamer(s) {
		t.Fatal("same-rate Resampled should return the streamer itself")
	}
}

func TestStreamer_StopsOnRelease(t *testing.T) {
	t.Parallel()

	sys := newSystem(t, spatial.SpeakerStereo)
	s := New(sys)
	if err := sys.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	n, ok := s.Stream(make([][2]float64, 10))
	if n != 0 || ok {
		t.Fatalf("Stream = %d, %v, want 0, false", n, ok)
	}
	if !errors.Is(s.Err(), mixer.ErrInvalidState) {
		t.Fatalf("Err = %v, want ErrInvalidState", s.Err())
	}
}

func BenchmarkStreamer(b *testing.B) {
	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = spatial.SpeakerStereo
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 8); err != nil {
		b.Fatal(err)
	}
	defer sys.Release()

	s := New(sys)
	samples := make([][2]float64, 512)

	b.ReportAllocs()
	for b.Loop() {
		s.Stream(samples)
	}
}
