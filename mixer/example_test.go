// SPDX-License-Identifier: EPL-2.0

package mixer_test

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

func ExampleSystem() {
	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = spatial.SpeakerMono
	cfg.DSPBufferLength = 128
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 32); err != nil {
		fmt.Println(err)
		return
	}
	defer sys.Release()

	snd, err := sys.CreateSoundFromSource("tone", audiotest.NewConstantSource(48000, 1, 100, 0.5), mixer.ModeDefault)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := sys.PlaySound(snd, mixer.ChannelGroup{}, false); err != nil {
		fmt.Println(err)
		return
	}

	out := make([]float32, 128)
	if err := sys.Tick(out, 128); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out[0], out[99], out[100])

	for _, e := range sys.PollEvents() {
		fmt.Println(e.Kind)
	}

	// Output:
	// 0.5 0.5 0
	// state-changed
	// channel-end
}

func ExampleChannelGroup_SetVolume() {
	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = spatial.SpeakerMono
	cfg.DSPBufferLength = 64
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 8); err != nil {
		fmt.Println(err)
		return
	}
	defer sys.Release()

	music, _ := sys.CreateChannelGroup("music")
	_ = music.SetVolume(0.5)

	snd, _ := sys.CreateSoundFromSource("pad", audiotest.NewConstantSource(48000, 1, 48000, 0.8), mixer.ModeDefault)
	_, _ = sys.PlaySound(snd, music, false)

	out := make([]float32, 64)
	_ = sys.Tick(out, 64)
	fmt.Println(out[0])

	// Output:
	// 0.4
}
