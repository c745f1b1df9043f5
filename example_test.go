// SPDX-License-Identifier: EPL-2.0

package audmix_test

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/ik5/audmix"
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

// Example_basicUsage decodes a WAV file and hears it back as mono 16-bit PCM.
func Example_basicUsage() {
	samples := []int16{100, -100, 200, -200, 300, -300}
	wavData := new(bytes.Buffer)
	wav.WriteWAV16(wavData, 8000, 1, samples)

	src, err := wav.Decoder{}.Decode(wavData)
	if err != nil {
		fmt.Printf("decode error: %v\n", err)
		return
	}

	pcm16, rate, err := audmix.ResampleToMono16(src, 8000, 4096)
	if err != nil {
		fmt.Printf("resample error: %v\n", err)
		return
	}

	fmt.Printf("Processed %d samples at %d Hz\n", len(pcm16), rate)
	// Output: Processed 6 samples at 8000 Hz
}

// Example_resampleToMono16 downsamples one second of 44.1 kHz audio.
func Example_resampleToMono16() {
	samples := make([]int16, 44100)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	wavData := new(bytes.Buffer)
	wav.WriteWAV16(wavData, 44100, 1, samples)

	src, _ := wav.Decoder{}.Decode(wavData)

	pcm16, rate, err := audmix.ResampleToMono16(src, 8000, 4096)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Input: 44100 Hz, Output: %d Hz\n", rate)
	fmt.Printf("Downsampled from 44100 to %d samples\n", len(pcm16))
	// Output:
	// Input: 44100 Hz, Output: 8000 Hz
	// Downsampled from 44100 to 8000 samples
}

// Example_render mixes a tone generator and a quieter group offline.
func Example_render() {
	cfg := mixer.DefaultConfig()
	cfg.SpeakerMode = spatial.SpeakerMono
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 8); err != nil {
		panic(err)
	}
	defer sys.Release()

	music, _ := sys.CreateChannelGroup("music")
	music.SetVolume(0.5)

	// a square wave starts at +1
	osc, _ := sys.CreateDSP(dsp.KindOscillator)
	i, _ := osc.ParamIndex("type")
	osc.SetInt(i, 1)
	if _, err := sys.PlayDSP(osc, music, false); err != nil {
		panic(err)
	}

	out, err := audmix.Render(sys, 4)
	if err != nil {
		panic(err)
	}
	fmt.Println(out[0])
	// Output: 0.5
}
