// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"bytes"
	"fmt"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/wav"
)

// Example_pipeline decodes through a registry, resamples and downmixes.
func Example_pipeline() {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})

	samples := make([]int16, 2*4800) // 100 ms of stereo at 48 kHz
	wavData := new(bytes.Buffer)
	if err := wav.WriteWAV16(wavData, 48000, 2, samples); err != nil {
		panic(err)
	}

	dec, ok := reg.Get(".WAV")
	if !ok {
		panic("wav not registered")
	}
	src, err := dec.Decode(wavData)
	if err != nil {
		panic(err)
	}

	mono := audio.NewMonoMixer(audio.NewResampler(src, 16000))
	buf, err := audio.ReadAll(mono)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%d Hz, %d channel, %d frames\n", buf.Rate, buf.NumChans, buf.Len())
	// Output: 16000 Hz, 1 channel, 1600 frames
}

// ExampleBuffer_NewCursor plays one decoded buffer from two independent
// cursors.
func ExampleBuffer_NewCursor() {
	buf := &audio.Buffer{Data: []float32{0.1, 0.2, 0.3, 0.4}, Rate: 8000, NumChans: 1}

	a, b := buf.NewCursor(), buf.NewCursor()
	if err := b.SeekFrame(2); err != nil {
		panic(err)
	}

	dst := make([]float32, 1)
	a.ReadSamples(dst)
	fmt.Println(dst[0])
	b.ReadSamples(dst)
	fmt.Println(dst[0])
	// Output:
	// 0.1
	// 0.3
}
