// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
	"github.com/ik5/audmix/utils"
)

var ErrTargetRate = errors.New("target rate must be positive")

// Render runs sys for frames frames and returns the interleaved output.
func Render(sys *mixer.System, frames int) ([]float32, error) {
	out := make([]float32, frames*sys.SpeakerModeChannels())
	if err := sys.Tick(out, frames); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return out, nil
}

// ResampleToMono16 plays src once through a private mono system running
// at targetRate and returns what it heard as 16-bit PCM.
//
// The result has ceil(frames * targetRate / sourceRate) samples. bufferSize
// is the mixer block length in frames; 0 means the mixer default.
//
// Example:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	pcm16, rate, err := audmix.ResampleToMono16(src, 8000, 4096)
func ResampleToMono16(src audio.Source, targetRate int, bufferSize int) ([]int16, int, error) {
	if targetRate <= 0 {
		src.Close()
		return nil, 0, ErrTargetRate
	}

	cfg := mixer.DefaultConfig()
	cfg.SampleRate = targetRate
	cfg.SpeakerMode = spatial.SpeakerMono
	cfg.DSPBufferLength = bufferSize
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := mixer.NewSystem(cfg)
	if err := sys.Initialize(mixer.InitNormal, 1); err != nil {
		src.Close()
		return nil, targetRate, err
	}
	defer sys.Release()

	snd, err := sys.CreateSoundFromSource("src", src, mixer.ModeMono)
	if err != nil {
		return nil, targetRate, err
	}
	if _, err := sys.PlaySound(snd, mixer.ChannelGroup{}, false); err != nil {
		return nil, targetRate, err
	}

	srcFrames := snd.Length(mixer.UnitPCMFrames)
	srcRate := int64(snd.Format().SampleRate)
	total := int((srcFrames*int64(targetRate) + srcRate - 1) / srcRate)

	out, err := Render(sys, total)
	if err != nil {
		return nil, targetRate, err
	}

	pcm16 := make([]int16, len(out))
	for i, x := range out {
		pcm16[i] = utils.Float32ToInt16(x)
	}
	return pcm16, targetRate, nil
}
