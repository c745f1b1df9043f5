// SPDX-License-Identifier: EPL-2.0

// Package audmix is a software audio mixer: many sound channels run through
// a graph of DSP units into one interleaved float32 output stream.
//
// The engine lives in the mixer subpackage. A System owns sounds, channels,
// channel groups, DSP units, 3D geometry and reverb zones, and mixes them one
// block at a time when its Tick method is called:
//
//	sys := mixer.NewSystem(mixer.DefaultConfig())
//	if err := sys.Initialize(mixer.InitNormal, 32); err != nil {
//	    return err
//	}
//	defer sys.Release()
//
//	snd, err := sys.OpenSound("drums.ogg", mixer.ModeLoopNormal)
//	ch, err := sys.PlaySound(snd, mixer.ChannelGroup{}, false)
//	ch.SetVolumeDB(-6)
//
//	out := make([]float32, 1024*sys.SpeakerModeChannels())
//	err = sys.Tick(out, 1024)
//
// # Subpackages
//
//   - audio: the Source interface, decoded buffers, resampling and downmix
//   - formats: WAV, MP3, Ogg Vorbis, AIFF and FLAC decoders
//   - dsp: the unit graph and the built-in units (fader, filters, echo,
//     oscillator, FFT)
//   - spatial: vectors, listener math, rolloff curves, speaker panning,
//     occlusion geometry and reverb zones
//   - arena: generation-counted handles
//   - sink: destinations for mixed audio (WAV files, oto devices, beep
//     streamers)
//   - config and logger: settings and logging for the audmix command
//
// # Real and Virtual Channels
//
// Only a limited number of channels are mixed. Every block the system ranks
// live channels by priority, then audibility, then age; the rest keep their
// timeline without producing sound and come back where they would have been.
//
// # Offline Helpers
//
// Render and ResampleToMono16 run a system without an audio device, which is
// handy for tests and batch conversion.
package audmix
