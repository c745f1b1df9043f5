// SPDX-License-Identifier: EPL-2.0

// Package mixer is a real-time software mixer: sounds play on channels,
// channels feed a tree of channel groups, and every channel and group
// pushes its audio through a chain of DSP units in a shared dsp.Graph.
//
// A System is created with NewSystem, sized by Initialize, and driven by
// Tick (pull) or Update (push to a Sink):
//
//	sys := mixer.NewSystem(mixer.DefaultConfig())
//	if err := sys.Initialize(mixer.InitNormal, 32); err != nil { ... }
//	snd, _ := sys.OpenSound("hit.wav", mixer.ModeDefault)
//	ch, _ := sys.PlaySound(snd, mixer.ChannelGroup{}, false)
//	_ = ch.SetVolumeDB(-6)
//	out := make([]float32, 1024*sys.SpeakerModeChannels())
//	_ = sys.Tick(out, 1024)
//
// Before each block the virtualizer ranks live channels by priority,
// audibility and age and mixes only the first maxChannels; the others go
// virtual and keep their position by elapsed time, so they resume in the
// right place. 3D channels are panned by azimuth, attenuated by a rolloff
// curve and occluded by registered spatial.Geometry.
//
// Channel, ChannelGroup, DSP and Reverb3D are small handle values that
// stop resolving (ErrInvalidHandle) once the object is gone. Errors wrap
// one of ErrStructural, ErrResource, ErrInvalidState or ErrInvalidHandle.
// Notifications such as a channel ending arrive through PollEvents or
// Subscribe.
package mixer
