// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"log/slog"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/spatial"
	"github.com/ik5/audmix/utils"
)

// MaxChannelCeiling is the largest real-voice limit and channel pool size.
const MaxChannelCeiling = 4093

// TimeUnit says how StreamBufferSize is measured.
type TimeUnit int

const (
	UnitMilliseconds TimeUnit = iota
	UnitPCMFrames
	// UnitPCMBytes counts bytes of 16-bit PCM in the stream's channel count.
	UnitPCMBytes
)

func (u TimeUnit) String() string {
	switch u {
	case UnitMilliseconds:
		return "ms"
	case UnitPCMFrames:
		return "frames"
	case UnitPCMBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// InitFlags adjust Initialize.
type InitFlags uint32

const (
	InitNormal InitFlags = 0
	// InitVol0BecomesVirtual sends channels whose audibility is below
	// Config.VolumeThreshold virtual regardless of their rank.
	InitVol0BecomesVirtual InitFlags = 1 << iota
	// InitRightHanded3D interprets 3D positions in a right-handed space.
	InitRightHanded3D
)

// Config holds the settings a System is built with. Zero sizes and rates
// take the values of DefaultConfig; SpeakerMode, Rolloff and DopplerScale
// keep their zero meaning, so start from DefaultConfig when unsure.
type Config struct {
	SampleRate  int
	SpeakerMode spatial.SpeakerMode

	// MaxChannels is the real-voice limit Initialize uses when it is given
	// no explicit value.
	MaxChannels int
	// ChannelPool bounds the number of live channels, real and virtual.
	ChannelPool int

	// DSPBufferLength is the block size in frames; Tick processes longer
	// requests block by block.
	DSPBufferLength int

	StreamBufferSize int
	StreamBufferUnit TimeUnit

	Rolloff         spatial.Rolloff
	VolumeThreshold float64
	DopplerScale    float64
	DistanceFactor  float64
	RolloffScale    float64

	// QueueSize bounds the structural commands accepted between two ticks.
	QueueSize int
	// EventBuffer bounds the events kept for PollEvents.
	EventBuffer int

	Registry *audio.Registry
	Logger   *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		SpeakerMode:      spatial.SpeakerStereo,
		MaxChannels:      64,
		ChannelPool:      1024,
		DSPBufferLength:  1024,
		StreamBufferSize: 500,
		StreamBufferUnit: UnitMilliseconds,
		Rolloff:          spatial.RolloffInverse,
		DopplerScale:     1,
		DistanceFactor:   1,
		RolloffScale:     1,
		QueueSize:        256,
		EventBuffer:      256,
	}
}

// normalized fills zero fields from DefaultConfig and clamps the rest.
func (c Config) normalized() Config {
	d := DefaultConfig()

	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.MaxChannels <= 0 {
		c.MaxChannels = d.MaxChannels
	}
	if c.ChannelPool <= 0 {
		c.ChannelPool = d.ChannelPool
	}
	if c.DSPBufferLength <= 0 {
		c.DSPBufferLength = d.DSPBufferLength
	}
	if c.StreamBufferSize <= 0 {
		c.StreamBufferSize = d.StreamBufferSize
		c.StreamBufferUnit = d.StreamBufferUnit
	}
	if c.DopplerScale < 0 {
		c.DopplerScale = 0
	}
	if c.DistanceFactor <= 0 {
		c.DistanceFactor = d.DistanceFactor
	}
	if c.RolloffScale <= 0 {
		c.RolloffScale = d.RolloffScale
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}

	c.MaxChannels = utils.Clamp(c.MaxChannels, 1, MaxChannelCeiling)
	c.ChannelPool = utils.Clamp(c.ChannelPool, 1, MaxChannelCeiling)
	c.VolumeThreshold = utils.Clamp(c.VolumeThreshold, 0, 1)

	return c
}

// streamFrames converts the stream buffer setting to frames.
func (c Config) streamFrames(sampleRate, channels int) int {
	switch c.StreamBufferUnit {
	case UnitPCMFrames:
		return c.StreamBufferSize
	case UnitPCMBytes:
		return max(c.StreamBufferSize/(2*max(channels, 1)), 1)
	default:
		return max(c.StreamBufferSize*sampleRate/1000, 1)
	}
}
