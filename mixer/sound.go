// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

// Mode flags select how a sound is loaded and how its channels play.
type Mode uint32

const (
	ModeDefault Mode = 0
	// ModeLoopNormal loops playback; the loop count and points come from
	// the sound and can be changed per channel.
	ModeLoopNormal Mode = 1 << iota
	// Mode3D positions channels in space instead of panning them.
	Mode3D
	// Mode3DHeadRelative places 3D channels relative to the listener.
	Mode3DHeadRelative
	// ModeStream decodes while playing instead of loading up front. A
	// stream plays on one channel at a time.
	ModeStream
	// ModeMono folds multichannel sources to mono when loading.
	ModeMono
)

const (
	defaultPriority    = 128
	defaultMinDistance = 1
	defaultMaxDistance = 10000
)

// Format describes the PCM a sound decodes to.
type Format struct {
	Type       audio.SampleFormat
	Channels   int
	SampleRate int
}

// Sound is decoded audio that channels play. Resident sounds are shared by
// any number of channels; streams by one at a time.
type Sound struct {
	sys    *System
	name   string
	mode   Mode
	format Format
	length int64

	buf    *audio.Buffer
	stream *stream
	closer io.Closer

	// guarded by sys.mu
	frequency float64
	volume    float64
	priority  int
	loopStart int64
	loopEnd   int64
	loopCount int
	minDist   float64
	maxDist   float64
	users     int
	played    bool
	released  bool
}

// CreateSound decodes r with the decoder registered for format; a file
// extension such as ".wav" works as the key.
func (s *System) CreateSound(format string, r io.Reader, mode Mode) (*Sound, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	dec, ok := s.registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	src, err := dec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s.CreateSoundFromSource(format, src, mode)
}

// OpenSound opens and decodes a file, picking the decoder by extension.
// A streamed file stays open until the sound is released.
func (s *System) OpenSound(path string, mode Mode) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}

	snd, err := s.CreateSound(filepath.Ext(path), f, mode)
	if err != nil {
		f.Close()
		return nil, err
	}

	snd.name = filepath.Base(path)
	if snd.stream != nil {
		snd.closer = f
		return snd, nil
	}
	f.Close()
	return snd, nil
}

// CreateSounds opens several files in parallel. On error every sound opened
// so far is released.
func (s *System) CreateSounds(ctx context.Context, paths []string, mode Mode) ([]*Sound, error) {
	sounds := make([]*Sound, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snd, err := s.OpenSound(p, mode)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			sounds[i] = snd
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, snd := range sounds {
			if snd != nil {
				_ = snd.Release(true)
			}
		}
		return nil, err
	}
	return sounds, nil
}

// CreateSoundFromSource wraps an already open source. Resident sounds read
// src to the end and close it; streams own it until released.
func (s *System) CreateSoundFromSource(name string, src audio.Source, mode Mode) (*Sound, error) {
	if err := s.checkReady(); err != nil {
		src.Close()
		return nil, err
	}

	if mode&ModeMono != 0 && src.Channels() > 1 {
		src = audio.NewMonoMixer(src)
	}

	snd := &Sound{
		sys:  s,
		name: name,
		mode: mode,
		format: Format{
			Type:       audio.FormatOf(src),
			Channels:   max(src.Channels(), 1),
			SampleRate: src.SampleRate(),
		},
		frequency: float64(src.SampleRate()),
		volume:    1,
		priority:  defaultPriority,
		loopCount: -1,
		minDist:   defaultMinDistance,
		maxDist:   defaultMaxDistance,
	}

	if mode&ModeStream != 0 {
		s.mu.Lock()
		frames := s.cfg.streamFrames(src.SampleRate(), snd.format.Channels)
		s.mu.Unlock()

		snd.stream = newStream(src, frames)
		snd.length = snd.stream.Frames()
	} else {
		buf, err := audio.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		snd.buf = buf
		snd.length = buf.Len()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		snd.close()
		return nil, err
	}
	s.sounds[snd] = struct{}{}

	return snd, nil
}

func (s *System) checkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready()
}

func (snd *Sound) close() {
	if snd.stream != nil {
		_ = snd.stream.Close()
	}
	if snd.closer != nil {
		_ = snd.closer.Close()
		snd.closer = nil
	}
}

func (snd *Sound) with(fn func(s *System) error) error {
	if snd == nil || snd.sys == nil {
		return ErrInvalidHandle
	}
	s := snd.sys
	s.mu.Lock()
	defer s.mu.Unlock()

	if snd.released {
		return ErrInvalidHandle
	}
	if err := s.ready(); err != nil {
		return err
	}
	return fn(s)
}

func (snd *Sound) Name() string   { return snd.name }
func (snd *Sound) Mode() Mode     { return snd.mode }
func (snd *Sound) Format() Format { return snd.format }

// Length returns the sound's length in unit, or -1 when unknown.
func (snd *Sound) Length(unit TimeUnit) int64 {
	return framesTo(snd.length, unit, snd.format)
}

// SetDefaults sets the frequency, volume and priority new channels start
// with.
func (snd *Sound) SetDefaults(frequency, volume float64, priority int) error {
	return snd.with(func(*System) error {
		snd.frequency = utils.Clamp(frequency, minFrequency, maxFrequency)
		snd.volume = utils.Clamp(volume, 0, 1)
		snd.priority = utils.Clamp(priority, 0, 255)
		return nil
	})
}

func (snd *Sound) Defaults() (frequency, volume float64, priority int, err error) {
	err = snd.with(func(*System) error {
		frequency, volume, priority = snd.frequency, snd.volume, snd.priority
		return nil
	})
	return frequency, volume, priority, err
}

// SetLoopPoints sets the loop region in frames for new channels; end <=
// start loops the whole sound.
func (snd *Sound) SetLoopPoints(start, end int64) error {
	return snd.with(func(*System) error {
		snd.loopStart, snd.loopEnd = max(start, 0), max(end, 0)
		return nil
	})
}

func (snd *Sound) LoopPoints() (start, end int64, err error) {
	err = snd.with(func(*System) error {
		start, end = snd.loopStart, snd.loopEnd
		return nil
	})
	return start, end, err
}

// SetLoopCount sets how many times new channels repeat the loop; -1
// loops forever.
func (snd *Sound) SetLoopCount(n int) error {
	return snd.with(func(*System) error {
		snd.loopCount = max(n, -1)
		return nil
	})
}

func (snd *Sound) LoopCount() (n int, err error) {
	err = snd.with(func(*System) error {
		n = snd.loopCount
		return nil
	})
	return n, err
}

// Set3DMinMaxDistance sets the default attenuation range for new 3D
// channels.
func (snd *Sound) Set3DMinMaxDistance(minDist, maxDist float64) error {
	return snd.with(func(*System) error {
		snd.minDist = max(minDist, 0)
		snd.maxDist = max(maxDist, snd.minDist)
		return nil
	})
}

func (snd *Sound) Get3DMinMaxDistance() (minDist, maxDist float64, err error) {
	err = snd.with(func(*System) error {
		minDist, maxDist = snd.minDist, snd.maxDist
		return nil
	})
	return minDist, maxDist, err
}

// Release frees the sound. While channels play it, Release fails with
// ErrSoundInUse unless force is set, which stops them first.
func (snd *Sound) Release(force bool) error {
	return snd.with(func(s *System) error {
		if snd.users > 0 {
			if !force {
				return ErrSoundInUse
			}
			if err := s.queue.reserve(snd.users); err != nil {
				return err
			}

			var playing []Channel
			s.channels.Each(func(h arena.Handle, rec *channelState) {
				if rec.sound == snd {
					playing = append(playing, Channel{sys: s, h: h})
				}
			})
			for _, ch := range playing {
				if rec, ok := s.channels.Get(ch.h); ok {
					s.stopChannel(ch.h, rec)
				}
			}
		}

		snd.released = true
		delete(s.sounds, snd)
		snd.close()
		return nil
	})
}

// framesTo converts a frame count to unit.
func framesTo(frames int64, unit TimeUnit, f Format) int64 {
	if frames < 0 {
		return -1
	}
	switch unit {
	case UnitMilliseconds:
		return frames * 1000 / int64(max(f.SampleRate, 1))
	case UnitPCMBytes:
		return frames * int64(f.Channels*bytesPerSample(f.Type))
	default:
		return frames
	}
}

// framesFrom converts v in unit to frames.
func framesFrom(v int64, unit TimeUnit, f Format) int64 {
	switch unit {
	case UnitMilliseconds:
		return v * int64(f.SampleRate) / 1000
	case UnitPCMBytes:
		return v / int64(max(f.Channels*bytesPerSample(f.Type), 1))
	default:
		return v
	}
}

func bytesPerSample(t audio.SampleFormat) int {
	switch t {
	case audio.FormatPCM8:
		return 1
	case audio.FormatPCM24:
		return 3
	case audio.FormatPCM32, audio.FormatPCMFloat:
		return 4
	default:
		return 2
	}
}
