// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/spatial"
	"github.com/ik5/audmix/utils"
)

const (
	minPitch     = 1.0 / 256
	maxPitch     = 256.0
	minFrequency = 1.0
	maxFrequency = 1 << 20
)

type channelState struct {
	sound *Sound
	v     *voice
	group arena.Handle
	chain []arena.Handle
	seq   uint64

	volume    float64
	pitch     float64
	frequency float64
	pan       float64
	priority  int
	paused    bool
	mute      bool
	mode      Mode

	loopCount int
	loopStart int64
	loopEnd   int64
	loopDirty bool

	position  spatial.Vector
	velocity  spatial.Vector
	minDist   float64
	maxDist   float64
	occDirect float64
	occReverb float64

	seekTo      float64
	seekPending bool

	// published by the tick
	pos        float64
	virtual    bool
	audibility float64
}

func (rec *channelState) format(s *System) Format {
	if rec.sound != nil {
		return rec.sound.format
	}
	return Format{Type: audio.FormatPCMFloat, Channels: s.outCh, SampleRate: s.cfg.SampleRate}
}

// Channel is a handle to one playing instance of a sound or DSP. It stops
// resolving once the channel ends or is stopped.
type Channel struct {
	sys *System
	h   arena.Handle
}

// PlaySound starts snd on a new channel in group (the zero ChannelGroup
// means master). The channel is mixed from the next tick.
func (s *System) PlaySound(snd *Sound, group ChannelGroup, paused bool) (Channel, error) {
	if snd == nil {
		return Channel{}, ErrInvalidHandle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return Channel{}, err
	}
	if snd.sys != s || snd.released {
		return Channel{}, ErrInvalidHandle
	}
	if snd.stream != nil && snd.users > 0 {
		return Channel{}, ErrStreamInUse
	}

	var src audio.Source
	if snd.buf != nil {
		src = snd.buf.NewCursor()
	} else {
		if snd.played {
			_ = snd.stream.SeekFrame(0)
		}
		src = snd.stream
	}

	rec := channelState{
		sound:     snd,
		volume:    snd.volume,
		pitch:     1,
		frequency: snd.frequency,
		priority:  snd.priority,
		paused:    paused,
		mode:      snd.mode,
		loopCount: snd.loopCount,
		loopStart: snd.loopStart,
		loopEnd:   snd.loopEnd,
		minDist:   snd.minDist,
		maxDist:   snd.maxDist,
	}
	ch, err := s.startChannel(rec, group, src, arena.Handle{})
	if err != nil {
		return Channel{}, err
	}

	snd.users++
	snd.played = true
	return ch, nil
}

// PlayDSP starts a channel whose chain ends in d, typically an oscillator.
// d must not already be part of a chain.
func (s *System) PlayDSP(d DSP, group ChannelGroup, paused bool) (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return Channel{}, err
	}
	o, ok := s.owners[d.h]
	if d.sys != s || !ok {
		return Channel{}, ErrInvalidHandle
	}
	if o.builtin {
		return Channel{}, ErrBuiltinDSP
	}
	if o.attached() {
		return Channel{}, ErrDSPInUse
	}

	rec := channelState{
		volume:    1,
		pitch:     1,
		frequency: float64(s.cfg.SampleRate),
		priority:  defaultPriority,
		paused:    paused,
		loopCount: -1,
		minDist:   defaultMinDistance,
		maxDist:   defaultMaxDistance,
	}
	return s.startChannel(rec, group, nil, d.h)
}

// startChannel builds the chain and voice and queues the start. Called
// with mu held.
func (s *System) startChannel(rec channelState, group ChannelGroup, src audio.Source, user arena.Handle) (Channel, error) {
	gh, g, err := s.group(group)
	if err != nil {
		return Channel{}, err
	}
	if err := s.queue.reserve(2); err != nil {
		return Channel{}, err
	}
	if s.channels.Len() >= s.channels.Cap() {
		return Channel{}, ErrChannelPoolExhausted
	}

	fader, err := s.newUnit(dsp.NewFader())
	if err != nil {
		return Channel{}, err
	}
	rec.chain = []arena.Handle{fader}
	rec.group = gh
	s.seq++
	rec.seq = s.seq

	h, err := s.channels.Insert(rec)
	if err != nil {
		_ = s.graph.Remove(fader)
		delete(s.owners, fader)
		return Channel{}, ErrChannelPoolExhausted
	}
	st, _ := s.channels.Get(h)
	s.owners[fader] = dspOwner{channel: h, builtin: true}

	if !user.IsZero() {
		chain, err := s.splice(st.chain, 1, user)
		if err != nil {
			s.channels.Remove(h)
			_ = s.graph.Remove(fader)
			delete(s.owners, fader)
			return Channel{}, err
		}
		st.chain = chain
		s.owners[user] = dspOwner{channel: h}
	}

	_ = s.graph.Connect(g.bus(), fader, 1)
	g.members = append(g.members, h)

	v := newVoice(h, src, s.cfg.SampleRate, s.outCh, s.cfg.DSPBufferLength)
	v.setLoop(st.mode&ModeLoopNormal != 0, st.loopStart, st.loopEnd, st.loopCount)
	v.paused = st.paused
	st.v = v

	_ = s.queue.push(command{kind: cmdStart, v: v})
	s.graphChanged()

	return Channel{sys: s, h: h}, nil
}

// stopChannel tears the channel down and tells the tick to drop its voice.
// Callers reserve the queue slot.
func (s *System) stopChannel(h arena.Handle, rec *channelState) {
	v := rec.v
	s.detachChannel(h, rec)
	_ = s.queue.push(command{kind: cmdStop, v: v})
}

// detachChannel removes the channel from its group and the graph. User
// DSPs in its chain are detached and stay alive.
func (s *System) detachChannel(h arena.Handle, rec *channelState) {
	if g, ok := s.groups.Get(rec.group); ok {
		_ = s.graph.Disconnect(g.bus(), rec.chain[0])
		g.members = slices.DeleteFunc(g.members, func(m arena.Handle) bool { return m == h })
	}
	s.stripChain(rec.chain, 0)
	if rec.sound != nil {
		rec.sound.users--
	}
	s.channels.Remove(h)
}

// moveChannel reconnects the channel's head to another group's bus.
func (s *System) moveChannel(h arena.Handle, rec *channelState, to arena.Handle) error {
	if rec.group == to {
		return nil
	}
	dst, ok := s.groups.Get(to)
	if !ok {
		return ErrInvalidHandle
	}
	head := rec.chain[0]

	old, ok := s.groups.Get(rec.group)
	if ok {
		_ = s.graph.Disconnect(old.bus(), head)
	}
	if err := s.graph.Connect(dst.bus(), head, 1); err != nil {
		if ok {
			_ = s.graph.Connect(old.bus(), head, 1)
		}
		return structural(err)
	}
	if ok {
		old.members = slices.DeleteFunc(old.members, func(m arena.Handle) bool { return m == h })
	}
	dst.members = append(dst.members, h)
	rec.group = to
	return nil
}

func (c Channel) with(fn func(s *System, rec *channelState) error) error {
	s := c.sys
	if s == nil {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	rec, ok := s.channels.Get(c.h)
	if !ok {
		return ErrInvalidHandle
	}
	return fn(s, rec)
}

// IsPlaying reports whether the channel still exists. Paused and virtual
// channels count as playing.
func (c Channel) IsPlaying() bool {
	return c.with(func(*System, *channelState) error { return nil }) == nil
}

// Stop ends the channel. Its handle stops resolving immediately.
func (c Channel) Stop() error {
	return c.with(func(s *System, rec *channelState) error {
		if err := s.queue.reserve(1); err != nil {
			return err
		}
		s.stopChannel(c.h, rec)
		return nil
	})
}

func (c Channel) SetPaused(p bool) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.paused = p
		return nil
	})
}

func (c Channel) Paused() (p bool, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		p = rec.paused
		return nil
	})
	return p, err
}

// SetVolume sets the linear gain, clamped to [0, 1].
func (c Channel) SetVolume(v float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.volume = utils.Clamp(v, 0, 1)
		return nil
	})
}

// SetVolumeDB sets the gain in decibels; -80 dB and below is silence.
func (c Channel) SetVolumeDB(db float64) error {
	return c.SetVolume(utils.DbToLinear(db))
}

func (c Channel) Volume() (v float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		v = rec.volume
		return nil
	})
	return v, err
}

func (c Channel) SetMute(m bool) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.mute = m
		return nil
	})
}

func (c Channel) Mute() (m bool, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		m = rec.mute
		return nil
	})
	return m, err
}

// SetPitch scales the playback rate; 2 is an octave up.
func (c Channel) SetPitch(p float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.pitch = utils.Clamp(p, minPitch, maxPitch)
		return nil
	})
}

func (c Channel) Pitch() (p float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		p = rec.pitch
		return nil
	})
	return p, err
}

// SetFrequency sets the playback rate in Hz; the sound's own rate plays
// at normal speed.
func (c Channel) SetFrequency(hz float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.frequency = utils.Clamp(hz, minFrequency, maxFrequency)
		return nil
	})
}

func (c Channel) Frequency() (hz float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		hz = rec.frequency
		return nil
	})
	return hz, err
}

// SetPan places a 2D channel from -1 (left) to 1 (right). Channels whose
// layout matches the output treat it as balance.
func (c Channel) SetPan(p float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.pan = utils.Clamp(p, -1, 1)
		return nil
	})
}

func (c Channel) Pan() (p float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		p = rec.pan
		return nil
	})
	return p, err
}

// SetPriority sets the virtualization priority, 0 most important and 255
// least.
func (c Channel) SetPriority(p int) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.priority = utils.Clamp(p, 0, 255)
		return nil
	})
}

func (c Channel) Priority() (p int, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		p = rec.priority
		return nil
	})
	return p, err
}

// SetMode changes the loop and 3D flags of a playing channel. Load-time
// flags are ignored.
func (c Channel) SetMode(m Mode) error {
	const mask = ModeLoopNormal | Mode3D | Mode3DHeadRelative
	return c.with(func(_ *System, rec *channelState) error {
		rec.mode = rec.mode&^mask | m&mask
		rec.loopDirty = true
		return nil
	})
}

func (c Channel) Mode() (m Mode, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		m = rec.mode
		return nil
	})
	return m, err
}

// SetLoopCount sets how many more times the loop repeats; -1 loops
// forever.
func (c Channel) SetLoopCount(n int) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.loopCount = max(n, -1)
		rec.loopDirty = true
		return nil
	})
}

func (c Channel) LoopCount() (n int, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		n = rec.loopCount
		return nil
	})
	return n, err
}

// SetLoopPoints sets the loop region in unit; end <= start loops the whole
// sound.
func (c Channel) SetLoopPoints(start, end int64, unit TimeUnit) error {
	return c.with(func(s *System, rec *channelState) error {
		f := rec.format(s)
		rec.loopStart = max(framesFrom(start, unit, f), 0)
		rec.loopEnd = max(framesFrom(end, unit, f), 0)
		rec.loopDirty = true
		return nil
	})
}

func (c Channel) LoopPoints(unit TimeUnit) (start, end int64, err error) {
	err = c.with(func(s *System, rec *channelState) error {
		f := rec.format(s)
		start, end = framesTo(rec.loopStart, unit, f), framesTo(rec.loopEnd, unit, f)
		return nil
	})
	return start, end, err
}

// SetPosition moves playback to pos. Real channels seek their decoder at
// the next tick.
func (c Channel) SetPosition(pos int64, unit TimeUnit) error {
	return c.with(func(s *System, rec *channelState) error {
		frames := max(framesFrom(pos, unit, rec.format(s)), 0)
		if rec.sound != nil && rec.sound.length >= 0 {
			frames = min(frames, rec.sound.length)
		}
		rec.seekTo = float64(frames)
		rec.seekPending = true
		rec.pos = rec.seekTo
		return nil
	})
}

// Position returns the playback position published by the last tick.
func (c Channel) Position(unit TimeUnit) (pos int64, err error) {
	err = c.with(func(s *System, rec *channelState) error {
		pos = framesTo(int64(rec.pos), unit, rec.format(s))
		return nil
	})
	return pos, err
}

// FramePosition returns the exact, fractional position in source frames.
func (c Channel) FramePosition() (pos float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		pos = rec.pos
		return nil
	})
	return pos, err
}

// Set3DAttributes sets the position and velocity of a 3D channel, in world
// units and units per second.
func (c Channel) Set3DAttributes(pos, vel spatial.Vector) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.position, rec.velocity = pos, vel
		return nil
	})
}

func (c Channel) Get3DAttributes() (pos, vel spatial.Vector, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		pos, vel = rec.position, rec.velocity
		return nil
	})
	return pos, vel, err
}

// Set3DMinMaxDistance sets the range the rolloff curve spans.
func (c Channel) Set3DMinMaxDistance(minDist, maxDist float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.minDist = max(minDist, 0)
		rec.maxDist = max(maxDist, rec.minDist)
		return nil
	})
}

func (c Channel) Get3DMinMaxDistance() (minDist, maxDist float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		minDist, maxDist = rec.minDist, rec.maxDist
		return nil
	})
	return minDist, maxDist, err
}

// Set3DOcclusion adds occlusion on top of what registered geometry
// computes, 0 open to 1 blocked.
func (c Channel) Set3DOcclusion(direct, reverb float64) error {
	return c.with(func(_ *System, rec *channelState) error {
		rec.occDirect = utils.Clamp(direct, 0, 1)
		rec.occReverb = utils.Clamp(reverb, 0, 1)
		return nil
	})
}

func (c Channel) Get3DOcclusion() (direct, reverb float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		direct, reverb = rec.occDirect, rec.occReverb
		return nil
	})
	return direct, reverb, err
}

// SetChannelGroup moves the channel; the zero ChannelGroup means master.
func (c Channel) SetChannelGroup(g ChannelGroup) error {
	return c.with(func(s *System, rec *channelState) error {
		gh, _, err := s.group(g)
		if err != nil {
			return err
		}
		if err := s.queue.reserve(1); err != nil {
			return err
		}
		if err := s.moveChannel(c.h, rec, gh); err != nil {
			return err
		}
		s.graphChanged()
		return nil
	})
}

func (c Channel) ChannelGroup() (g ChannelGroup, err error) {
	err = c.with(func(s *System, rec *channelState) error {
		g = ChannelGroup{sys: s, h: rec.group}
		return nil
	})
	return g, err
}

// IsVirtual reports whether the last tick left the channel unmixed.
func (c Channel) IsVirtual() (v bool, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		v = rec.virtual
		return nil
	})
	return v, err
}

// Audibility returns the gain the virtualizer ranked the channel by.
func (c Channel) Audibility() (a float64, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		a = rec.audibility
		return nil
	})
	return a, err
}

// CurrentSound returns the playing sound, nil for DSP channels.
func (c Channel) CurrentSound() (snd *Sound, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		snd = rec.sound
		return nil
	})
	return snd, err
}

// AddDSP inserts d into the channel's chain at index, clamped so the
// channel fader stays first.
func (c Channel) AddDSP(index int, d DSP) error {
	return c.with(func(s *System, rec *channelState) error {
		if d.sys != s {
			return ErrInvalidHandle
		}
		chain, err := s.insertDSP(rec.chain, 0, index, d, dspOwner{channel: c.h})
		if err != nil {
			return err
		}
		rec.chain = chain
		return nil
	})
}

func (c Channel) RemoveDSP(d DSP) error {
	return c.with(func(s *System, rec *channelState) error {
		if d.sys != s {
			return ErrInvalidHandle
		}
		chain, err := s.removeDSP(rec.chain, d)
		if err != nil {
			return err
		}
		rec.chain = chain
		return nil
	})
}

// DSP returns the unit at index; index 0 is the channel fader.
func (c Channel) DSP(index int) (d DSP, err error) {
	err = c.with(func(s *System, rec *channelState) error {
		if index < 0 || index >= len(rec.chain) {
			return ErrDSPIndex
		}
		d = DSP{sys: s, h: rec.chain[index]}
		return nil
	})
	return d, err
}

func (c Channel) NumDSPs() (n int, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		n = len(rec.chain)
		return nil
	})
	return n, err
}

func (c Channel) DSPIndex(d DSP) (index int, err error) {
	err = c.with(func(_ *System, rec *channelState) error {
		index = slices.Index(rec.chain, d.h)
		if index < 0 {
			return ErrDSPIndex
		}
		return nil
	})
	return index, err
}
