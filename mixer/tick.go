// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"slices"
	"time"

	"github.com/ik5/audmix/spatial"
)

// Tick mixes frames frames into out as interleaved float32 in the
// system's speaker layout. Requests longer than the DSP buffer length run
// block by block, each one planned, mixed and published on its own.
//
// Planning and publishing hold the system lock; mixing does not, so
// control calls made meanwhile take effect at the next block.
func (s *System) Tick(out []float32, frames int) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	outCh, block, rate := s.outCh, s.cfg.DSPBufferLength, s.cfg.SampleRate
	s.mu.Unlock()

	if frames <= 0 {
		return nil
	}
	if len(out) < frames*outCh {
		return ErrBufferSize
	}

	var spent time.Duration
	for done := 0; done < frames; {
		n := min(block, frames-done)

		s.mu.Lock()
		s.plan()
		s.mu.Unlock()

		start := time.Now()
		s.mix(out[done*outCh:(done+n)*outCh], n)
		spent += time.Since(start)

		s.mu.Lock()
		s.publish()
		s.mu.Unlock()

		done += n
	}

	s.mu.Lock()
	s.cpu = spent.Seconds() * float64(rate) / float64(frames)
	s.mu.Unlock()

	return nil
}

// plan applies queued commands and control state to the render side.
// Called with mu held.
func (s *System) plan() {
	if n := s.queue.refused; n > 0 {
		s.log.Warn("command queue overflowed", "refused", n, "limit", s.queue.limit)
	}
	for _, c := range s.queue.drain() {
		switch c.kind {
		case cmdStart:
			s.voices = append(s.voices, c.v)
		case cmdStop:
			s.dropVoice(c.v)
		}
	}

	for _, h := range s.detached {
		if u, ok := s.graph.Unit(h); ok {
			u.SetSuspended(false)
			u.SetOutputGain(1)
		}
	}
	s.detached = s.detached[:0]

	s.graph.Sync()
	s.resolveGroup(s.master, 1, 1, false)
	s.rank()
	s.place()

	if m, ok := s.groups.Get(s.master); ok {
		s.masterUnit, _ = s.graph.Unit(m.head())
	}

	if s.reverbs.Len() > 0 {
		s.zones = s.collectZones(s.zones)
		if len(s.weights) < len(s.zones) {
			s.weights = make([]float64, len(s.zones))
		}
		s.reverb = spatial.BlendReverb(s.zones, s.ambient, s.listener.Position, s.weights)
	} else {
		s.reverb = s.ambient
	}
}

func (s *System) dropVoice(v *voice) {
	if i := slices.Index(s.voices, v); i >= 0 {
		s.voices = slices.Delete(s.voices, i, i+1)
	}
}

// place sets each voice's rate, pan and chain gains for the block.
func (s *System) place() {
	rate := float64(s.cfg.SampleRate)

	for i := range s.cands {
		c := &s.cands[i]
		v, rec, g := c.v, c.rec, c.group

		if rec.seekPending {
			v.pos = rec.seekTo
			v.needSeek = true
			rec.seekPending = false
		}
		if rec.loopDirty {
			v.setLoop(rec.mode&ModeLoopNormal != 0, rec.loopStart, rec.loopEnd, rec.loopCount)
			rec.loopDirty = false
		}

		v.paused = rec.paused || g.effPaused
		suspended := v.paused || !v.real
		for _, h := range rec.chain {
			if u, ok := s.graph.Unit(h); ok {
				u.SetSuspended(suspended)
			}
		}

		v.tail, _ = s.graph.Unit(rec.chain[len(rec.chain)-1])
		v.setRatio(rec.frequency * rec.pitch * g.effPitch * v.doppler / rate)

		if suspended {
			continue
		}

		gain := rec.volume
		if rec.mute {
			gain = 0
		}
		if v.threeD {
			direct := rec.occDirect
			if len(s.geometries) > 0 && rec.mode&Mode3DHeadRelative == 0 {
				geo, _ := spatial.Occlude(s.geometries, s.listener.Position, rec.position)
				direct = 1 - (1-direct)*(1-geo)
			}
			gain *= v.atten * (1 - direct)
		}
		if head, ok := s.graph.Unit(rec.chain[0]); ok {
			head.SetOutputGain(float32(gain))
		}

		v.pan(s.cfg.SpeakerMode, s.outCh, v.threeD, v.azimuth, rec.pan)
	}
}

// mix renders one block. It runs without the lock and touches render
// state only.
func (s *System) mix(out []float32, frames int) {
	for _, v := range s.voices {
		if v.real {
			v.render(frames, s.outCh)
		} else {
			v.advance(frames)
		}
	}
	if n := copy(out, s.graph.Run(frames, s.masterUnit)); n < len(out) {
		clear(out[n:])
	}
}

// publish copies render results back and retires finished channels.
// Called with mu held.
func (s *System) publish() {
	s.graph.Publish()

	real := 0
	for i := 0; i < len(s.voices); {
		v := s.voices[i]
		rec, ok := s.channels.Get(v.h)
		if !ok || rec.v != v {
			// stopped while the block was mixing
			s.voices = slices.Delete(s.voices, i, i+1)
			continue
		}

		if !rec.seekPending {
			rec.pos = v.pos
		}
		if v.real {
			real++
		}

		if !v.ended {
			i++
			continue
		}

		s.voices = slices.Delete(s.voices, i, i+1)
		ev := Event{Kind: EventChannelEnd, Channel: Channel{sys: s, h: v.h}}
		if v.err != nil {
			ev.Kind = EventChannelError
			ev.Err = fmt.Errorf("%w: %w", ErrDecode, v.err)
			s.log.Warn("channel stopped by decode failure", "channel", v.h.String(), "error", v.err)
		}
		s.detachChannel(v.h, rec)
		s.events.push(ev)
	}
	s.realCount = real
}
