// SPDX-License-Identifier: EPL-2.0

package mixer

import "github.com/ik5/audmix/spatial"

// candidate is one live voice as the virtualizer sees it.
type candidate struct {
	v          *voice
	rec        *channelState
	group      *groupState
	priority   int
	audibility float64
	seq        uint64
}

// before orders by priority (lower first), then audibility (louder
// first), then creation (older first).
func (c *candidate) before(o *candidate) bool {
	if c.priority != o.priority {
		return c.priority < o.priority
	}
	if c.audibility != o.audibility {
		return c.audibility > o.audibility
	}
	return c.seq < o.seq
}

// sortCandidates is a stable merge sort using buf (at least len(c) long)
// as scratch, so ranking never allocates.
func sortCandidates(c, buf []candidate) {
	if len(c) < 2 {
		return
	}
	mid := len(c) / 2
	sortCandidates(c[:mid], buf[:mid])
	sortCandidates(c[mid:], buf[mid:len(c)])
	if !c[mid].before(&c[mid-1]) {
		return
	}

	n := copy(buf, c)
	left, right := buf[:mid], buf[mid:n]
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if right[j].before(&left[i]) {
			c[k] = right[j]
			j++
		} else {
			c[k] = left[i]
			i++
		}
		k++
	}
	k += copy(c[k:], left[i:])
	copy(c[k:], right[j:])
}

// rank computes every voice's audibility, sorts them and marks the first
// realLimit as Real. With InitVol0BecomesVirtual, voices at or below the
// volume threshold go Virtual without taking a slot. Called with mu held.
func (s *System) rank() {
	s.cands = s.cands[:0]
	for _, v := range s.voices {
		rec, ok := s.channels.Get(v.h)
		if !ok {
			continue
		}
		g, ok := s.groups.Get(rec.group)
		if !ok {
			continue
		}

		s.locate(v, rec)
		aud := rec.volume * g.effVolume * v.atten
		if rec.mute {
			aud = 0
		}
		s.cands = append(s.cands, candidate{
			v:          v,
			rec:        rec,
			group:      g,
			priority:   rec.priority,
			audibility: aud,
			seq:        rec.seq,
		})
	}

	sortCandidates(s.cands, s.sortBuf)

	vol0 := s.flags&InitVol0BecomesVirtual != 0
	real := 0
	for i := range s.cands {
		c := &s.cands[i]
		isReal := real < s.realLimit && !(vol0 && c.audibility <= s.cfg.VolumeThreshold)
		if isReal {
			real++
		}
		s.transition(c, isReal)
	}
}

func (s *System) transition(c *candidate, isReal bool) {
	v := c.v
	switch {
	case v.planned && v.real != isReal && isReal:
		v.needSeek = true
		s.events.push(Event{Kind: EventChannelReal, Channel: Channel{sys: s, h: v.h}})
	case v.planned && v.real != isReal:
		s.events.push(Event{Kind: EventChannelVirtual, Channel: Channel{sys: s, h: v.h}})
	case !v.planned && !isReal:
		s.events.push(Event{Kind: EventChannelVirtual, Channel: Channel{sys: s, h: v.h}})
	}

	v.real = isReal
	v.planned = true
	c.rec.virtual = !isReal
	c.rec.audibility = c.audibility
}

// locate fills the voice's 3D state: azimuth, rolloff and doppler.
func (s *System) locate(v *voice, rec *channelState) {
	v.threeD = rec.mode&Mode3D != 0
	if !v.threeD {
		v.azimuth, v.atten, v.doppler = 0, 1, 1
		return
	}

	l := s.listener
	if rec.mode&Mode3DHeadRelative != 0 {
		l = spatial.DefaultListener()
	}

	az, d := l.Locate(rec.position, s.flags&InitRightHanded3D != 0)
	v.azimuth = az
	v.atten = spatial.Attenuation(s.cfg.Rolloff, d, rec.minDist, rec.maxDist, s.cfg.RolloffScale, s.rolloffFn)
	v.doppler = spatial.Doppler(l, rec.position, rec.velocity, s.cfg.DistanceFactor, s.cfg.DopplerScale)
}
