// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"io"
	"math"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/spatial"
)

type spreadMode uint8

const (
	// source channel c goes to output channel c
	spreadDirect spreadMode = iota
	// source is folded to mono and panned across the outputs
	spreadMono
)

// voice is the render side of a channel. The tick owns it; control calls
// reach it only through the plan, which runs under the system lock before
// mixing starts.
type voice struct {
	h arena.Handle

	rs     *audio.Resampler // nil for channels playing a DSP
	cursor *audio.Cursor
	stream *stream
	srcCh  int
	length int64 // frames, -1 when unknown

	ratio    float64
	real     bool
	paused   bool
	planned  bool
	needSeek bool
	mode     spreadMode
	gains    []float32
	tail     *dsp.Unit

	threeD  bool
	azimuth float64
	atten   float64
	doppler float64

	looping   bool
	loopStart int64
	loopEnd   int64
	loopsLeft int

	// position in source frames, advanced by elapsed time in both states
	pos   float64
	ended bool
	err   error

	scratch []float32
	mono    []float32
}

func newVoice(h arena.Handle, src audio.Source, outRate, outCh, maxFrames int) *voice {
	v := &voice{
		h:       h,
		srcCh:   1,
		length:  -1,
		ratio:   1,
		atten:   1,
		doppler: 1,
		gains:   make([]float32, outCh),
	}
	if src == nil {
		return v
	}

	v.srcCh = max(src.Channels(), 1)
	v.length = audio.FramesOf(src)
	v.rs = audio.NewResampler(src, outRate)
	v.ratio = v.rs.Ratio()
	v.scratch = make([]float32, maxFrames*v.srcCh)
	v.mono = make([]float32, maxFrames)

	switch s := src.(type) {
	case *audio.Cursor:
		v.cursor = s
	case *stream:
		v.stream = s
		// start from a filled ring instead of racing the prefetcher
		v.needSeek = s.seeker != nil
	}
	return v
}

// setLoop applies a loop region to the tracked position and the source.
// end <= start loops the whole sound. Sounds of unknown length only loop
// at the source; the tracked position keeps growing.
func (v *voice) setLoop(on bool, start, end int64, count int) {
	if v.length > 0 {
		if end <= start || end > v.length {
			end = v.length
		}
		start = min(max(start, 0), end-1)
	}
	if count < 0 {
		count = -1
	}
	v.looping = on
	v.loopStart, v.loopEnd, v.loopsLeft = start, end, count

	switch {
	case v.cursor != nil && v.looping:
		v.cursor.SetLoop(start, end)
		v.cursor.SetLoopCount(count)
	case v.cursor != nil:
		v.cursor.SetLoop(0, 0)
	case v.stream != nil:
		if end == v.length {
			end = 0
		}
		v.stream.setLoop(v.looping, start, end, count)
	}
}

// seek moves the source to the tracked position. A stream decodes enough
// for a block of frames output frames before the seek returns.
func (v *voice) seek(frames int) {
	v.needSeek = false
	if v.rs == nil {
		return
	}
	if v.stream != nil {
		v.stream.setPrefill(int(math.Ceil(float64(frames)*v.ratio)) + 4)
	}
	whole, frac := math.Modf(v.pos)
	if err := v.rs.SeekFrame(int64(whole), frac); err != nil {
		return
	}
	if v.cursor != nil {
		if v.looping {
			v.cursor.SetLoopCount(v.loopsLeft)
		} else {
			v.cursor.SetLoop(0, 0)
		}
	}
}

// render mixes one block of a Real voice into its chain's feed.
func (v *voice) render(frames, outCh int) {
	if v.paused {
		return
	}
	if v.rs != nil && !v.ended && v.tail != nil {
		if v.needSeek {
			v.seek(frames)
		}

		want := frames * v.srcCh
		buf := v.scratch[:want]
		got := 0
		for got < want {
			n, err := v.rs.ReadSamples(buf[got:])
			got += n
			if errors.Is(err, io.EOF) {
				v.ended = true
				break
			}
			if err != nil {
				v.err = err
				v.ended = true
				break
			}
			if n == 0 {
				// the stream fell behind; catch up with the tracked
				// position next block
				v.needSeek = v.stream != nil && v.stream.seeker != nil
				break
			}
		}
		clear(buf[got:])

		v.spread(v.tail.Feed(frames), buf, frames, outCh)
	}
	v.advance(frames)
}

func (v *voice) spread(dst, src []float32, frames, outCh int) {
	switch v.mode {
	case spreadDirect:
		for i := range frames * outCh {
			dst[i] += src[i] * v.gains[i%outCh]
		}
	case spreadMono:
		mono := src[:frames]
		if v.srcCh > 1 {
			audio.DownmixMono(v.mono[:frames], src, v.srcCh)
			mono = v.mono[:frames]
		}
		for i, s := range mono {
			base := i * outCh
			for c := range outCh {
				dst[base+c] += s * v.gains[c]
			}
		}
	}
}

// advance moves the tracked position by the time the block covers.
func (v *voice) advance(frames int) {
	if v.paused {
		return
	}
	v.pos += float64(frames) * v.ratio

	for v.looping && v.loopEnd > v.loopStart && v.pos >= float64(v.loopEnd) {
		if v.loopsLeft == 0 {
			v.looping = false
			break
		}
		if v.loopsLeft > 0 {
			v.loopsLeft--
		}
		v.pos -= float64(v.loopEnd - v.loopStart)
	}

	if v.length >= 0 && v.pos >= float64(v.length) {
		v.pos = float64(v.length)
		if !v.real {
			v.ended = true
		}
	}
}

// setRatio changes the playback rate in source frames per output frame.
func (v *voice) setRatio(r float64) {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return
	}
	v.ratio = r
	if v.rs != nil {
		v.rs.SetRatio(r)
	}
}

// pan fills the per-output gains. threeD voices are placed by azimuth with
// constant power; 2D voices use a balance law so a centred pan is unity.
func (v *voice) pan(mode spatial.SpeakerMode, outCh int, threeD bool, azimuth, pan float64) {
	clear(v.gains)

	switch {
	case threeD:
		v.mode = spreadMono
		spatial.PanGains(mode, azimuth, v.gains)
	case v.srcCh == outCh:
		v.mode = spreadDirect
		for c := range v.gains {
			v.gains[c] = 1
		}
		if outCh == 2 {
			v.gains[0], v.gains[1] = spatial.BalancePan(pan)
		}
	default:
		v.mode = spreadMono
		if outCh == 1 {
			v.gains[0] = 1
			return
		}
		v.gains[0], v.gains[1] = spatial.BalancePan(pan)
	}
}
