// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"io"
	"sync"

	"github.com/ik5/audmix/audio"
)

// seekRetries bounds the empty decoder reads SeekFrame puts up with.
const seekRetries = 4

// stream prefetches a decoder on its own goroutine into a ring buffer.
// ReadSamples never blocks: an empty ring is a short read with a nil
// error, which the mixer pads with silence. SeekFrame decodes on the
// caller's goroutine until the prefill is buffered.
type stream struct {
	src      audio.Source
	seeker   audio.Seeker
	channels int

	// srcMtx serializes decoder access between the prefetcher and
	// SeekFrame; take it before mtx
	srcMtx sync.Mutex

	mtx  sync.Mutex
	ring []float32
	head int
	size int
	eof  bool
	err  error
	// epoch changes on every external seek; decoded data from an older
	// epoch is dropped
	epoch uint64
	seek  int64
	// frames decoded since the last seek
	pos int64
	// samples SeekFrame waits for
	prefill int

	looping   bool
	loopStart int64
	loopEnd   int64
	loops     int

	chunk []float32
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newStream(src audio.Source, frames int) *stream {
	chans := max(src.Channels(), 1)
	frames = max(frames, 1)

	size := src.BufSize()
	if size < chans {
		size = 4096
	}
	size -= size % chans
	size = min(size, frames*chans)

	s := &stream{
		src:      src,
		channels: chans,
		ring:     make([]float32, frames*chans),
		seek:     -1,
		loops:    -1,
		prefill:  size,
		chunk:    make([]float32, size),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.seeker, _ = src.(audio.Seeker)

	s.wg.Add(1)
	go s.run()
	s.notify()

	return s
}

func (s *stream) SampleRate() int                  { return s.src.SampleRate() }
func (s *stream) Channels() int                    { return s.channels }
func (s *stream) BufSize() int                     { return len(s.chunk) }
func (s *stream) Frames() int64                    { return audio.FramesOf(s.src) }
func (s *stream) SampleFormat() audio.SampleFormat { return audio.FormatOf(s.src) }

// Close stops prefetching and closes the decoder.
func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.src.Close()
	})
	return err
}

func (s *stream) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stream) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.fill()
	}
}

// fill decodes until the ring is full, the source ends or runs dry.
func (s *stream) fill() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.srcMtx.Lock()
		more := s.step()
		s.srcMtx.Unlock()

		if !more {
			return
		}
	}
}

// step runs a pending seek or decodes one chunk into the ring. It reports
// false once the ring is full, the source ended or came up empty. Called
// with srcMtx held.
func (s *stream) step() bool {
	s.mtx.Lock()
	if s.seek >= 0 {
		frame := s.seek
		s.seek = -1
		epoch := s.epoch
		s.mtx.Unlock()

		err := s.seeker.SeekFrame(frame)

		s.mtx.Lock()
		if epoch == s.epoch {
			if err != nil {
				s.err, s.eof = err, true
			} else {
				s.pos = frame
			}
		}
		s.mtx.Unlock()
		return true
	}

	if s.eof || len(s.ring)-s.size < len(s.chunk) {
		s.mtx.Unlock()
		return false
	}

	want := len(s.chunk)
	if s.looping && s.loopEnd > s.pos {
		want = min(want, int(s.loopEnd-s.pos)*s.channels)
	}
	epoch := s.epoch
	s.mtx.Unlock()

	n, err := s.src.ReadSamples(s.chunk[:want])
	n -= n % s.channels

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if epoch != s.epoch {
		return true
	}

	s.write(s.chunk[:n])
	s.pos += int64(n / s.channels)

	switch {
	case err == io.EOF:
		s.wrap(true)
	case err != nil:
		s.err, s.eof = err, true
	case s.looping && s.loopEnd > 0 && s.pos >= s.loopEnd:
		s.wrap(false)
	}
	return n > 0 || err != nil
}

// wrap jumps back to the loop start while loops are left. Called with the
// lock held.
func (s *stream) wrap(atEOF bool) {
	if s.looping && s.loops != 0 && s.seeker != nil {
		if s.loops > 0 {
			s.loops--
		}
		s.seek = s.loopStart
		return
	}
	s.looping = false
	if atEOF {
		s.eof = true
	}
}

func (s *stream) write(samples []float32) {
	for len(samples) > 0 {
		tail := (s.head + s.size) % len(s.ring)
		n := copy(s.ring[tail:min(len(s.ring), tail+len(s.ring)-s.size)], samples)
		s.size += n
		samples = samples[n:]
	}
}

func (s *stream) read(dst []float32) int {
	want := min(len(dst), s.size)
	want -= want % s.channels

	n := 0
	for n < want {
		k := copy(dst[n:want], s.ring[s.head:])
		s.head = (s.head + k) % len(s.ring)
		s.size -= k
		n += k
	}
	return n
}

func (s *stream) ReadSamples(dst []float32) (int, error) {
	s.mtx.Lock()
	n := s.read(dst)
	finished := s.eof && s.size == 0
	err := s.err
	s.mtx.Unlock()

	s.notify()

	if n == 0 && finished {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return n, nil
}

// SeekFrame drops everything buffered, moves the decoder to frame and
// decodes at least the prefill amount before returning, so the next read
// starts at frame.
func (s *stream) SeekFrame(frame int64) error {
	if s.seeker == nil {
		return audio.ErrNotSeekable
	}
	if frame < 0 {
		return audio.ErrSeekRange
	}
	if n := s.Frames(); n >= 0 && frame > n {
		return audio.ErrSeekRange
	}

	s.srcMtx.Lock()
	defer s.srcMtx.Unlock()

	s.mtx.Lock()
	s.epoch++
	s.seek = frame
	s.head, s.size = 0, 0
	s.eof, s.err = false, nil
	need := min(s.prefill, len(s.ring))
	s.mtx.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}

	for empty := 0; empty < seekRetries; {
		more := s.step()

		s.mtx.Lock()
		ready := s.seek < 0 && (s.size >= need || s.eof || len(s.ring)-s.size < len(s.chunk))
		s.mtx.Unlock()
		if ready {
			break
		}
		if !more {
			empty++
		}
	}

	s.notify()
	return nil
}

// setPrefill sets how many frames SeekFrame decodes before returning.
func (s *stream) setPrefill(frames int) {
	s.mtx.Lock()
	s.prefill = max(frames, 1) * s.channels
	s.mtx.Unlock()
}

// setLoop configures looping between start and end frames; end 0 loops at
// the end of the source. count < 0 loops forever.
func (s *stream) setLoop(on bool, start, end int64, count int) {
	s.mtx.Lock()
	s.looping = on
	s.loopStart, s.loopEnd = max(start, 0), max(end, 0)
	s.loops = count
	if count < 0 {
		s.loops = -1
	}
	s.mtx.Unlock()

	s.notify()
}

// buffered reports the frames ready to read.
func (s *stream) buffered() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.size / s.channels
}
