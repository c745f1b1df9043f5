// SPDX-License-Identifier: EPL-2.0

// Package otosink plays a mixer.System through the system audio device
// with oto. Build with the headless tag to get a device-free player that
// keeps the mixer running on a timer.
package otosink

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"

	"github.com/ik5/audmix/mixer"
)

// Reader renders the system on demand as little-endian float32 PCM. It is
// the io.Reader an oto player pulls from.
type Reader struct {
	sys      *mixer.System
	log      *slog.Logger
	channels int

	mtx    sync.Mutex
	buf    []float32
	failed bool
}

func NewReader(sys *mixer.System, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{
		sys:      sys,
		log:      log.With("component", "otosink"),
		channels: max(sys.SpeakerModeChannels(), 1),
	}
}

// Read always fills p. A tick that fails plays silence; the first failure
// is logged.
func (r *Reader) Read(p []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	n := frames * r.channels

	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	buf := r.buf[:n]

	if frames > 0 {
		if err := r.sys.Tick(buf, frames); err != nil {
			if !r.failed {
				r.log.Warn("mixer tick failed, playing silence", "error", err)
				r.failed = true
			}
			clear(buf)
		} else {
			r.failed = false
		}
	}

	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	clear(p[4*n:])

	return len(p), nil
}
