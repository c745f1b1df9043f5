// SPDX-License-Identifier: EPL-2.0

//go:build headless

package otosink

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ik5/audmix/mixer"
)

const headlessPeriod = 10 * time.Millisecond

// Player pulls from the mixer in real time without an audio device.
type Player struct {
	mtx     sync.Mutex
	reader  *Reader
	rate    int
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func New(sys *mixer.System, _ time.Duration, log *slog.Logger) (*Player, error) {
	rate, _ := sys.SoftwareFormat()
	return &Player{reader: NewReader(sys, log), rate: rate}, nil
}

func (p *Player) Start() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.started {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.started = true
	go p.run(p.stop, p.done)
}

func (p *Player) run(stop, done chan struct{}) {
	defer close(done)

	frames := max(p.rate*int(headlessPeriod/time.Millisecond)/1000, 1)
	buf := make([]byte, frames*4*p.reader.channels)

	t := time.NewTicker(headlessPeriod)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			_, _ = p.reader.Read(buf)
		}
	}
}

func (p *Player) Stop() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if !p.started {
		return
	}
	close(p.stop)
	<-p.done
	p.started = false
}

func (p *Player) IsStarted() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.started
}

func (p *Player) Err() error { return nil }

func (p *Player) Close() error {
	p.Stop()
	return nil
}
