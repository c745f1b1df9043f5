// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package otosink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audmix/mixer"
)

// Player owns the oto context. Only one may exist per process.
type Player struct {
	mtx     sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	reader  *Reader
	started bool
}

// New opens the audio device in the system's output format. bufferSize
// is the device latency; zero lets oto pick.
func New(sys *mixer.System, bufferSize time.Duration, log *slog.Logger) (*Player, error) {
	rate, mode := sys.SoftwareFormat()

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: mode.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	r := NewReader(sys, log)
	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(r),
		reader: r,
	}, nil
}

func (p *Player) Start() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

func (p *Player) Stop() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

func (p *Player) IsStarted() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.started
}

// Err reports a device failure, if any.
func (p *Player) Err() error {
	return p.ctx.Err()
}

func (p *Player) Close() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.started = false
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	if err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}
