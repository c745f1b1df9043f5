// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/spatial"
	"github.com/ik5/audmix/utils"
)

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateClosed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// System owns every channel, group, DSP unit and sound, and produces the
// mixed output one block at a time.
//
// Control calls may come from any goroutine; they take the system lock,
// validate, and record structural changes for the next tick. Tick, or
// Update with an attached Sink, should be driven from one goroutine.
type System struct {
	// mu guards the logical model
	mu sync.Mutex
	// tickMu serializes ticks with lifecycle changes and LockDSP
	tickMu sync.Mutex
	// set while LockDSP holds tickMu
	dspLocked atomic.Bool

	cfg      Config
	log      *slog.Logger
	registry *audio.Registry
	state    State
	flags    InitFlags

	realLimit int
	outCh     int

	graph    *dsp.Graph
	channels *arena.Arena[channelState]
	groups   *arena.Arena[groupState]
	reverbs  *arena.Arena[reverbState]
	owners   map[arena.Handle]dspOwner
	sounds   map[*Sound]struct{}
	master   arena.Handle
	seq      uint64

	geometries []*spatial.Geometry
	listener   spatial.Listener
	rolloffFn  spatial.RolloffFunc
	ambient    spatial.ReverbProperties
	reverb     spatial.ReverbProperties

	queue  commandQueue
	events *eventQueue
	sink   Sink

	// units that left a chain since the last tick
	detached []arena.Handle

	// render side, touched by the tick only
	voices     []*voice
	cands      []candidate
	sortBuf    []candidate
	masterUnit *dsp.Unit
	zones      []spatial.ReverbZone
	weights    []float64
	block      []float32

	cpu       float64
	realCount int
}

// NewSystem returns an uninitialized system built from cfg.
func NewSystem(cfg Config) *System {
	cfg = cfg.normalized()

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = formats.NewRegistry()
	}

	return &System{
		cfg:      cfg,
		log:      log.With("component", "mixer"),
		registry: reg,
		events:   newEventQueue(cfg.EventBuffer),
		listener: spatial.DefaultListener(),
		ambient:  spatial.ReverbOff(),
		reverb:   spatial.ReverbOff(),
	}
}

// ready reports whether control calls are allowed. Called with mu held.
func (s *System) ready() error {
	switch s.state {
	case StateInitialized:
		return nil
	case StateReleased:
		return ErrReleased
	default:
		return ErrNotInitialized
	}
}

// configurable reports whether pre-initialization settings may change.
func (s *System) configurable() error {
	switch s.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateReleased:
		return ErrReleased
	default:
		return nil
	}
}

func (s *System) setState(st State) {
	s.state = st
	s.events.push(Event{Kind: EventStateChanged, State: st})
}

// Initialize builds the mixing graph and the channel pool. maxChannels is
// the number of channels mixed at once; values <= 0 use the configured
// MaxChannels and everything is clamped to [1, MaxChannelCeiling].
// A closed system may be initialized again.
func (s *System) Initialize(flags InitFlags, maxChannels int) error {
	if s.dspLocked.Load() {
		return ErrDSPLocked
	}
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.configurable(); err != nil {
		return err
	}

	if maxChannels <= 0 {
		maxChannels = s.cfg.MaxChannels
	}
	maxChannels = utils.Clamp(maxChannels, 1, MaxChannelCeiling)
	pool := utils.Clamp(max(s.cfg.ChannelPool, maxChannels), 1, MaxChannelCeiling)

	s.flags = flags
	s.realLimit = maxChannels
	s.outCh = s.cfg.SpeakerMode.Channels()

	s.graph = dsp.NewGraph(s.cfg.SampleRate, s.outCh, s.cfg.DSPBufferLength)
	s.channels = arena.NewBounded[channelState](pool)
	s.groups = arena.New[groupState](8)
	s.reverbs = arena.New[reverbState](4)
	s.owners = make(map[arena.Handle]dspOwner)
	s.sounds = make(map[*Sound]struct{})
	s.geometries = nil
	s.detached = nil
	s.queue = newCommandQueue(s.cfg.QueueSize)

	s.voices = make([]*voice, 0, pool)
	s.cands = make([]candidate, 0, pool)
	s.sortBuf = make([]candidate, pool)
	s.block = make([]float32, s.cfg.DSPBufferLength*s.outCh)
	s.zones, s.weights = nil, nil
	s.cpu, s.realCount = 0, 0
	s.reverb = s.ambient

	master, err := s.newGroup("master", arena.Handle{})
	if err != nil {
		return err
	}
	s.master = master
	s.graph.Sync()

	s.setState(StateInitialized)
	s.log.Info("mixer initialized",
		"sample_rate", s.cfg.SampleRate,
		"speaker_mode", s.cfg.SpeakerMode.String(),
		"max_channels", maxChannels,
		"channel_pool", pool,
		"block", s.cfg.DSPBufferLength,
	)

	return nil
}

// Close stops every channel, releases every sound and drops the graph.
func (s *System) Close() error {
	if s.dspLocked.Load() {
		return ErrDSPLocked
	}
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.teardown()
	s.setState(StateClosed)
	s.log.Info("mixer closed")

	return nil
}

func (s *System) teardown() {
	for snd := range s.sounds {
		snd.released = true
		snd.users = 0
		snd.close()
	}

	s.sounds = nil
	s.graph = nil
	s.channels = nil
	s.groups = nil
	s.reverbs = nil
	s.owners = nil
	s.geometries = nil
	s.voices = nil
	s.cands, s.sortBuf = nil, nil
	s.masterUnit = nil
	s.master = arena.Handle{}
	s.queue = commandQueue{}
}

// Release closes the system if needed and ends every subscription. It is
// allowed in any state, except while LockDSP is held, and the system
// cannot be used afterwards.
func (s *System) Release() error {
	if s.dspLocked.Load() {
		return ErrDSPLocked
	}
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReleased {
		return nil
	}
	if s.state == StateInitialized {
		s.teardown()
	}
	s.setState(StateReleased)
	s.events.closeAll()
	s.log.Info("mixer released")

	return nil
}

func (s *System) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetSoftwareChannels changes the default real-voice limit. Only allowed
// before Initialize.
func (s *System) SetSoftwareChannels(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.configurable(); err != nil {
		return err
	}
	s.cfg.MaxChannels = utils.Clamp(n, 1, MaxChannelCeiling)
	return nil
}

func (s *System) SoftwareChannels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInitialized {
		return s.realLimit
	}
	return s.cfg.MaxChannels
}

// SetSoftwareFormat changes the output rate and speaker layout. Only
// allowed before Initialize.
func (s *System) SetSoftwareFormat(sampleRate int, mode spatial.SpeakerMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.configurable(); err != nil {
		return err
	}
	if sampleRate > 0 {
		s.cfg.SampleRate = sampleRate
	}
	s.cfg.SpeakerMode = mode
	return nil
}

func (s *System) SoftwareFormat() (sampleRate int, mode spatial.SpeakerMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SampleRate, s.cfg.SpeakerMode
}

// SpeakerModeChannels returns the interleaved channel count of the output.
func (s *System) SpeakerModeChannels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SpeakerMode.Channels()
}

// SetStreamBufferSize sets how much decoded audio each stream prefetches.
// Only allowed before Initialize.
func (s *System) SetStreamBufferSize(size int, unit TimeUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.configurable(); err != nil {
		return err
	}
	if size > 0 {
		s.cfg.StreamBufferSize = size
		s.cfg.StreamBufferUnit = unit
	}
	return nil
}

func (s *System) StreamBufferSize() (int, TimeUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.StreamBufferSize, s.cfg.StreamBufferUnit
}

// SetDSPBufferSize sets the block length in frames. Only allowed before
// Initialize.
func (s *System) SetDSPBufferSize(frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.configurable(); err != nil {
		return err
	}
	if frames > 0 {
		s.cfg.DSPBufferLength = frames
	}
	return nil
}

func (s *System) DSPBufferSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DSPBufferLength
}

// CPUUsage returns the share of real time the last tick spent mixing;
// 1 means mixing took as long as the audio it produced.
func (s *System) CPUUsage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpu
}

// ChannelsPlaying returns the live channel count and how many of them
// were mixed by the last tick.
func (s *System) ChannelsPlaying() (total, real int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	return s.channels.Len(), s.realCount, nil
}

// LockDSP holds off the next tick so a batch of changes lands in the same
// block. Keep it short: the output stalls while it is held. Control calls
// stay usable; Initialize, Close and Release fail with ErrDSPLocked until
// UnlockDSP. The lock is not reentrant.
func (s *System) LockDSP() {
	s.tickMu.Lock()
	s.dspLocked.Store(true)
}

func (s *System) UnlockDSP() {
	s.dspLocked.Store(false)
	s.tickMu.Unlock()
}

// PollEvents returns and forgets every event queued since the last call.
func (s *System) PollEvents() []Event { return s.events.poll() }

// Subscribe returns a channel receiving every future event. Events are
// dropped for a subscriber whose buffer is full. cancel closes the
// channel; Release closes all of them.
func (s *System) Subscribe(buffer int) (events <-chan Event, cancel func()) {
	return s.events.subscribe(buffer)
}

// DroppedEvents counts events PollEvents lost to a full queue.
func (s *System) DroppedEvents() uint64 { return s.events.droppedCount() }

// SetOutput attaches the sink Update pushes blocks to; nil detaches.
func (s *System) SetOutput(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Update mixes one block and writes it to the attached sink.
func (s *System) Update() error {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	sink, buf, outCh := s.sink, s.block, s.outCh
	s.mu.Unlock()

	if err := s.Tick(buf, len(buf)/outCh); err != nil {
		return err
	}
	if sink == nil {
		return nil
	}
	if err := sink.Write(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	return nil
}

// RegisterDecoder adds or replaces the decoder used for a format key.
func (s *System) RegisterDecoder(format string, d audio.Decoder) {
	s.registry.Register(format, d)
}
