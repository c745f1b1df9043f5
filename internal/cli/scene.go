// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

var (
	ErrSceneSound = errors.New("scene: unknown sound")
	ErrSceneGroup = errors.New("scene: unknown group")
	ErrSceneValue = errors.New("scene: bad value")
)

// Scene describes what to play: sounds to load, a group tree, the
// channels to start and the reverb zones around the listener.
type Scene struct {
	Seconds  float64       `mapstructure:"seconds"`
	Listener ListenerSpec  `mapstructure:"listener"`
	Ambient  string        `mapstructure:"ambient"`
	Sounds   []SoundSpec   `mapstructure:"sounds"`
	Groups   []GroupSpec   `mapstructure:"groups"`
	Channels []ChannelSpec `mapstructure:"channels"`
	Reverbs  []ReverbSpec  `mapstructure:"reverbs"`
}

type ListenerSpec struct {
	Position []float64 `mapstructure:"position"`
	Forward  []float64 `mapstructure:"forward"`
}

type SoundSpec struct {
	Name      string   `mapstructure:"name"`
	File      string   `mapstructure:"file"`
	Mode      []string `mapstructure:"mode"`
	LoopCount *int     `mapstructure:"loop_count"`
}

type GroupSpec struct {
	Name   string    `mapstructure:"name"`
	Parent string    `mapstructure:"parent"`
	Volume *float64  `mapstructure:"volume"`
	Pitch  *float64  `mapstructure:"pitch"`
	Mute   bool      `mapstructure:"mute"`
	DSPs   []DSPSpec `mapstructure:"dsps"`
}

// ChannelSpec starts either a sound or, with Tone set, a generator unit.
type ChannelSpec struct {
	Sound    string    `mapstructure:"sound"`
	Tone     *DSPSpec  `mapstructure:"tone"`
	Group    string    `mapstructure:"group"`
	Mode     []string  `mapstructure:"mode"`
	Volume   *float64  `mapstructure:"volume"`
	Pan      float64   `mapstructure:"pan"`
	Pitch    *float64  `mapstructure:"pitch"`
	Priority *int      `mapstructure:"priority"`
	Position []float64 `mapstructure:"position"`
	Velocity []float64 `mapstructure:"velocity"`
	DSPs     []DSPSpec `mapstructure:"dsps"`
}

type DSPSpec struct {
	Type   string             `mapstructure:"type"`
	Params map[string]float64 `mapstructure:"params"`
	Bypass bool               `mapstructure:"bypass"`
}

type ReverbSpec struct {
	Preset   string    `mapstructure:"preset"`
	Position []float64 `mapstructure:"position"`
	Min      float64   `mapstructure:"min"`
	Max      float64   `mapstructure:"max"`
}

// LoadScene reads a scene file in any format viper understands.
func LoadScene(path string) (*Scene, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}

	var sc Scene
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return &sc, nil
}

// Stage is a scene built into a running system.
type Stage struct {
	sys      *mixer.System
	sounds   map[string]*mixer.Sound
	groups   map[string]mixer.ChannelGroup
	channels []mixer.Channel
}

// Build loads every sound in parallel, then creates groups, reverbs and
// channels in file order. DSP lists run in the order written. Relative paths resolve against dir. Channels
// start together, after all of them are configured.
func Build(ctx context.Context, sys *mixer.System, sc *Scene, dir string) (*Stage, error) {
	st := &Stage{
		sys:    sys,
		sounds: make(map[string]*mixer.Sound, len(sc.Sounds)),
		groups: make(map[string]mixer.ChannelGroup, len(sc.Groups)),
	}
	if err := st.loadSounds(ctx, sc.Sounds, dir); err != nil {
		return nil, err
	}

	if err := st.build(sc); err != nil {
		st.Release()
		return nil, err
	}
	return st, nil
}

func (st *Stage) build(sc *Scene) error {
	if err := st.placeListener(sc.Listener); err != nil {
		return err
	}
	if sc.Ambient != "" {
		p, err := spatial.Preset(sc.Ambient)
		if err != nil {
			return fmt.Errorf("ambient %q: %w", sc.Ambient, err)
		}
		if err := st.sys.SetReverbAmbient(p); err != nil {
			return err
		}
	}
	for _, g := range sc.Groups {
		if err := st.addGroup(g); err != nil {
			return fmt.Errorf("group %q: %w", g.Name, err)
		}
	}
	for i, r := range sc.Reverbs {
		if err := st.addReverb(r); err != nil {
			return fmt.Errorf("reverb %d: %w", i, err)
		}
	}
	for i, c := range sc.Channels {
		if err := st.addChannel(c); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
	}
	for _, ch := range st.channels {
		if err := ch.SetPaused(false); err != nil {
			return err
		}
	}
	return nil
}

func (st *Stage) loadSounds(ctx context.Context, specs []SoundSpec, dir string) error {
	loaded := make([]*mixer.Sound, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mode, err := parseMode(spec.Mode)
			if err != nil {
				return fmt.Errorf("sound %q: %w", spec.Name, err)
			}
			path := spec.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			snd, err := st.sys.OpenSound(path, mode)
			if err != nil {
				return fmt.Errorf("sound %q: %w", spec.Name, err)
			}
			loaded[i] = snd
			if spec.LoopCount != nil {
				return snd.SetLoopCount(*spec.LoopCount)
			}
			return nil
		})
	}

	err := g.Wait()
	for i, snd := range loaded {
		if snd == nil {
			continue
		}
		if err != nil {
			_ = snd.Release(true)
			continue
		}
		name := specs[i].Name
		if name == "" {
			name = snd.Name()
		}
		st.sounds[name] = snd
	}
	return err
}

func parseMode(names []string) (mixer.Mode, error) {
	m := mixer.ModeDefault
	for _, n := range names {
		switch strings.ToLower(n) {
		case "loop":
			m |= mixer.ModeLoopNormal
		case "3d":
			m |= mixer.Mode3D
		case "head-relative":
			m |= mixer.Mode3D | mixer.Mode3DHeadRelative
		case "stream":
			m |= mixer.ModeStream
		case "mono":
			m |= mixer.ModeMono
		default:
			return 0, fmt.Errorf("%w: mode %q", ErrSceneValue, n)
		}
	}
	return m, nil
}

func (st *Stage) placeListener(l ListenerSpec) error {
	pos, err := vector(l.Position)
	if err != nil {
		return fmt.Errorf("listener position: %w", err)
	}
	fwd, err := vector(l.Forward)
	if err != nil {
		return fmt.Errorf("listener forward: %w", err)
	}
	return st.sys.Set3DListenerAttributes(pos, spatial.Vector{}, fwd, spatial.Vector{})
}

func (st *Stage) group(name string) (mixer.ChannelGroup, error) {
	if name == "" || name == "master" {
		return st.sys.MasterChannelGroup()
	}
	g, ok := st.groups[name]
	if !ok {
		return mixer.ChannelGroup{}, fmt.Errorf("%w %q", ErrSceneGroup, name)
	}
	return g, nil
}

func (st *Stage) addGroup(spec GroupSpec) error {
	parent, err := st.group(spec.Parent)
	if err != nil {
		return err
	}
	g, err := st.sys.CreateChannelGroup(spec.Name)
	if err != nil {
		return err
	}
	st.groups[spec.Name] = g

	if err := parent.AddGroup(g); err != nil {
		return err
	}
	if spec.Volume != nil {
		if err := g.SetVolume(*spec.Volume); err != nil {
			return err
		}
	}
	if spec.Pitch != nil {
		if err := g.SetPitch(*spec.Pitch); err != nil {
			return err
		}
	}
	if err := g.SetMute(spec.Mute); err != nil {
		return err
	}
	for _, d := range spec.DSPs {
		u, err := st.createDSP(d)
		if err != nil {
			return err
		}
		if err := g.AddDSP(1, u); err != nil {
			_ = u.Release()
			return err
		}
	}
	return nil
}

func (st *Stage) addReverb(spec ReverbSpec) error {
	props, err := spatial.Preset(spec.Preset)
	if err != nil {
		return fmt.Errorf("preset %q: %w", spec.Preset, err)
	}
	pos, err := vector(spec.Position)
	if err != nil {
		return err
	}
	r, err := st.sys.CreateReverb3D()
	if err != nil {
		return err
	}
	if err := r.SetProperties(props); err != nil {
		return err
	}
	return r.Set3DAttributes(pos, spec.Min, spec.Max)
}

func (st *Stage) addChannel(spec ChannelSpec) error {
	g, err := st.group(spec.Group)
	if err != nil {
		return err
	}

	var ch mixer.Channel
	switch {
	case spec.Tone != nil:
		u, err := st.createDSP(*spec.Tone)
		if err != nil {
			return err
		}
		ch, err = st.sys.PlayDSP(u, g, true)
		if err != nil {
			return err
		}
	default:
		snd, ok := st.sounds[spec.Sound]
		if !ok {
			return fmt.Errorf("%w %q", ErrSceneSound, spec.Sound)
		}
		ch, err = st.sys.PlaySound(snd, g, true)
		if err != nil {
			return err
		}
	}
	st.channels = append(st.channels, ch)

	if len(spec.Mode) > 0 {
		m, err := parseMode(spec.Mode)
		if err != nil {
			return err
		}
		if err := ch.SetMode(m); err != nil {
			return err
		}
	}

	if spec.Volume != nil {
		if err := ch.SetVolume(*spec.Volume); err != nil {
			return err
		}
	}
	if spec.Pitch != nil {
		if err := ch.SetPitch(*spec.Pitch); err != nil {
			return err
		}
	}
	if spec.Priority != nil {
		if err := ch.SetPriority(*spec.Priority); err != nil {
			return err
		}
	}
	if err := ch.SetPan(spec.Pan); err != nil {
		return err
	}

	if len(spec.Position) > 0 || len(spec.Velocity) > 0 {
		pos, err := vector(spec.Position)
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		vel, err := vector(spec.Velocity)
		if err != nil {
			return fmt.Errorf("velocity: %w", err)
		}
		if err := ch.Set3DAttributes(pos, vel); err != nil {
			return err
		}
	}

	for _, d := range spec.DSPs {
		u, err := st.createDSP(d)
		if err != nil {
			return err
		}
		if err := ch.AddDSP(1, u); err != nil {
			_ = u.Release()
			return err
		}
	}
	return nil
}

func (st *Stage) createDSP(spec DSPSpec) (mixer.DSP, error) {
	kind, ok := dsp.ParseKind(strings.ToLower(spec.Type))
	if !ok || kind == dsp.KindCustom {
		return mixer.DSP{}, fmt.Errorf("%w: dsp type %q", ErrSceneValue, spec.Type)
	}
	u, err := st.sys.CreateDSP(kind)
	if err != nil {
		return mixer.DSP{}, err
	}

	for name, val := range spec.Params {
		i, ok := u.ParamIndex(name)
		if !ok {
			_ = u.Release()
			return mixer.DSP{}, fmt.Errorf("%w: %s has no parameter %q", ErrSceneValue, kind, name)
		}
		info, err := u.ParamInfo(i)
		if err != nil {
			_ = u.Release()
			return mixer.DSP{}, err
		}
		switch info.Type {
		case dsp.ParamInt:
			err = u.SetInt(i, int(val))
		case dsp.ParamBool:
			err = u.SetBool(i, val != 0)
		default:
			err = u.SetFloat(i, val)
		}
		if err != nil {
			_ = u.Release()
			return mixer.DSP{}, fmt.Errorf("%s.%s: %w", kind, name, err)
		}
	}
	if spec.Bypass {
		if err := u.SetBypass(true); err != nil {
			_ = u.Release()
			return mixer.DSP{}, err
		}
	}
	return u, nil
}

// Release stops every channel and frees the sounds.
func (st *Stage) Release() {
	for _, ch := range st.channels {
		_ = ch.Stop()
	}
	for _, snd := range st.sounds {
		_ = snd.Release(true)
	}
}

func vector(v []float64) (spatial.Vector, error) {
	switch len(v) {
	case 0:
		return spatial.Vector{}, nil
	case 3:
		return spatial.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return spatial.Vector{}, fmt.Errorf("%w: want 3 coordinates, got %d", ErrSceneValue, len(v))
	}
}
