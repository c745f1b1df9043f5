// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"slices"

	"github.com/ik5/audmix/arena"
	"github.com/ik5/audmix/spatial"
)

// Set3DSettings sets the doppler scale (0 disables doppler), the number
// of world units per meter and the rolloff scale.
func (s *System) Set3DSettings(dopplerScale, distanceFactor, rolloffScale float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.cfg.DopplerScale = max(dopplerScale, 0)
	if distanceFactor > 0 {
		s.cfg.DistanceFactor = distanceFactor
	}
	if rolloffScale > 0 {
		s.cfg.RolloffScale = rolloffScale
	}
	return nil
}

func (s *System) Get3DSettings() (dopplerScale, distanceFactor, rolloffScale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.DopplerScale, s.cfg.DistanceFactor, s.cfg.RolloffScale
}

// Set3DListenerAttributes places the listener. Zero forward or up vectors
// keep the previous orientation.
func (s *System) Set3DListenerAttributes(pos, vel, forward, up spatial.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.listener.Position = pos
	s.listener.Velocity = vel
	if forward != (spatial.Vector{}) {
		s.listener.Forward = forward
	}
	if up != (spatial.Vector{}) {
		s.listener.Up = up
	}
	return nil
}

func (s *System) Get3DListenerAttributes() spatial.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Set3DRolloff selects the attenuation curve for every 3D channel.
func (s *System) Set3DRolloff(model spatial.Rolloff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.cfg.Rolloff = model
	return nil
}

// Set3DRolloffCallback installs a custom attenuation curve and selects it.
// fn runs on the mixing goroutine and must not call back into the system.
func (s *System) Set3DRolloffCallback(fn spatial.RolloffFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.rolloffFn = fn
	if fn != nil {
		s.cfg.Rolloff = spatial.RolloffCustom
	} else if s.cfg.Rolloff == spatial.RolloffCustom {
		s.cfg.Rolloff = spatial.RolloffInverse
	}
	return nil
}

// CreateGeometry returns an empty, registered occluder.
func (s *System) CreateGeometry(maxPolygons, maxVertices int) (*spatial.Geometry, error) {
	g := spatial.NewGeometry(maxPolygons, maxVertices)
	if err := s.AddGeometry(g); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGeometry decodes a blob written by Geometry.MarshalBinary and
// registers the result.
func (s *System) LoadGeometry(blob []byte) (*spatial.Geometry, error) {
	g, err := spatial.UnmarshalGeometry(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}
	if err := s.AddGeometry(g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddGeometry registers g for occlusion tests. Geometry may be edited at
// any time; changes are seen by the next tick.
func (s *System) AddGeometry(g *spatial.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if !slices.Contains(s.geometries, g) {
		s.geometries = append(s.geometries, g)
	}
	return nil
}

func (s *System) RemoveGeometry(g *spatial.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	i := slices.Index(s.geometries, g)
	if i < 0 {
		return ErrGeometryNotFound
	}
	s.geometries = slices.Delete(s.geometries, i, i+1)
	return nil
}

// GeometryOcclusion tests the segment between listener and source against
// every registered geometry.
func (s *System) GeometryOcclusion(listener, source spatial.Vector) (direct, reverb float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	direct, reverb = spatial.Occlude(s.geometries, listener, source)
	return direct, reverb, nil
}

// SetReverbAmbient sets the properties used outside every reverb zone.
func (s *System) SetReverbAmbient(p spatial.ReverbProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.ambient = p
	return nil
}

func (s *System) ReverbAmbient() spatial.ReverbProperties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ambient
}

// CurrentReverb returns the properties blended at the listener by the
// last tick.
func (s *System) CurrentReverb() spatial.ReverbProperties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reverb
}

// ReverbWeights returns one weight per reverb zone at p and their sum: 1
// inside at least one zone, 0 outside all. Zones are listed in creation
// order until one is released; released slots are reused.
func (s *System) ReverbWeights(p spatial.Vector) ([]float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	zones := s.collectZones(nil)
	w := make([]float64, len(zones))
	return w, spatial.ReverbWeights(zones, p, w), nil
}

// collectZones fills dst with every reverb zone.
func (s *System) collectZones(dst []spatial.ReverbZone) []spatial.ReverbZone {
	dst = dst[:0]
	s.reverbs.Each(func(_ arena.Handle, r *reverbState) {
		dst = append(dst, r.zone)
	})
	return dst
}

type reverbState struct {
	zone spatial.ReverbZone
}

// Reverb3D is a spherical reverb zone.
type Reverb3D struct {
	sys *System
	h   arena.Handle
}

// CreateReverb3D adds an active zone at the origin with the "generic"
// preset.
func (s *System) CreateReverb3D() (Reverb3D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return Reverb3D{}, err
	}
	props, _ := spatial.Preset("generic")
	h, err := s.reverbs.Insert(reverbState{zone: spatial.ReverbZone{
		MinDistance: 1,
		MaxDistance: 10,
		Properties:  props,
		Active:      true,
	}})
	if err != nil {
		return Reverb3D{}, fmt.Errorf("%w: %w", ErrResource, err)
	}

	n := s.reverbs.Len()
	if cap(s.zones) < n {
		s.zones = make([]spatial.ReverbZone, 0, 2*n)
		s.weights = make([]float64, 2*n)
	}
	return Reverb3D{sys: s, h: h}, nil
}

func (r Reverb3D) with(fn func(st *reverbState) error) error {
	s := r.sys
	if s == nil {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	st, ok := s.reverbs.Get(r.h)
	if !ok {
		return ErrInvalidHandle
	}
	return fn(st)
}

// Set3DAttributes moves the zone. Inside minDist the zone is at full
// weight; beyond maxDist it does not apply.
func (r Reverb3D) Set3DAttributes(pos spatial.Vector, minDist, maxDist float64) error {
	return r.with(func(st *reverbState) error {
		st.zone.Position = pos
		st.zone.MinDistance = max(minDist, 0)
		st.zone.MaxDistance = max(maxDist, st.zone.MinDistance)
		return nil
	})
}

func (r Reverb3D) Get3DAttributes() (pos spatial.Vector, minDist, maxDist float64, err error) {
	err = r.with(func(st *reverbState) error {
		pos, minDist, maxDist = st.zone.Position, st.zone.MinDistance, st.zone.MaxDistance
		return nil
	})
	return pos, minDist, maxDist, err
}

func (r Reverb3D) SetProperties(p spatial.ReverbProperties) error {
	return r.with(func(st *reverbState) error {
		st.zone.Properties = p
		return nil
	})
}

func (r Reverb3D) Properties() (p spatial.ReverbProperties, err error) {
	err = r.with(func(st *reverbState) error {
		p = st.zone.Properties
		return nil
	})
	return p, err
}

func (r Reverb3D) SetActive(a bool) error {
	return r.with(func(st *reverbState) error {
		st.zone.Active = a
		return nil
	})
}

func (r Reverb3D) Active() (a bool, err error) {
	err = r.with(func(st *reverbState) error {
		a = st.zone.Active
		return nil
	})
	return a, err
}

func (r Reverb3D) Release() error {
	s := r.sys
	if s == nil {
		return ErrInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if _, ok := s.reverbs.Remove(r.h); !ok {
		return ErrInvalidHandle
	}
	return nil
}
