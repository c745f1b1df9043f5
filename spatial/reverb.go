// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"sort"
	"strings"
)

// ReverbProperties describes a room. Times are in milliseconds, levels in
// dB, ratios and mixes in percent.
type ReverbProperties struct {
	DecayTime         float64 `json:"decay_time" yaml:"decay_time"`
	EarlyDelay        float64 `json:"early_delay" yaml:"early_delay"`
	LateDelay         float64 `json:"late_delay" yaml:"late_delay"`
	HFReference       float64 `json:"hf_reference" yaml:"hf_reference"`
	HFDecayRatio      float64 `json:"hf_decay_ratio" yaml:"hf_decay_ratio"`
	Diffusion         float64 `json:"diffusion" yaml:"diffusion"`
	Density           float64 `json:"density" yaml:"density"`
	LowShelfFrequency float64 `json:"low_shelf_frequency" yaml:"low_shelf_frequency"`
	LowShelfGain      float64 `json:"low_shelf_gain" yaml:"low_shelf_gain"`
	HighCut           float64 `json:"high_cut" yaml:"high_cut"`
	EarlyLateMix      float64 `json:"early_late_mix" yaml:"early_late_mix"`
	WetLevel          float64 `json:"wet_level" yaml:"wet_level"`
}

var presets = map[string]ReverbProperties{
	"off":              {1000, 7, 11, 5000, 100, 100, 100, 250, 0, 20, 96, -80},
	"generic":          {1500, 7, 11, 5000, 83, 100, 100, 250, 0, 14500, 96, -8},
	"paddedcell":       {170, 1, 2, 5000, 10, 100, 100, 250, 0, 160, 84, -7.8},
	"room":             {400, 2, 3, 5000, 83, 100, 100, 250, 0, 6050, 88, -9.4},
	"bathroom":         {1500, 7, 11, 5000, 54, 100, 60, 250, 0, 2900, 83, 0.5},
	"livingroom":       {500, 3, 4, 5000, 10, 100, 100, 250, 0, 160, 58, -19},
	"stoneroom":        {2300, 12, 17, 5000, 64, 100, 100, 250, 0, 7800, 71, -8.5},
	"auditorium":       {4300, 20, 30, 5000, 59, 100, 100, 250, 0, 5850, 64, -11.7},
	"concerthall":      {3900, 20, 29, 5000, 70, 100, 100, 250, 0, 5650, 80, -9.8},
	"cave":             {2900, 15, 22, 5000, 100, 100, 100, 250, 0, 20000, 59, -11.3},
	"arena":            {7200, 20, 30, 5000, 33, 100, 100, 250, 0, 4500, 80, -9.6},
	"hangar":           {10000, 20, 30, 5000, 23, 100, 100, 250, 0, 3400, 72, -7.4},
	"carpetedhallway":  {300, 2, 30, 5000, 10, 100, 100, 250, 0, 500, 56, -24},
	"hallway":          {1500, 7, 11, 5000, 59, 100, 100, 250, 0, 7800, 87, -5.5},
	"stonecorridor":    {270, 13, 20, 5000, 79, 100, 100, 250, 0, 9000, 86, -6},
	"alley":            {1500, 7, 11, 5000, 86, 100, 100, 250, 0, 8300, 80, -9.8},
	"forest":           {1500, 162, 88, 5000, 54, 79, 100, 250, 0, 760, 94, -12.3},
	"city":             {1500, 7, 11, 5000, 67, 50, 100, 250, 0, 4050, 66, -26},
	"mountains":        {1500, 300, 100, 5000, 21, 27, 100, 250, 0, 1220, 82, -24},
	"quarry":           {1500, 61, 25, 5000, 83, 100, 100, 250, 0, 3400, 100, -5},
	"plain":            {1500, 179, 100, 5000, 50, 21, 100, 250, 0, 1670, 65, -28},
	"parkinglot":       {1700, 8, 12, 5000, 100, 100, 100, 250, 0, 20000, 56, -19.5},
	"sewerpipe":        {2800, 14, 21, 5000, 14, 80, 60, 250, 0, 3400, 66, 1.2},
	"underwater":       {1500, 7, 11, 5000, 10, 100, 100, 250, 0, 500, 92, 7},
}

// Preset looks up a named room preset such as "concerthall".
func Preset(name string) (ReverbProperties, error) {
	p, ok := presets[strings.ToLower(name)]
	if !ok {
		return ReverbProperties{}, ErrUnknownPreset
	}
	return p, nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReverbOff is the "off" preset, used when nothing else applies.
func ReverbOff() ReverbProperties { return presets["off"] }

// ReverbZone is a sphere with room properties. A point within MaxDistance
// of Position is inside the zone.
type ReverbZone struct {
	Position    Vector
	MinDistance float64
	MaxDistance float64
	Properties  ReverbProperties
	Active      bool
}

// Contains reports whether p is inside the active zone.
func (z ReverbZone) Contains(p Vector) bool {
	return z.Active && p.Distance(z.Position) <= z.MaxDistance
}

// ReverbWeights writes one weight per zone into dst (which must be at
// least len(zones) long) and returns their sum. Zones containing p get
// inverse-distance weights normalized to sum to 1; all others get 0. The
// sum is 0 when p is outside every zone.
func ReverbWeights(zones []ReverbZone, p Vector, dst []float64) float64 {
	// distances below this count as standing at the center
	const near = 1e-9

	clear(dst[:len(zones)])

	total := 0.0
	for i, z := range zones {
		if !z.Contains(p) {
			continue
		}
		d := p.Distance(z.Position)
		if d < near {
			d = near
		}
		dst[i] = 1 / d
		total += dst[i]
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i := range zones {
		dst[i] /= total
		sum += dst[i]
	}
	return sum
}

// BlendReverb returns the weighted average of the zones' properties at p,
// or ambient when p is outside every zone. weights is scratch space of at
// least len(zones).
func BlendReverb(zones []ReverbZone, ambient ReverbProperties, p Vector, weights []float64) ReverbProperties {
	if ReverbWeights(zones, p, weights) == 0 {
		return ambient
	}

	var out ReverbProperties
	for i, z := range zones {
		w := weights[i]
		if w == 0 {
			continue
		}
		q := z.Properties
		out.DecayTime += w * q.DecayTime
		out.EarlyDelay += w * q.EarlyDelay
		out.LateDelay += w * q.LateDelay
		out.HFReference += w * q.HFReference
		out.HFDecayRatio += w * q.HFDecayRatio
		out.Diffusion += w * q.Diffusion
		out.Density += w * q.Density
		out.LowShelfFrequency += w * q.LowShelfFrequency
		out.LowShelfGain += w * q.LowShelfGain
		out.HighCut += w * q.HighCut
		out.EarlyLateMix += w * q.EarlyLateMix
		out.WetLevel += w * q.WetLevel
	}
	return out
}
