// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestAttenuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model Rolloff
		dist  float64
		want  float64
	}{
		{"inverse inside min", RolloffInverse, 0.5, 1},
		{"inverse double min", RolloffInverse, 2, 0.5},
		{"inverse holds past max", RolloffInverse, 100, 0.1},
		{"linear mid", RolloffLinear, 5.5, 0.5},
		{"linear past max", RolloffLinear, 11, 0},
		{"linear square mid", RolloffLinearSquare, 5.5, 0.25},
		{"tapered near uses inverse", RolloffInverseTapered, 2, math.Min(0.5, math.Pow(1-1.0/9, 2))},
		{"tapered far reaches zero", RolloffInverseTapered, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Attenuation(tt.model, tt.dist, 1, 10, 1, nil)
			if !near(got, tt.want) {
				t.Errorf("Attenuation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttenuation_Custom(t *testing.T) {
	t.Parallel()

	curve := func(d float64) float64 { return 2 - d }

	if got := Attenuation(RolloffCustom, 0, 1, 10, 1, curve); got != 1 {
		t.Errorf("custom clamps high: got %v", got)
	}
	if got := Attenuation(RolloffCustom, 1.5, 1, 10, 1, curve); got != 0.5 {
		t.Errorf("custom(1.5) = %v, want 0.5", got)
	}
	if got := Attenuation(RolloffCustom, 2, 1, 10, 1, nil); got != 0.5 {
		t.Errorf("nil custom falls back to inverse: got %v", got)
	}
}

func TestPanGains_ConstantPower(t *testing.T) {
	t.Parallel()

	modes := []SpeakerMode{SpeakerStereo, SpeakerQuad, SpeakerSurround, SpeakerFivePointOne, SpeakerSevenPointOne}

	for _, m := range modes {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()

			gains := make([]float32, m.Channels())
			for deg := -180.0; deg <= 180; deg += 7.5 {
				PanGains(m, deg*math.Pi/180, gains)

				power := 0.0
				for _, g := range gains {
					power += float64(g) * float64(g)
				}
				if !near(power, 1) {
					t.Errorf("azimuth %v: power = %v, want 1", deg, power)
				}
			}
		})
	}
}

func TestPanGains_Speakers(t *testing.T) {
	t.Parallel()

	gains := make([]float32, 8)

	PanGains(SpeakerFivePointOne, 0, gains[:6])
	if gains[2] != 1 || gains[3] != 0 {
		t.Errorf("5.1 front: C = %v, LFE = %v", gains[2], gains[3])
	}

	PanGains(SpeakerSevenPointOne, math.Pi/2, gains)
	if !near(float64(gains[5]), 1) {
		t.Errorf("7.1 right: SR = %v, want 1 (gains %v)", gains[5], gains)
	}

	PanGains(SpeakerQuad, 0, gains[:4])
	if !near(float64(gains[0]), math.Sqrt2/2) || !near(float64(gains[1]), math.Sqrt2/2) {
		t.Errorf("quad front = %v", gains[:4])
	}

	PanGains(SpeakerMono, 1, gains[:1])
	if gains[0] != 1 {
		t.Errorf("mono = %v", gains[0])
	}
}

func TestStereoPan(t *testing.T) {
	t.Parallel()

	l, r := StereoPan(-1)
	if !near(float64(l), 1) || !near(float64(r), 0) {
		t.Errorf("hard left = (%v, %v)", l, r)
	}
	l, r = StereoPan(0)
	if l != r || !near(float64(l), math.Sqrt2/2) {
		t.Errorf("center = (%v, %v)", l, r)
	}
}

func TestBalancePan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pan         float64
		left, right float32
	}{
		{0, 1, 1},
		{-1, 1, 0},
		{1, 0, 1},
		{-0.25, 1, 0.75},
		{0.5, 0.5, 1},
		{-7, 1, 0},
	}

	for _, tt := range tests {
		l, r := BalancePan(tt.pan)
		if l != tt.left || r != tt.right {
			t.Errorf("BalancePan(%v) = (%v, %v), want (%v, %v)", tt.pan, l, r, tt.left, tt.right)
		}
	}
}

func TestListener_Locate(t *testing.T) {
	t.Parallel()

	l := DefaultListener()

	az, d := l.Locate(Vector{X: 2}, false)
	if !near(az, math.Pi/2) || !near(d, 2) {
		t.Errorf("right: az = %v, d = %v", az, d)
	}
	az, _ = l.Locate(Vector{Z: -1}, false)
	if !near(math.Abs(az), math.Pi) {
		t.Errorf("behind: az = %v", az)
	}
	az, _ = l.Locate(Vector{X: 2}, true)
	if !near(az, -math.Pi/2) {
		t.Errorf("right-handed: az = %v", az)
	}
	if az, d := l.Locate(Vector{}, false); az != 0 || d != 0 {
		t.Errorf("at listener: (%v, %v)", az, d)
	}
}

func TestReverbWeights_TwoSpheres(t *testing.T) {
	t.Parallel()

	zones := []ReverbZone{
		{Position: Vector{}, MaxDistance: 10, Active: true},
		{Position: Vector{X: 4}, MaxDistance: 10, Active: true},
		{Position: Vector{X: 100}, MaxDistance: 10, Active: true},
	}
	weights := make([]float64, len(zones))

	sum := ReverbWeights(zones, Vector{X: 1}, weights)
	if math.Abs(sum-1) > eps {
		t.Errorf("sum = %v, want 1", sum)
	}
	if !near(weights[0], 0.75) || !near(weights[1], 0.25) || weights[2] != 0 {
		t.Errorf("weights = %v, want [0.75 0.25 0]", weights)
	}

	if sum := ReverbWeights(zones, Vector{Y: 50}, weights); sum != 0 {
		t.Errorf("outside sum = %v, want 0", sum)
	}

	// inactive zones do not count
	zones[1].Active = false
	ReverbWeights(zones, Vector{X: 1}, weights)
	if weights[0] != 1 || weights[1] != 0 {
		t.Errorf("weights with inactive zone = %v", weights)
	}
}

func TestReverbWeights_SumProperty(t *testing.T) {
	t.Parallel()

	zones := []ReverbZone{
		{Position: Vector{X: -2}, MaxDistance: 6, Active: true},
		{Position: Vector{X: 3, Z: 1}, MaxDistance: 7, Active: true},
	}
	weights := make([]float64, 2)

	for x := -10.0; x <= 10; x += 0.25 {
		p := Vector{X: x, Z: 0.5}
		inside := zones[0].Contains(p) || zones[1].Contains(p)
		sum := ReverbWeights(zones, p, weights)
		if inside && math.Abs(sum-1) > eps {
			t.Errorf("x=%v inside: sum = %v", x, sum)
		}
		if !inside && sum != 0 {
			t.Errorf("x=%v outside: sum = %v", x, sum)
		}
	}
}

func TestBlendReverb(t *testing.T) {
	t.Parallel()

	hall, _ := Preset("concerthall")
	cave, err := Preset("Cave")
	if err != nil {
		t.Fatalf("Preset(Cave) error = %v", err)
	}

	zones := []ReverbZone{
		{Position: Vector{X: -1}, MaxDistance: 5, Properties: hall, Active: true},
		{Position: Vector{X: 1}, MaxDistance: 5, Properties: cave, Active: true},
	}
	weights := make([]float64, 2)

	got := BlendReverb(zones, ReverbOff(), Vector{}, weights)
	if want := (hall.DecayTime + cave.DecayTime) / 2; !near(got.DecayTime, want) {
		t.Errorf("DecayTime = %v, want %v", got.DecayTime, want)
	}

	got = BlendReverb(zones, ReverbOff(), Vector{Y: 100}, weights)
	if got != ReverbOff() {
		t.Errorf("outside all zones = %+v, want ambient", got)
	}

	if _, err := Preset("nope"); err != ErrUnknownPreset {
		t.Errorf("Preset(nope) error = %v", err)
	}
	if len(PresetNames()) != len(presets) {
		t.Error("PresetNames() incomplete")
	}
}

func TestDoppler(t *testing.T) {
	t.Parallel()

	l := DefaultListener()
	src := Vector{Z: 10}

	approaching := Doppler(l, src, Vector{Z: -34}, 1, 1)
	if !near(approaching, 340.0/306.0) {
		t.Errorf("approaching = %v, want %v", approaching, 340.0/306.0)
	}
	if receding := Doppler(l, src, Vector{Z: 34}, 1, 1); receding >= 1 {
		t.Errorf("receding = %v, want < 1", receding)
	}
	if off := Doppler(l, src, Vector{Z: -34}, 1, 0); off != 1 {
		t.Errorf("scale 0 = %v, want 1", off)
	}
	if fast := Doppler(l, src, Vector{Z: -1e6}, 1, 1); fast > maxDoppler {
		t.Errorf("supersonic = %v, want <= %v", fast, maxDoppler)
	}
}

func TestParseNames(t *testing.T) {
	t.Parallel()

	for m := SpeakerMono; m <= SpeakerSevenPointOne; m++ {
		if got, ok := ParseSpeakerMode(m.String()); !ok || got != m {
			t.Errorf("ParseSpeakerMode(%q) = (%v, %v)", m.String(), got, ok)
		}
	}
	if got, ok := ParseRolloff("Linear-Square"); !ok || got != RolloffLinearSquare {
		t.Errorf("ParseRolloff() = (%v, %v)", got, ok)
	}
}
