// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"math"
	"strings"
)

// SpeakerMode is the output channel layout. Channels are interleaved in the
// order listed for each mode.
type SpeakerMode int

const (
	SpeakerMono         SpeakerMode = iota // C
	SpeakerStereo                          // FL FR
	SpeakerQuad                            // FL FR SL SR
	SpeakerSurround                        // FL FR C SL SR
	SpeakerFivePointOne                    // FL FR C LFE SL SR
	SpeakerSevenPointOne                   // FL FR C LFE SL SR BL BR
)

const lfe = math.MaxFloat64

// speaker azimuths in degrees, positive to the right; lfe marks the
// non-directional channel.
var speakerAngles = [...][]float64{
	SpeakerMono:          {0},
	SpeakerStereo:        {-30, 30},
	SpeakerQuad:          {-45, 45, -135, 135},
	SpeakerSurround:      {-30, 30, 0, -110, 110},
	SpeakerFivePointOne:  {-30, 30, 0, lfe, -110, 110},
	SpeakerSevenPointOne: {-30, 30, 0, lfe, -90, 90, -150, 150},
}

var speakerNames = [...]string{
	SpeakerMono:          "mono",
	SpeakerStereo:        "stereo",
	SpeakerQuad:          "quad",
	SpeakerSurround:      "5.0",
	SpeakerFivePointOne:  "5.1",
	SpeakerSevenPointOne: "7.1",
}

func (m SpeakerMode) String() string {
	if m.valid() {
		return speakerNames[m]
	}
	return "unknown"
}

func (m SpeakerMode) valid() bool { return m >= 0 && int(m) < len(speakerNames) }

// ParseSpeakerMode accepts the names returned by String plus "surround".
func ParseSpeakerMode(s string) (SpeakerMode, bool) {
	s = strings.ToLower(s)
	if s == "surround" {
		return SpeakerSurround, true
	}
	for m, name := range speakerNames {
		if name == s {
			return SpeakerMode(m), true
		}
	}
	return 0, false
}

// Channels returns the interleaved channel count of the layout.
func (m SpeakerMode) Channels() int {
	if !m.valid() {
		return 2
	}
	return len(speakerAngles[m])
}

// StereoPan returns constant-power gains for pan in [-1, 1]. Pan 0 gives
// both sides cos(pi/4).
func StereoPan(pan float64) (left, right float32) {
	pan = max(-1, min(1, pan))
	theta := (pan + 1) * math.Pi / 4
	return float32(math.Cos(theta)), float32(math.Sin(theta))
}

// BalancePan returns balance gains for pan in [-1, 1]: both sides pass at
// unity when centred and panning only lowers the opposite side.
func BalancePan(pan float64) (left, right float32) {
	pan = max(-1, min(1, pan))
	return float32(1 - max(pan, 0)), float32(1 + min(pan, 0))
}

// PanGains writes one gain per output channel of mode for a source at
// azimuth (radians, 0 ahead, positive right). The source is split between
// the two adjacent speakers with constant power; LFE gets nothing. Stereo
// uses the sine of the azimuth so sources behind still pan left to right.
func PanGains(mode SpeakerMode, azimuth float64, dst []float32) {
	clear(dst)
	if !mode.valid() || len(dst) < mode.Channels() {
		return
	}

	switch mode {
	case SpeakerMono:
		dst[0] = 1
		return
	case SpeakerStereo:
		dst[0], dst[1] = StereoPan(math.Sin(azimuth))
		return
	}

	az := normalizeDegrees(azimuth * 180 / math.Pi)
	angles := speakerAngles[mode]

	// find the closest speaker on each side of az, walking the circle
	lo, hi := -1, -1
	loGap, hiGap := 361.0, 361.0
	for i, a := range angles {
		if a == lfe {
			continue
		}
		d := normalizeDegrees(az - a) // speaker a is d degrees to the left of az
		if d < 0 {
			d += 360
		}
		if d < loGap {
			lo, loGap = i, d
		}
		u := normalizeDegrees(a - az)
		if u < 0 {
			u += 360
		}
		if u < hiGap {
			hi, hiGap = i, u
		}
	}

	if lo == hi || loGap+hiGap == 0 {
		dst[lo] = 1
		return
	}

	t := loGap / (loGap + hiGap)
	dst[lo] = float32(math.Cos(t * math.Pi / 2))
	dst[hi] = float32(math.Sin(t * math.Pi / 2))
}

// normalizeDegrees folds a into (-180, 180].
func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}
