// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"strings"

	"github.com/ik5/audmix/utils"
)

// Rolloff selects the distance attenuation curve.
type Rolloff int

const (
	RolloffInverse Rolloff = iota
	RolloffLinear
	RolloffLinearSquare
	RolloffInverseTapered
	RolloffCustom
)

var rolloffNames = [...]string{
	RolloffInverse:        "inverse",
	RolloffLinear:         "linear",
	RolloffLinearSquare:   "linearsquare",
	RolloffInverseTapered: "inversetapered",
	RolloffCustom:         "custom",
}

func (r Rolloff) String() string {
	if r >= 0 && int(r) < len(rolloffNames) {
		return rolloffNames[r]
	}
	return "unknown"
}

// ParseRolloff accepts the names returned by String, case-insensitively.
func ParseRolloff(s string) (Rolloff, bool) {
	s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
	for r, name := range rolloffNames {
		if name == s {
			return Rolloff(r), true
		}
	}
	return 0, false
}

// RolloffFunc maps a distance to a gain in [0, 1].
type RolloffFunc func(distance float64) float64

// Attenuation returns the gain for a source at distance. Inside minDist the
// gain is 1. The inverse curve holds its value beyond maxDist, the others
// reach 0 there. scale stretches the inverse curve. custom is only used
// with RolloffCustom; a nil custom falls back to inverse.
func Attenuation(model Rolloff, distance, minDist, maxDist, scale float64, custom RolloffFunc) float64 {
	minDist = max(minDist, 1e-6)
	maxDist = max(maxDist, minDist)

	switch model {
	case RolloffLinear:
		return linear(distance, minDist, maxDist)
	case RolloffLinearSquare:
		g := linear(distance, minDist, maxDist)
		return g * g
	case RolloffInverseTapered:
		g := linear(distance, minDist, maxDist)
		return min(inverse(distance, minDist, maxDist, scale), g*g)
	case RolloffCustom:
		if custom != nil {
			return utils.Clamp(custom(distance), 0, 1)
		}
	}
	return inverse(distance, minDist, maxDist, scale)
}

func inverse(d, minDist, maxDist, scale float64) float64 {
	d = min(d, maxDist)
	if d <= minDist {
		return 1
	}
	if scale <= 0 {
		scale = 1
	}
	return minDist / (minDist + scale*(d-minDist))
}

func linear(d, minDist, maxDist float64) float64 {
	switch {
	case d <= minDist:
		return 1
	case d >= maxDist:
		return 0
	}
	return 1 - (d-minDist)/(maxDist-minDist)
}
