// SPDX-License-Identifier: EPL-2.0

package spatial

// SpeedOfSound in meters per second.
const SpeedOfSound = 340.0

const (
	minDoppler = 0.1
	maxDoppler = 10.0
)

// Doppler returns the pitch factor for a source moving relative to the
// listener. distanceFactor is the number of world units per meter and
// scale exaggerates (>1) or dampens (<1) the effect; scale 0 disables it.
func Doppler(l Listener, position, velocity Vector, distanceFactor, scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	if distanceFactor <= 0 {
		distanceFactor = 1
	}

	dir := position.Sub(l.Position).Normalize()
	if dir == (Vector{}) {
		return 1
	}

	c := SpeedOfSound * distanceFactor
	// positive when the listener moves toward the source
	vl := l.Velocity.Dot(dir) * scale
	// positive when the source moves away from the listener
	vs := velocity.Dot(dir) * scale

	// keep both terms positive for supersonic motion
	vl = max(vl, -c*0.99)
	vs = max(vs, -c*0.99)

	f := (c + vl) / (c + vs)
	return max(minDoppler, min(maxDoppler, f))
}
