// SPDX-License-Identifier: EPL-2.0

package spatial

import "math"

// Listener is the point of view sounds are panned and attenuated for.
type Listener struct {
	Position Vector
	Velocity Vector
	Forward  Vector
	Up       Vector
}

// DefaultListener sits at the origin facing +Z with +Y up.
func DefaultListener() Listener {
	return Listener{
		Forward: Vector{Z: 1},
		Up:      Vector{Y: 1},
	}
}

// Locate returns the azimuth of p in radians (0 straight ahead, positive to
// the right, in (-pi, pi]) and its distance from the listener. With
// rightHanded the X axis is mirrored.
func (l Listener) Locate(p Vector, rightHanded bool) (azimuth, distance float64) {
	rel := p.Sub(l.Position)
	distance = rel.Length()
	if distance == 0 {
		return 0, 0
	}

	fwd := l.Forward.Normalize()
	right := l.Up.Cross(fwd).Normalize()
	if rightHanded {
		right = right.Scale(-1)
	}

	x := rel.Dot(right)
	z := rel.Dot(fwd)
	if x == 0 && z == 0 {
		// directly above or below
		return 0, distance
	}
	return math.Atan2(x, z), distance
}
