// SPDX-License-Identifier: EPL-2.0

// Package spatial holds the 3D math used by the mixer: listener-relative
// location, distance rolloff, speaker panning, occlusion geometry, reverb
// zones and doppler.
//
// Coordinates are left-handed by default (+X right, +Y up, +Z forward).
// Azimuths are in radians with 0 straight ahead and positive values to the
// right.
//
// Panning splits a source between the two speakers adjacent to its azimuth
// with constant power, so the squared gains always sum to 1:
//
//	gains := make([]float32, spatial.SpeakerFivePointOne.Channels())
//	spatial.PanGains(spatial.SpeakerFivePointOne, math.Pi/2, gains)
//
// Geometry occlusion is multiplicative: each polygon a segment crosses lets
// through (1 - occlusion) of what reaches it. Geometry values are safe for
// concurrent use and can be saved with MarshalBinary and restored with
// UnmarshalGeometry.
package spatial
