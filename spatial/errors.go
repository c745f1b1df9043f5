// SPDX-License-Identifier: EPL-2.0

package spatial

import "errors"

var (
	ErrGeometryFull  = errors.New("geometry polygon or vertex limit reached")
	ErrPolygonIndex  = errors.New("polygon index out of range")
	ErrVertexIndex   = errors.New("vertex index out of range")
	ErrTooFewVerts   = errors.New("a polygon needs at least 3 vertices")
	ErrBadGeometry   = errors.New("malformed geometry data")
	ErrUnknownPreset = errors.New("unknown reverb preset")
)
