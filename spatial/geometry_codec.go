// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

var geometryMagic = [4]byte{'A', 'M', 'G', 'O'}

const geometryVersion = 1

// MarshalBinary encodes the geometry, its limits, transform and polygons.
// The layout is little-endian and private to this package.
func (g *Geometry) MarshalBinary() ([]byte, error) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	b := make([]byte, 0, 128+len(g.polygons)*32+g.numVertices*24)
	b = append(b, geometryMagic[:]...)
	b = append(b, geometryVersion)
	b = binary.LittleEndian.AppendUint32(b, uint32(g.maxPolygons))
	b = binary.LittleEndian.AppendUint32(b, uint32(g.maxVertices))
	for _, v := range []Vector{g.position, g.forward, g.up, g.scale} {
		b = appendVector(b, v)
	}
	b = append(b, boolByte(g.active))

	b = binary.LittleEndian.AppendUint32(b, uint32(len(g.polygons)))
	for _, p := range g.polygons {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(p.DirectOcclusion))
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(p.ReverbOcclusion))
		b = append(b, boolByte(p.DoubleSided))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(p.Vertices)))
		for _, v := range p.Vertices {
			b = appendVector(b, v)
		}
	}

	return b, nil
}

func appendVector(b []byte, v Vector) []byte {
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v.X))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v.Y))
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v.Z))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// geometryHeader is the fixed-size prefix written by MarshalBinary.
type geometryHeader struct {
	Magic       [4]byte
	Version     uint8
	MaxPolygons uint32
	MaxVertices uint32
	Position    [3]float64
	Forward     [3]float64
	Up          [3]float64
	Scale       [3]float64
	Active      uint8
	NumPolygons uint32
}

type polygonHeader struct {
	Direct      float64
	Reverb      float64
	DoubleSided uint8
	NumVertices uint32
}

// UnmarshalGeometry decodes data produced by MarshalBinary.
func UnmarshalGeometry(data []byte) (*Geometry, error) {
	r := bytes.NewReader(data)

	var h geometryHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadGeometry, err)
	}
	if h.Magic != geometryMagic || h.Version != geometryVersion {
		return nil, ErrBadGeometry
	}
	if h.NumPolygons > h.MaxPolygons {
		return nil, ErrBadGeometry
	}

	g := NewGeometry(int(h.MaxPolygons), int(h.MaxVertices))
	g.position = vec(h.Position)
	g.forward = vec(h.Forward)
	g.up = vec(h.Up)
	g.scale = vec(h.Scale)
	g.active = h.Active != 0

	for range h.NumPolygons {
		var ph polygonHeader
		if err := binary.Read(r, binary.LittleEndian, &ph); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadGeometry, err)
		}
		// guard the allocation against a corrupt count
		if int64(ph.NumVertices)*24 > int64(r.Len()) {
			return nil, ErrBadGeometry
		}

		raw := make([][3]float64, ph.NumVertices)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadGeometry, err)
		}
		verts := make([]Vector, len(raw))
		for i, v := range raw {
			verts[i] = vec(v)
		}

		if _, err := g.AddPolygon(ph.Direct, ph.Reverb, ph.DoubleSided != 0, verts); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadGeometry, err)
		}
	}

	return g, nil
}

func vec(a [3]float64) Vector { return Vector{a[0], a[1], a[2]} }
