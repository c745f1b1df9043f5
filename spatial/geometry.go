// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"sync"

	"github.com/ik5/audmix/utils"
)

// Polygon is a planar convex face. Its front side is the one the normal
// (v1-v0) x (v2-v0) points to; a one-sided polygon only occludes rays that
// enter through the front.
type Polygon struct {
	Vertices        []Vector
	DirectOcclusion float64
	ReverbOcclusion float64
	DoubleSided     bool
}

// Geometry is a set of occluding polygons with a world transform. It is
// safe for concurrent use.
type Geometry struct {
	mtx sync.RWMutex

	polygons    []Polygon
	maxPolygons int
	maxVertices int
	numVertices int

	position Vector
	forward  Vector
	up       Vector
	scale    Vector
	active   bool
}

// NewGeometry returns an empty, active geometry at the origin that will
// hold up to maxPolygons polygons and maxVertices vertices in total.
func NewGeometry(maxPolygons, maxVertices int) *Geometry {
	return &Geometry{
		maxPolygons: max(maxPolygons, 1),
		maxVertices: max(maxVertices, 3),
		forward:     Vector{Z: 1},
		up:          Vector{Y: 1},
		scale:       Vector{1, 1, 1},
		active:      true,
	}
}

// AddPolygon appends a polygon in local coordinates and returns its index.
// Occlusion values are clamped to [0, 1].
func (g *Geometry) AddPolygon(direct, reverb float64, doubleSided bool, vertices []Vector) (int, error) {
	if len(vertices) < 3 {
		return -1, ErrTooFewVerts
	}

	g.mtx.Lock()
	defer g.mtx.Unlock()

	if len(g.polygons) >= g.maxPolygons || g.numVertices+len(vertices) > g.maxVertices {
		return -1, ErrGeometryFull
	}

	g.polygons = append(g.polygons, Polygon{
		Vertices:        append([]Vector(nil), vertices...),
		DirectOcclusion: utils.Clamp(direct, 0, 1),
		ReverbOcclusion: utils.Clamp(reverb, 0, 1),
		DoubleSided:     doubleSided,
	})
	g.numVertices += len(vertices)

	return len(g.polygons) - 1, nil
}

func (g *Geometry) NumPolygons() int {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return len(g.polygons)
}

// MaxPolygons returns the limits given to NewGeometry.
func (g *Geometry) MaxPolygons() (polygons, vertices int) {
	return g.maxPolygons, g.maxVertices
}

// Polygon returns a copy of polygon i.
func (g *Geometry) Polygon(i int) (Polygon, error) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	if i < 0 || i >= len(g.polygons) {
		return Polygon{}, ErrPolygonIndex
	}
	p := g.polygons[i]
	p.Vertices = append([]Vector(nil), p.Vertices...)
	return p, nil
}

func (g *Geometry) SetPolygonVertex(poly, vertex int, v Vector) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if poly < 0 || poly >= len(g.polygons) {
		return ErrPolygonIndex
	}
	verts := g.polygons[poly].Vertices
	if vertex < 0 || vertex >= len(verts) {
		return ErrVertexIndex
	}
	verts[vertex] = v
	return nil
}

func (g *Geometry) SetPolygonAttributes(poly int, direct, reverb float64, doubleSided bool) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if poly < 0 || poly >= len(g.polygons) {
		return ErrPolygonIndex
	}
	p := &g.polygons[poly]
	p.DirectOcclusion = utils.Clamp(direct, 0, 1)
	p.ReverbOcclusion = utils.Clamp(reverb, 0, 1)
	p.DoubleSided = doubleSided
	return nil
}

func (g *Geometry) SetPosition(p Vector) {
	g.mtx.Lock()
	g.position = p
	g.mtx.Unlock()
}

func (g *Geometry) Position() Vector {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.position
}

// SetRotation orients the geometry. Zero vectors are ignored.
func (g *Geometry) SetRotation(forward, up Vector) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if f := forward.Normalize(); f != (Vector{}) {
		g.forward = f
	}
	if u := up.Normalize(); u != (Vector{}) {
		g.up = u
	}
}

func (g *Geometry) Rotation() (forward, up Vector) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.forward, g.up
}

func (g *Geometry) SetScale(s Vector) {
	g.mtx.Lock()
	g.scale = s
	g.mtx.Unlock()
}

func (g *Geometry) Scale() Vector {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.scale
}

// SetActive false removes the geometry from occlusion tests.
func (g *Geometry) SetActive(a bool) {
	g.mtx.Lock()
	g.active = a
	g.mtx.Unlock()
}

func (g *Geometry) Active() bool {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.active
}

// toWorld maps a local vertex through scale, rotation and translation.
func (g *Geometry) toWorld(v Vector) Vector {
	right := g.up.Cross(g.forward)
	s := Vector{v.X * g.scale.X, v.Y * g.scale.Y, v.Z * g.scale.Z}
	return g.position.
		Add(right.Scale(s.X)).
		Add(g.up.Scale(s.Y)).
		Add(g.forward.Scale(s.Z))
}

// Occlusion returns how much the geometry blocks the segment from -> to,
// as direct and reverb occlusion in [0, 1]. Every crossed polygon lets
// through (1 - occlusion) of what reaches it.
func (g *Geometry) Occlusion(from, to Vector) (direct, reverb float64) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	if !g.active {
		return 0, 0
	}

	passDirect, passReverb := 1.0, 1.0
	for i := range g.polygons {
		p := &g.polygons[i]
		if g.crosses(p, from, to) {
			passDirect *= 1 - p.DirectOcclusion
			passReverb *= 1 - p.ReverbOcclusion
		}
	}
	return 1 - passDirect, 1 - passReverb
}

func (g *Geometry) crosses(p *Polygon, from, to Vector) bool {
	v0 := g.toWorld(p.Vertices[0])
	v1 := g.toWorld(p.Vertices[1])
	v2 := g.toWorld(p.Vertices[2])

	normal := v1.Sub(v0).Cross(v2.Sub(v0))
	dir := to.Sub(from)
	denom := normal.Dot(dir)
	if denom == 0 {
		return false
	}
	if !p.DoubleSided && denom > 0 {
		// entering through the back face
		return false
	}

	t := normal.Dot(v0.Sub(from)) / denom
	if t <= 0 || t >= 1 {
		return false
	}
	hit := from.Add(dir.Scale(t))

	// fan triangulation of a convex polygon
	prev := v1
	for k := 2; k < len(p.Vertices); k++ {
		next := g.toWorld(p.Vertices[k])
		if inTriangle(hit, v0, prev, next) {
			return true
		}
		prev = next
	}
	return false
}

func inTriangle(p, a, b, c Vector) bool {
	v0, v1, v2 := c.Sub(a), b.Sub(a), p.Sub(a)

	d00, d01, d02 := v0.Dot(v0), v0.Dot(v1), v0.Dot(v2)
	d11, d12 := v1.Dot(v1), v1.Dot(v2)

	denom := d00*d11 - d01*d01
	if denom == 0 {
		return false
	}
	u := (d11*d02 - d01*d12) / denom
	v := (d00*d12 - d01*d02) / denom
	const eps = 1e-9
	return u >= -eps && v >= -eps && u+v <= 1+eps
}

// Occlude combines several geometries along the segment from -> to.
func Occlude(geometries []*Geometry, from, to Vector) (direct, reverb float64) {
	passDirect, passReverb := 1.0, 1.0
	for _, g := range geometries {
		d, r := g.Occlusion(from, to)
		passDirect *= 1 - d
		passReverb *= 1 - r
	}
	return 1 - passDirect, 1 - passReverb
}
