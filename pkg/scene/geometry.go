package scene

import (
	"sync"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PrimitiveMode is the topology of a primitive set.
type PrimitiveMode int

const (
	ModePoints PrimitiveMode = iota
	ModeLines
	ModeLineStrip
	ModeLineLoop
	ModeTriangles
	ModeTriangleStrip
	ModeTriangleFan
	ModeQuads
)

func (m PrimitiveMode) String() string {
	switch m {
	case ModePoints:
		return "points"
	case ModeLines:
		return "lines"
	case ModeLineStrip:
		return "line-strip"
	case ModeLineLoop:
		return "line-loop"
	case ModeTriangles:
		return "triangles"
	case ModeTriangleStrip:
		return "triangle-strip"
	case ModeTriangleFan:
		return "triangle-fan"
	case ModeQuads:
		return "quads"
	default:
		return "unknown"
	}
}

// PrimitiveSet selects vertices either through Indices or, when Indices is
// nil, as the Count vertices starting at First.
type PrimitiveSet struct {
	Mode    PrimitiveMode
	Indices []uint32
	First   int
	Count   int
}

// Len returns the number of vertices the set references.
func (ps PrimitiveSet) Len() int {
	if ps.Indices != nil {
		return len(ps.Indices)
	}
	return ps.Count
}

// At returns the vertex index at position k of the set.
func (ps PrimitiveSet) At(k int) uint32 {
	if ps.Indices != nil {
		return ps.Indices[k]
	}
	return uint32(ps.First + k)
}

// Primitive is one point, line, triangle or quad delivered by EachPrimitive.
type Primitive struct {
	Index    int // position in the drawable's primitive stream
	Count    int // 1 to 4
	Vertices [4]mgl64.Vec3
	Indices  [4]uint32
}

// Box returns the primitive's bounding box.
func (p *Primitive) Box() geom.Box {
	return geom.NewBox(p.Vertices[:p.Count]...)
}

// SpatialIndex finds primitives whose bounds meet a query box. Visit must
// call fn in ascending Index order, and stops when fn returns false.
type SpatialIndex interface {
	Visit(query geom.Box, fn func(p *Primitive) bool)
}

// Geometry is a drawable: a vertex array and the primitive sets drawn from
// it, with an optional spatial index.
type Geometry struct {
	Vertices   []mgl64.Vec3
	Primitives []PrimitiveSet
	Index      SpatialIndex

	boxOnce sync.Once
	box     geom.Box
}

// NewTriangles builds a geometry from an indexed triangle list.
func NewTriangles(vertices []mgl64.Vec3, indices []uint32) *Geometry {
	return &Geometry{
		Vertices:   vertices,
		Primitives: []PrimitiveSet{{Mode: ModeTriangles, Indices: indices}},
	}
}

// BoundingBox returns the box around all vertices.
func (g *Geometry) BoundingBox() geom.Box {
	g.boxOnce.Do(func() {
		g.box = geom.NewBox(g.Vertices...)
	})
	return g.box
}

// PrimitiveCount returns the number of primitives EachPrimitive delivers.
func (g *Geometry) PrimitiveCount() int {
	n := 0
	g.EachPrimitive(func(*Primitive) bool {
		n++
		return true
	})
	return n
}

// EachPrimitive calls fn for every primitive in order until fn returns
// false. The Primitive is reused between calls. Primitives referring to
// vertices outside the array are skipped but still consume an index.
func (g *Geometry) EachPrimitive(fn func(p *Primitive) bool) {
	var p Primitive
	index := 0
	emit := func(ps PrimitiveSet, ks ...int) bool {
		p.Index = index
		index++
		p.Count = len(ks)
		for i, k := range ks {
			vi := ps.At(k)
			if int(vi) >= len(g.Vertices) {
				return true
			}
			p.Indices[i] = vi
			p.Vertices[i] = g.Vertices[vi]
		}
		return fn(&p)
	}

	for _, ps := range g.Primitives {
		n := ps.Len()
		switch ps.Mode {
		case ModePoints:
			for k := 0; k < n; k++ {
				if !emit(ps, k) {
					return
				}
			}
		case ModeLines:
			for k := 0; k+1 < n; k += 2 {
				if !emit(ps, k, k+1) {
					return
				}
			}
		case ModeLineStrip:
			for k := 1; k < n; k++ {
				if !emit(ps, k-1, k) {
					return
				}
			}
		case ModeLineLoop:
			for k := 1; k < n; k++ {
				if !emit(ps, k-1, k) {
					return
				}
			}
			if n > 1 && !emit(ps, n-1, 0) {
				return
			}
		case ModeTriangles:
			for k := 0; k+2 < n; k += 3 {
				if !emit(ps, k, k+1, k+2) {
					return
				}
			}
		case ModeTriangleStrip:
			for k := 2; k < n; k++ {
				var ok bool
				if k%2 == 0 {
					ok = emit(ps, k-2, k-1, k)
				} else {
					ok = emit(ps, k-1, k-2, k)
				}
				if !ok {
					return
				}
			}
		case ModeTriangleFan:
			for k := 2; k < n; k++ {
				if !emit(ps, 0, k-1, k) {
					return
				}
			}
		case ModeQuads:
			for k := 0; k+3 < n; k += 4 {
				if !emit(ps, k, k+1, k+2, k+3) {
					return
				}
			}
		}
	}
}
