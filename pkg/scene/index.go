package scene

import (
	"math"
	"sort"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// boundEpsilon pads flat primitive boxes, since R-tree rectangles need
	// a positive extent on every axis.
	boundEpsilon = 1e-9

	// queryPadding widens queries so primitives touching the query box on
	// a face are still visited.
	queryPadding = 1e-6
)

type indexedPrimitive struct {
	prim Primitive
	rect rtreego.Rect
}

func (ip *indexedPrimitive) Bounds() rtreego.Rect {
	return ip.rect
}

// RTreeIndex is a SpatialIndex over a drawable's primitives.
type RTreeIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewRTreeIndex indexes every primitive of g. Primitives are captured at
// build time; rebuild the index if g changes.
func NewRTreeIndex(g *Geometry) *RTreeIndex {
	idx := &RTreeIndex{tree: rtreego.NewTree(3, 2, 8)}
	g.EachPrimitive(func(p *Primitive) bool {
		rect, err := boxRect(p.Box())
		if err != nil {
			return true
		}
		idx.tree.Insert(&indexedPrimitive{prim: *p, rect: rect})
		idx.size++
		return true
	})
	return idx
}

// BuildIndex attaches an R-tree index to g and returns g.
func BuildIndex(g *Geometry) *Geometry {
	g.Index = NewRTreeIndex(g)
	return g
}

// Size returns the number of indexed primitives.
func (idx *RTreeIndex) Size() int {
	return idx.size
}

// Visit calls fn for each primitive whose box meets query, in primitive
// order.
func (idx *RTreeIndex) Visit(query geom.Box, fn func(p *Primitive) bool) {
	if !query.Valid() {
		return
	}
	pad := mgl64.Vec3{queryPadding, queryPadding, queryPadding}
	rect, err := boxRect(geom.Box{Min: query.Min.Sub(pad), Max: query.Max.Add(pad)})
	if err != nil {
		return
	}
	found := idx.tree.SearchIntersect(rect)
	sort.Slice(found, func(i, j int) bool {
		return found[i].(*indexedPrimitive).prim.Index < found[j].(*indexedPrimitive).prim.Index
	})
	for _, s := range found {
		p := s.(*indexedPrimitive).prim
		if !fn(&p) {
			return
		}
	}
}

func boxRect(b geom.Box) (rtreego.Rect, error) {
	lengths := make([]float64, 3)
	for i := range lengths {
		lengths[i] = math.Max(b.Max[i]-b.Min[i], boundEpsilon)
	}
	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1], b.Min[2]}, lengths)
}
