package intersect

import (
	"math"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Segment finds triangles crossed by the finite segment Start-End.
// Results are ordered by Ratio.
type Segment struct {
	base
	start   mgl64.Vec3
	end     mgl64.Vec3
	root    *Segment
	results *ResultSet[Intersection]
}

// NewSegment returns a segment query in the given frame.
func NewSegment(frame Frame, start, end mgl64.Vec3) *Segment {
	s := &Segment{
		base:    base{frame: frame},
		start:   start,
		end:     end,
		results: newResultSet(NoLimit, lessRatio),
	}
	s.root = s
	return s
}

// NewSegmentAt returns a segment through the point (x, y) of the frame,
// spanning the depth range of that frame.
func NewSegmentAt(frame Frame, x, y float64) *Segment {
	start := mgl64.Vec3{x, y, 0}
	if frame == FrameProjection {
		start[2] = -1
	}
	return NewSegment(frame, start, mgl64.Vec3{x, y, 1})
}

// SetLimit sets the result limit policy.
func (s *Segment) SetLimit(l Limit) {
	s.limit = l
	s.results.limit = l
}

// Start returns the segment start in the segment's current frame.
func (s *Segment) Start() mgl64.Vec3 { return s.start }

// End returns the segment end in the segment's current frame.
func (s *Segment) End() mgl64.Vec3 { return s.end }

// Results returns the result set shared by the segment and its clones.
func (s *Segment) Results() *ResultSet[Intersection] { return s.results }

// Intersections returns the hits ordered by ratio.
func (s *Segment) Intersections() []Intersection { return s.results.All() }

// FirstIntersection returns the hit nearest the start.
func (s *Segment) FirstIntersection() (Intersection, bool) { return s.results.First() }

// ContainsIntersections reports whether any hit was recorded.
func (s *Segment) ContainsIntersections() bool { return s.results.Len() > 0 }

// ReachedLimit reports whether LimitOne is set and a hit exists.
func (s *Segment) ReachedLimit() bool {
	return s.limit == LimitOne && s.results.Len() > 0
}

// Reset clears hits so the segment can be reused.
func (s *Segment) Reset() {
	s.disabled = 0
	if s.root == s {
		s.results.Clear()
	}
}

// Clone maps the segment into the frame on top of f.
func (s *Segment) Clone(f *Frames) Intersector {
	r := s.root
	c := &Segment{
		base:    base{frame: r.frame, limit: r.limit, precision: r.precision},
		start:   r.start,
		end:     r.end,
		root:    r,
		results: r.results,
	}
	if _, inv, ok := localMatrix(f, r.frame); ok {
		c.start = mgl64.TransformCoordinate(r.start, inv)
		c.end = mgl64.TransformCoordinate(r.end, inv)
	}
	return c
}

// Enter culls n against its bounding sphere.
func (s *Segment) Enter(n *scene.Node) bool {
	if s.ReachedLimit() {
		return false
	}
	return !sphereCulled(n, s.intersectsSphere)
}

// Leave is a no-op.
func (s *Segment) Leave() {}

func (s *Segment) intersectsSphere(bs geom.Sphere) bool {
	if !bs.Valid() {
		return true
	}
	sm := s.start.Sub(bs.Center)
	if sm.LenSqr() < bs.Radius*bs.Radius {
		return true
	}
	r1, r2, ok := geom.SphereRoots(s.start, s.end, bs)
	if !ok {
		return false
	}
	if r1 <= 0 && r2 <= 0 {
		return false
	}
	if r1 >= 1 && r2 >= 1 {
		return false
	}
	if s.limit == LimitNearest {
		if first, ok := s.results.First(); ok {
			nearest := (sm.Len() - bs.Radius) / s.end.Sub(s.start).Len()
			if nearest >= first.Ratio {
				return false
			}
		}
	}
	return true
}

// Intersect records a hit for each primitive of g crossing the segment.
func (s *Segment) Intersect(v *Visitor, drawable *scene.Node, g *scene.Geometry) {
	if s.ReachedLimit() {
		return
	}
	length := s.root.end.Sub(s.root.start).Len()
	hits := s.eachHit(v, g, func(p *scene.Primitive, ratio float64, hit geom.TriangleHit, corners [3]int) {
		in := newIntersection(v, drawable, p, hit, corners)
		in.Ratio = ratio
		in.Distance = ratio * length
		in.LocalPoint = s.start.Mul(1 - ratio).Add(s.end.Mul(ratio))
		s.results.Insert(in)
	})
	instrumentIntersections("segment", hits)
}

type hitFunc func(p *scene.Primitive, ratio float64, hit geom.TriangleHit, corners [3]int)

// eachHit runs the triangle test on every triangle and quad of g and calls
// fn with the hit ratio along the unclipped segment. It returns the number
// of hits.
func (s *Segment) eachHit(v *Visitor, g *scene.Geometry, fn hitFunc) int {
	length := s.end.Sub(s.start).Len()
	if length == 0 {
		return 0
	}
	s0, e0, ok := geom.ClipSegmentToBox(s.start, s.end, g.BoundingBox())
	if !ok {
		return 0
	}
	test := newTriangleTest(s.precision, s0, e0)
	offset := s0.Sub(s.start).Len()

	hits := 0
	tri := func(p *scene.Primitive, a, b, c int) {
		hit, ok := test(p.Vertices[a], p.Vertices[b], p.Vertices[c])
		if !ok {
			return
		}
		hits++
		fn(p, (offset+hit.T)/length, hit, [3]int{a, b, c})
	}
	visitPrimitives(v, g, geom.NewBox(s0, e0), func(p *scene.Primitive) bool {
		switch p.Count {
		case 3:
			tri(p, 0, 1, 2)
		case 4:
			tri(p, 0, 1, 3)
			tri(p, 1, 2, 3)
		}
		return true
	})
	return hits
}

func newTriangleTest(p Precision, s, e mgl64.Vec3) func(v0, v1, v2 mgl64.Vec3) (geom.TriangleHit, bool) {
	if p == SinglePrecision {
		return geom.NewLineTest32(s, e).Triangle
	}
	return geom.NewLineTest(s, e).Triangle
}

func visitPrimitives(v *Visitor, g *scene.Geometry, query geom.Box, fn func(p *scene.Primitive) bool) {
	if v != nil && v.useSpatialIndex && g.Index != nil {
		g.Index.Visit(query, fn)
		return
	}
	g.EachPrimitive(fn)
}

func newIntersection(v *Visitor, drawable *scene.Node, p *scene.Primitive, hit geom.TriangleHit, corners [3]int) Intersection {
	in := Intersection{
		Drawable:       drawable.ID,
		PrimitiveIndex: p.Index,
		LocalNormal:    hit.Normal,
	}
	if v != nil {
		in.NodePath = v.NodePathIDs()
		in.Matrix = v.frames.Model()
	}
	for i, c := range corners {
		if w := hit.Weights[i]; w != 0 && !math.IsNaN(w) {
			in.Indices = append(in.Indices, p.Indices[c])
			in.Weights = append(in.Weights, w)
		}
	}
	return in
}
