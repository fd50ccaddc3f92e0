package intersect

import (
	"github.com/chazu/sightline/pkg/geom"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Ray finds triangles crossed by the half line from Start along Direction.
// Results are ordered by Distance, measured in the units of the ray's own
// frame.
type Ray struct {
	base
	start   mgl64.Vec3
	dir     mgl64.Vec3
	root    *Ray
	results *ResultSet[Intersection]
}

// NewRay returns a ray query in the given frame.
func NewRay(frame Frame, start, dir mgl64.Vec3) *Ray {
	r := &Ray{
		base:    base{frame: frame},
		start:   start,
		dir:     dir,
		results: newResultSet(NoLimit, lessDistance),
	}
	r.root = r
	return r
}

// NewRayAt returns a ray into the frame through the point (x, y).
func NewRayAt(frame Frame, x, y float64) *Ray {
	start := mgl64.Vec3{x, y, 0}
	if frame == FrameProjection {
		start[2] = -1
	}
	return NewRay(frame, start, mgl64.Vec3{0, 0, 1})
}

// SetLimit sets the result limit policy.
func (r *Ray) SetLimit(l Limit) {
	r.limit = l
	r.results.limit = l
}

// Start returns the origin in the ray's current frame.
func (r *Ray) Start() mgl64.Vec3 { return r.start }

// Direction returns the direction in the ray's current frame.
func (r *Ray) Direction() mgl64.Vec3 { return r.dir }

// Results returns the result set shared by the ray and its clones.
func (r *Ray) Results() *ResultSet[Intersection] { return r.results }

// Intersections returns the hits ordered by distance.
func (r *Ray) Intersections() []Intersection { return r.results.All() }

// FirstIntersection returns the hit nearest the origin.
func (r *Ray) FirstIntersection() (Intersection, bool) { return r.results.First() }

// ContainsIntersections reports whether the ray hit anything.
func (r *Ray) ContainsIntersections() bool { return r.results.Len() > 0 }

// ReachedLimit is true once a LimitOne ray has a hit.
func (r *Ray) ReachedLimit() bool {
	return r.limit == LimitOne && r.results.Len() > 0
}

// Reset drops all recorded hits.
func (r *Ray) Reset() {
	r.disabled = 0
	if r.root == r {
		r.results.Clear()
	}
}

// Clone returns the ray expressed in the current local frame.
func (r *Ray) Clone(f *Frames) Intersector {
	o := r.root
	c := &Ray{
		base:    base{frame: o.frame, limit: o.limit, precision: o.precision},
		start:   o.start,
		dir:     o.dir,
		root:    o,
		results: o.results,
	}
	if _, inv, ok := localMatrix(f, o.frame); ok {
		c.start = mgl64.TransformCoordinate(o.start, inv)
		tip := inv.Mul4x1(o.start.Add(o.dir).Vec4(1))
		c.dir = tip.Vec3().Sub(c.start.Mul(tip[3]))
	}
	return c
}

// Enter rejects subgraphs whose bound the ray misses.
func (r *Ray) Enter(n *scene.Node) bool {
	if r.ReachedLimit() {
		return false
	}
	return !sphereCulled(n, r.intersectsSphere)
}

func (r *Ray) Leave() {}

func (r *Ray) intersectsSphere(bs geom.Sphere) bool {
	if !bs.Valid() {
		return true
	}
	sm := r.start.Sub(bs.Center)
	if sm.LenSqr() < bs.Radius*bs.Radius {
		return true
	}
	r1, r2, ok := geom.SphereRoots(r.start, r.start.Add(r.dir), bs)
	if !ok {
		return false
	}
	if r1 <= 0 && r2 <= 0 {
		return false
	}
	if r.limit == LimitNearest {
		if first, ok := r.results.First(); ok {
			nearest := (sm.Len() - bs.Radius) / r.dir.Len() * r.root.dir.Len()
			if nearest >= first.Distance {
				return false
			}
		}
	}
	return true
}

// Intersect tests g against the ray, clipped to the geometry box first.
func (r *Ray) Intersect(v *Visitor, drawable *scene.Node, g *scene.Geometry) {
	if r.ReachedLimit() {
		return
	}
	dirLen := r.dir.Len()
	if dirLen == 0 {
		return
	}
	s0, e0, ok := geom.ClipRayToBox(r.start, r.dir, g.BoundingBox())
	if !ok {
		return
	}

	seg := NewSegment(r.frame, s0, e0)
	seg.precision = r.precision
	scale := r.root.dir.Len() / dirLen
	offset := s0.Sub(r.start).Len()
	span := e0.Sub(s0).Len()
	hits := seg.eachHit(v, g, func(p *scene.Primitive, ratio float64, hit geom.TriangleHit, corners [3]int) {
		in := newIntersection(v, drawable, p, hit, corners)
		in.Distance = (offset + ratio*span) * scale
		in.LocalPoint = s0.Mul(1 - ratio).Add(e0.Mul(ratio))
		r.results.Insert(in)
	})
	instrumentIntersections("ray", hits)
}
