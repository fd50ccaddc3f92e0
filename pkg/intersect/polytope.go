package intersect

import (
	"math"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxPolytopePoints caps the clipped vertices kept per polytope hit.
const MaxPolytopePoints = 6

// Polytope finds primitives lying at least partly inside a convex volume.
// Results are ranked by signed distance from a reference plane.
type Polytope struct {
	base
	volume    *geom.PlaneVolume
	reference geom.Plane
	mask      PrimitiveMask
	root      *Polytope
	results   *ResultSet[PolytopeIntersection]

	ring    []mgl64.Vec3
	scratch []mgl64.Vec3
}

// NewPolytope returns a polytope query over volume in the given frame. The
// last plane of the volume is the reference plane.
func NewPolytope(frame Frame, volume *geom.PlaneVolume) *Polytope {
	p := &Polytope{
		base:    base{frame: frame},
		volume:  volume,
		mask:    AllPrimitives,
		results: newResultSet(NoLimit, lessPolytope),
	}
	if planes := volume.Planes(); len(planes) > 0 {
		p.reference = planes[len(planes)-1]
	}
	p.root = p
	return p
}

// NewPolytopeWindow returns a polytope covering the rectangle
// [xMin,xMax]x[yMin,yMax] of a window or projection frame, bounded by the
// near plane.
func NewPolytopeWindow(frame Frame, xMin, yMin, xMax, yMax float64) *Polytope {
	zNear := 0.0
	if frame == FrameProjection {
		zNear = 1
	}
	return NewPolytope(frame, geom.NewPlaneVolume(
		geom.NewPlane(1, 0, 0, -xMin),
		geom.NewPlane(-1, 0, 0, xMax),
		geom.NewPlane(0, 1, 0, -yMin),
		geom.NewPlane(0, -1, 0, yMax),
		geom.NewPlane(0, 0, 1, zNear),
	))
}

// SetLimit sets the result limit policy.
func (p *Polytope) SetLimit(l Limit) {
	p.limit = l
	p.results.limit = l
}

// SetReferencePlane sets the plane results are ranked by.
func (p *Polytope) SetReferencePlane(pl geom.Plane) { p.reference = pl }

// ReferencePlane returns the plane results are ranked by.
func (p *Polytope) ReferencePlane() geom.Plane { return p.reference }

// SetPrimitiveMask restricts which primitive kinds are tested.
func (p *Polytope) SetPrimitiveMask(m PrimitiveMask) { p.mask = m }

// PrimitiveMask returns the primitive kinds tested.
func (p *Polytope) PrimitiveMask() PrimitiveMask { return p.mask }

// Volume returns the polytope's planes in its current frame.
func (p *Polytope) Volume() *geom.PlaneVolume { return p.volume }

// Results returns the result set shared by the polytope and its clones.
func (p *Polytope) Results() *ResultSet[PolytopeIntersection] { return p.results }

// Intersections returns the hits ranked by reference plane distance.
func (p *Polytope) Intersections() []PolytopeIntersection { return p.results.All() }

// FirstIntersection returns the hit nearest the reference plane.
func (p *Polytope) FirstIntersection() (PolytopeIntersection, bool) { return p.results.First() }

// ContainsIntersections reports whether any primitive fell inside.
func (p *Polytope) ContainsIntersections() bool { return p.results.Len() > 0 }

// ReachedLimit reports whether a LimitOne polytope already has a hit.
func (p *Polytope) ReachedLimit() bool {
	return p.limit == LimitOne && p.results.Len() > 0
}

// Reset empties the results and the plane mask stack.
func (p *Polytope) Reset() {
	p.disabled = 0
	for p.volume.MaskDepth() > 0 {
		p.volume.PopCurrentMask()
	}
	if p.root == p {
		p.results.Clear()
	}
}

// Clone transforms the planes and reference plane into the local frame.
func (p *Polytope) Clone(f *Frames) Intersector {
	r := p.root
	c := &Polytope{
		base:      base{frame: r.frame, limit: r.limit, precision: r.precision},
		reference: r.reference,
		mask:      r.mask,
		root:      r,
		results:   r.results,
	}
	if m, _, ok := localMatrix(f, r.frame); ok {
		c.volume = r.volume.Transformed(m)
		c.reference = r.reference.TransformProvidingInverse(m)
	} else {
		c.volume = r.volume.Clone()
	}
	return c
}

// Enter pushes the active plane mask for n, or culls it.
func (p *Polytope) Enter(n *scene.Node) bool {
	if p.ReachedLimit() {
		return false
	}
	if n.CullingDisabled {
		p.volume.ResetResultMask()
	} else if !p.volume.ContainsSphere(n.Bound()) {
		return false
	}
	p.volume.PushCurrentMask()
	return true
}

// Leave pops the plane mask pushed by Enter.
func (p *Polytope) Leave() {
	p.volume.PopCurrentMask()
}

// Intersect clips each primitive of g against the active planes.
func (p *Polytope) Intersect(v *Visitor, drawable *scene.Node, g *scene.Geometry) {
	if p.ReachedLimit() {
		return
	}
	box := g.BoundingBox()
	if !p.volume.ContainsBox(box) {
		return
	}
	p.volume.PushCurrentMask()
	defer p.volume.PopCurrentMask()

	hits := 0
	record := func(prim *scene.Primitive, points []mgl64.Vec3) {
		in := p.newIntersection(v, drawable, prim, points)
		p.results.Insert(in)
		hits++
	}
	visitPrimitives(v, g, box, func(prim *scene.Primitive) bool {
		switch prim.Count {
		case 1:
			if p.mask&PointPrimitives != 0 && p.volume.ContainsPoint(prim.Vertices[0]) {
				record(prim, prim.Vertices[:1])
			}
		case 2:
			if p.mask&LinePrimitives != 0 {
				if pts := p.clip(prim.Vertices[0], prim.Vertices[1]); pts != nil {
					record(prim, pts)
				}
			}
		case 3:
			if p.mask&TrianglePrimitives != 0 {
				if pts := p.clip(prim.Vertices[0], prim.Vertices[1], prim.Vertices[2]); pts != nil {
					record(prim, pts)
				}
			}
		case 4:
			if p.mask&TrianglePrimitives != 0 {
				vs := prim.Vertices
				if pts := p.clip(vs[0], vs[1], vs[3]); pts != nil {
					record(prim, pts)
				}
				if pts := p.clip(vs[1], vs[2], vs[3]); pts != nil {
					record(prim, pts)
				}
			}
		}
		return true
	})
	instrumentIntersections("polytope", hits)
}

// clip returns the part of the polygon inside the active planes with the
// closing vertex and repeated crossings removed, or nil when the polygon
// falls outside.
func (p *Polytope) clip(vs ...mgl64.Vec3) []mgl64.Vec3 {
	p.ring = append(p.ring[:0], vs...)
	p.ring = append(p.ring, vs[0])
	if cap(p.scratch) < 2*len(p.ring) {
		p.scratch = make([]mgl64.Vec3, 0, 2*len(p.ring)+8)
	}
	out := geom.ClipRing(p.volume.Planes(), p.volume.CurrentMask(), p.ring, p.scratch)
	if out == nil {
		return nil
	}
	out = geom.OpenRing(out)
	n := 1
	for _, pt := range out[1:] {
		if pt != out[n-1] {
			out[n] = pt
			n++
		}
	}
	return out[:n]
}

func (p *Polytope) newIntersection(v *Visitor, drawable *scene.Node, prim *scene.Primitive, points []mgl64.Vec3) PolytopeIntersection {
	in := PolytopeIntersection{
		Drawable:       drawable.ID,
		PrimitiveIndex: prim.Index,
		MaxDistance:    math.Inf(-1),
	}
	if v != nil {
		in.NodePath = v.NodePathIDs()
		in.Matrix = v.frames.Model()
	}
	var center mgl64.Vec3
	for _, pt := range points {
		center = center.Add(pt)
		in.MaxDistance = math.Max(in.MaxDistance, p.reference.Distance(pt))
	}
	in.LocalPoint = center.Mul(1 / float64(len(points)))
	in.Distance = p.reference.Distance(in.LocalPoint)
	n := min(len(points), MaxPolytopePoints)
	in.Points = append([]mgl64.Vec3(nil), points[:n]...)
	return in
}
