package scene

import (
	"github.com/chazu/sightline/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Bound returns the node's bounding sphere in its parent's frame. It is
// computed once, on first use. An invalid sphere means the node cannot be
// culled. The scene must be acyclic (see Validate).
func (n *Node) Bound() geom.Sphere {
	n.boundOnce.Do(func() {
		n.bound = n.computeBound()
	})
	return n.bound
}

func (n *Node) computeBound() geom.Sphere {
	switch n.Kind {
	case NodeGeometry:
		g, ok := n.Geometry()
		if !ok {
			return geom.InvalidSphere()
		}
		return geom.SphereFromBox(g.BoundingBox())

	case NodeCamera:
		return geom.InvalidSphere()

	case NodeTransform:
		d, ok := n.TransformData()
		if !ok || d.Reference == AbsoluteRF {
			return geom.InvalidSphere()
		}
		m := d.LocalMatrix()
		s := geom.InvalidSphere()
		for _, c := range n.Children {
			cb, known := childBound(c)
			if !known {
				return geom.InvalidSphere()
			}
			s = s.ExpandSphere(cb.Transformed(m))
		}
		return s

	case NodeBillboard:
		d, _ := n.BillboardData()
		s := geom.InvalidSphere()
		for i, c := range n.Children {
			cb, known := childBound(c)
			if !known {
				return geom.InvalidSphere()
			}
			if !cb.Valid() {
				continue
			}
			// Any rotation about the anchor keeps the child inside this
			// sphere.
			s = s.ExpandSphere(geom.Sphere{
				Center: d.Position(i),
				Radius: cb.Center.Len() + cb.Radius,
			})
		}
		return s

	case NodeLOD, NodePagedLOD:
		if d, ok := n.LODData(); ok && d.Radius > 0 {
			return geom.Sphere{Center: d.Center, Radius: d.Radius}
		}
		if n.Kind == NodePagedLOD {
			d, _ := n.LODData()
			if len(n.Children) < len(d.Ranges) {
				// Content that is not resident yet has no known extent.
				return geom.InvalidSphere()
			}
		}
		return childrenBound(n)

	default:
		return childrenBound(n)
	}
}

// childrenBound unions the children's spheres. A child of unknown extent
// makes the whole bound invalid.
func childrenBound(n *Node) geom.Sphere {
	s := geom.InvalidSphere()
	for _, c := range n.Children {
		cb, known := childBound(c)
		if !known {
			return geom.InvalidSphere()
		}
		s = s.ExpandSphere(cb)
	}
	return s
}

// childBound reports a child's bound and whether its extent is known. Empty
// leaves and childless groups are known to be empty and come back invalid
// with known set.
func childBound(c *Node) (geom.Sphere, bool) {
	if c == nil {
		return geom.InvalidSphere(), true
	}
	cb := c.Bound()
	if cb.Valid() {
		return cb, true
	}
	empty := len(c.Children) == 0 && c.Kind != NodeCamera && c.Kind != NodePagedLOD
	return cb, empty
}

// WorldBound returns the node's bound carried through m.
func (n *Node) WorldBound(m mgl64.Mat4) geom.Sphere {
	return n.Bound().Transformed(m)
}
