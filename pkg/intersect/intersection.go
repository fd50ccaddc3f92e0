package intersect

import (
	"strings"

	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Intersection is one segment or ray hit. Records are immutable once
// inserted.
type Intersection struct {
	// Ratio is the position along a segment query, 0 at the start and 1 at
	// the end. Ray hits leave it zero.
	Ratio float64

	// Distance from the query start, in the units of the query's own
	// frame.
	Distance float64

	NodePath []scene.NodeID // root to the drawable, inclusive
	Drawable scene.NodeID

	// Matrix is the drawable's local-to-world matrix; nil means identity.
	Matrix *mgl64.Mat4

	PrimitiveIndex int
	LocalPoint     mgl64.Vec3
	LocalNormal    mgl64.Vec3

	// Indices and Weights name the vertices with non-zero barycentric
	// weight at the hit.
	Indices []uint32
	Weights []float64
}

// WorldPoint returns the hit point in world coordinates.
func (in Intersection) WorldPoint() mgl64.Vec3 {
	if in.Matrix == nil {
		return in.LocalPoint
	}
	return mgl64.TransformCoordinate(in.LocalPoint, *in.Matrix)
}

// WorldNormal returns the unit surface normal in world coordinates.
func (in Intersection) WorldNormal() mgl64.Vec3 {
	if in.Matrix == nil {
		return in.LocalNormal
	}
	return worldNormal(in.LocalNormal, *in.Matrix)
}

func (in Intersection) instanceKey() string {
	return instanceKey(in.NodePath, in.Drawable)
}

// PolytopeIntersection is one primitive found inside a polytope query.
type PolytopeIntersection struct {
	// Distance is the reference plane's signed distance to LocalPoint;
	// MaxDistance the largest over the clipped polygon.
	Distance    float64
	MaxDistance float64

	NodePath []scene.NodeID
	Drawable scene.NodeID
	Matrix   *mgl64.Mat4

	PrimitiveIndex int

	// LocalPoint is the centroid of the part of the primitive inside the
	// polytope; Points holds up to MaxPolytopePoints of its vertices.
	LocalPoint mgl64.Vec3
	Points     []mgl64.Vec3
}

// WorldPoint returns the centroid in world coordinates.
func (in PolytopeIntersection) WorldPoint() mgl64.Vec3 {
	if in.Matrix == nil {
		return in.LocalPoint
	}
	return mgl64.TransformCoordinate(in.LocalPoint, *in.Matrix)
}

func (in PolytopeIntersection) instanceKey() string {
	return instanceKey(in.NodePath, in.Drawable)
}

// lessPolytope orders by distance, then primitive index, node path and
// drawable, so equal distances still sort deterministically.
func lessPolytope(a, b PolytopeIntersection) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.PrimitiveIndex != b.PrimitiveIndex {
		return a.PrimitiveIndex < b.PrimitiveIndex
	}
	if c := comparePaths(a.NodePath, b.NodePath); c != 0 {
		return c < 0
	}
	return a.Drawable.Compare(b.Drawable) < 0
}

func comparePaths(a, b []scene.NodeID) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func instanceKey(path []scene.NodeID, drawable scene.NodeID) string {
	var sb strings.Builder
	sb.Grow((len(path) + 1) * 16)
	for _, id := range path {
		sb.Write(id[:])
	}
	sb.Write(drawable[:])
	return sb.String()
}

func worldNormal(n mgl64.Vec3, m mgl64.Mat4) mgl64.Vec3 {
	nm := m.Mat3().Inv().Transpose()
	w := nm.Mul3x1(n)
	if w.LenSqr() == 0 {
		return n
	}
	return w.Normalize()
}
