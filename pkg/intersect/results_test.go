package intersect

import (
	"testing"

	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestResultSetKeepsEqualRatiosInInsertionOrder(t *testing.T) {
	rs := newResultSet(NoLimit, lessRatio)
	for i, r := range []float64{0.5, 0.2, 0.5, 0.9, 0.2} {
		rs.Insert(Intersection{Ratio: r, PrimitiveIndex: i})
	}

	var ratios []float64
	var order []int
	for _, in := range rs.All() {
		ratios = append(ratios, in.Ratio)
		order = append(order, in.PrimitiveIndex)
	}
	require.Equal(t, []float64{0.2, 0.2, 0.5, 0.5, 0.9}, ratios)
	require.Equal(t, []int{1, 4, 0, 2, 3}, order)
}

func TestResultSetOnePerDrawableReplacesFartherHit(t *testing.T) {
	a, b := scene.NewNodeID(), scene.NewNodeID()
	rs := newResultSet(LimitOnePerDrawable, lessRatio)
	rs.Insert(Intersection{Ratio: 0.6, Drawable: a, NodePath: []scene.NodeID{a}})
	rs.Insert(Intersection{Ratio: 0.4, Drawable: b, NodePath: []scene.NodeID{b}})
	rs.Insert(Intersection{Ratio: 0.3, Drawable: a, NodePath: []scene.NodeID{a}})
	rs.Insert(Intersection{Ratio: 0.8, Drawable: b, NodePath: []scene.NodeID{b}})

	require.Equal(t, 2, rs.Len())
	require.Equal(t, 0.3, rs.At(0).Ratio)
	require.Equal(t, a, rs.At(0).Drawable)
	require.Equal(t, 0.4, rs.At(1).Ratio)
}

func TestResultSetNearestKeepsOne(t *testing.T) {
	rs := newResultSet(LimitNearest, lessDistance)
	for _, d := range []float64{3, 1, 2} {
		rs.Insert(Intersection{Distance: d})
	}
	first, ok := rs.First()
	require.True(t, ok)
	require.Equal(t, 1, rs.Len())
	require.Equal(t, 1.0, first.Distance)

	rs.Clear()
	_, ok = rs.First()
	require.False(t, ok)
}

func TestPolytopeOrderingBreaksTies(t *testing.T) {
	lo, hi := scene.NodeID{1}, scene.NodeID{2}
	rs := newResultSet(NoLimit, lessPolytope)
	rs.Insert(PolytopeIntersection{Distance: 1, PrimitiveIndex: 0, NodePath: []scene.NodeID{hi}, Drawable: hi})
	rs.Insert(PolytopeIntersection{Distance: 1, PrimitiveIndex: 0, NodePath: []scene.NodeID{lo}, Drawable: lo})
	rs.Insert(PolytopeIntersection{Distance: 1, PrimitiveIndex: 1, NodePath: []scene.NodeID{lo}, Drawable: lo})
	rs.Insert(PolytopeIntersection{Distance: 0, PrimitiveIndex: 5, NodePath: []scene.NodeID{hi}, Drawable: hi})

	got := rs.All()
	require.Equal(t, 0.0, got[0].Distance)
	require.Equal(t, lo, got[1].Drawable)
	require.Equal(t, 0, got[1].PrimitiveIndex)
	require.Equal(t, hi, got[2].Drawable)
	require.Equal(t, 1, got[3].PrimitiveIndex)
}

func TestWorldNormalUsesInverseTranspose(t *testing.T) {
	m := mgl64.Scale3D(1, 4, 1)
	in := Intersection{
		LocalNormal: mgl64.Vec3{0, 1, 1}.Normalize(),
		Matrix:      &m,
	}
	n := in.WorldNormal()
	require.InDelta(t, 1, n.Len(), 1e-12)
	// Stretching y flattens the surface, so the normal leans toward z.
	require.Greater(t, n[2], n[1])
}
