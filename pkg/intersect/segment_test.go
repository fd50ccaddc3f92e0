package intersect

import (
	"math/rand"
	"testing"

	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestSegmentHitsUnitTriangle(t *testing.T) {
	for _, p := range []Precision{DoublePrecision, SinglePrecision} {
		t.Run(p.String(), func(t *testing.T) {
			tri := unitTriangle("tri", mgl64.Vec3{})
			seg := zSegment(0.25, 0.25, -1, 1)
			seg.SetPrecision(p)
			NewVisitor(seg).Apply(tri)

			delta := 1e-9
			if p == SinglePrecision {
				delta = 1e-5
			}
			hits := seg.Intersections()
			require.Len(t, hits, 1)
			h := hits[0]
			require.InDelta(t, 0.5, h.Ratio, delta)
			require.InDelta(t, 1.0, h.Distance, 2*delta)
			require.InDelta(t, 0.25, h.LocalPoint[0], delta)
			require.InDelta(t, 0.25, h.LocalPoint[1], delta)
			require.InDelta(t, 0, h.LocalPoint[2], delta)
			require.InDelta(t, 1, h.LocalNormal[2], delta)
			require.Equal(t, []uint32{0, 1, 2}, h.Indices)
			require.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, h.Weights, delta)
			require.Equal(t, tri.ID, h.Drawable)
			require.Equal(t, []scene.NodeID{tri.ID}, h.NodePath)
			require.Nil(t, h.Matrix)
			require.Equal(t, h.LocalPoint, h.WorldPoint())
		})
	}
}

func TestSegmentMissesParallelTriangle(t *testing.T) {
	seg := NewSegment(FrameModel, mgl64.Vec3{-1, 0.25, 0}, mgl64.Vec3{2, 0.25, 0})
	NewVisitor(seg).Apply(unitTriangle("tri", mgl64.Vec3{}))
	require.False(t, seg.ContainsIntersections())
}

func TestSegmentResultsAreOrderedByRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	zs := rng.Perm(20)
	root := scene.NewGroup("root")
	for _, z := range zs {
		root.AddChild(unitTriangle("tri", mgl64.Vec3{0, 0, float64(z + 1)}))
	}

	seg := zSegment(0.2, 0.3, 0, 25)
	NewVisitor(seg).Apply(root)

	hits := seg.Intersections()
	require.Len(t, hits, len(zs))
	for i := 1; i < len(hits); i++ {
		require.Less(t, hits[i-1].Ratio, hits[i].Ratio)
	}
	first, ok := seg.FirstIntersection()
	require.True(t, ok)
	require.InDelta(t, 1, first.LocalPoint[2], 1e-9)
}

func TestSegmentLimits(t *testing.T) {
	build := func() *scene.Node {
		return scene.NewGroup("root",
			stackedTriangles("far", 3, 4),
			stackedTriangles("near", 1, 2),
		)
	}

	tests := []struct {
		limit Limit
		want  []float64
	}{
		{limit: NoLimit, want: []float64{1, 2, 3, 4}},
		{limit: LimitOnePerDrawable, want: []float64{1, 3}},
		{limit: LimitNearest, want: []float64{1}},
	}
	for _, test := range tests {
		t.Run(test.limit.String(), func(t *testing.T) {
			seg := zSegment(0.25, 0.25, 0, 5)
			seg.SetLimit(test.limit)
			NewVisitor(seg).Apply(build())

			var got []float64
			for _, h := range seg.Intersections() {
				got = append(got, h.LocalPoint[2])
			}
			require.InDeltaSlice(t, test.want, got, 1e-9)
		})
	}
}

func TestSegmentLimitOneStopsAfterFirstDrawable(t *testing.T) {
	seg := zSegment(0.25, 0.25, 0, 5)
	seg.SetLimit(LimitOne)
	NewVisitor(seg).Apply(scene.NewGroup("root",
		stackedTriangles("first", 3, 4),
		stackedTriangles("second", 1, 2),
	))

	require.True(t, seg.ReachedLimit())
	hits := seg.Intersections()
	require.Len(t, hits, 1)
	require.InDelta(t, 3, hits[0].LocalPoint[2], 1e-9)
}

func TestSegmentOnePerDrawableKeepsInstancesApart(t *testing.T) {
	shared := stackedTriangles("shared", 0, 0.5)
	root := scene.NewGroup("root",
		translate("a", 0, 0, 1, shared),
		translate("b", 0, 0, 3, shared),
	)
	seg := zSegment(0.25, 0.25, 0, 5)
	seg.SetLimit(LimitOnePerDrawable)
	NewVisitor(seg).Apply(root)

	hits := seg.Intersections()
	require.Len(t, hits, 2)
	require.InDelta(t, 1, hits[0].WorldPoint()[2], 1e-9)
	require.InDelta(t, 3, hits[1].WorldPoint()[2], 1e-9)
	require.Equal(t, shared.ID, hits[0].Drawable)
	require.Equal(t, shared.ID, hits[1].Drawable)
	require.NotEqual(t, hits[0].NodePath, hits[1].NodePath)
}

func TestSegmentThroughTransforms(t *testing.T) {
	tri := unitTriangle("tri", mgl64.Vec3{})
	rot := scene.NewTransform("rot", mgl64.HomogRotate3DX(mgl64.DegToRad(90)), tri)
	root := translate("move", 10, 0, 0, rot)

	// The triangle now lies in the XZ plane at x in [10,11].
	seg := NewSegment(FrameModel, mgl64.Vec3{10.25, -1, 0.25}, mgl64.Vec3{10.25, 1, 0.25})
	NewVisitor(seg).Apply(root)

	hits := seg.Intersections()
	require.Len(t, hits, 1)
	h := hits[0]
	require.InDelta(t, 0.25, h.LocalPoint[0], 1e-9)
	require.InDelta(t, 0.25, h.LocalPoint[1], 1e-9)
	require.InDelta(t, 0, h.LocalPoint[2], 1e-9)

	w := h.WorldPoint()
	require.InDelta(t, 10.25, w[0], 1e-9)
	require.InDelta(t, 0, w[1], 1e-9)
	require.InDelta(t, 0.25, w[2], 1e-9)

	n := h.WorldNormal()
	require.InDelta(t, 1, n.Len(), 1e-9)
	require.InDelta(t, -1, n[1], 1e-9)
	require.Equal(t, []scene.NodeID{root.ID, rot.ID, tri.ID}, h.NodePath)
}

func TestSegmentQuadSplitsIntoTwoTriangles(t *testing.T) {
	q := quadXZ("quad")
	for _, x := range []float64{-0.5, 0.5} {
		seg := NewSegment(FrameModel, mgl64.Vec3{x, -1, x}, mgl64.Vec3{x, 1, x})
		NewVisitor(seg).Apply(q)
		require.Len(t, seg.Intersections(), 1, "x=%v", x)
	}
}

func TestSegmentSpatialIndexMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var verts []mgl64.Vec3
	var idx []uint32
	for i := 0; i < 300; i++ {
		c := mgl64.Vec3{rng.Float64()*4 - 2, rng.Float64()*4 - 2, rng.Float64()*4 - 2}
		for k := 0; k < 3; k++ {
			verts = append(verts, c.Add(mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}))
			idx = append(idx, uint32(len(verts)-1))
		}
	}
	g := scene.BuildIndex(scene.NewTriangles(verts, idx))
	node := scene.NewGeometry("soup", g)

	for i := 0; i < 25; i++ {
		start := mgl64.Vec3{rng.Float64()*6 - 3, rng.Float64()*6 - 3, -4}
		end := mgl64.Vec3{rng.Float64()*6 - 3, rng.Float64()*6 - 3, 4}

		indexed := NewSegment(FrameModel, start, end)
		NewVisitor(indexed).Apply(node)
		linear := NewSegment(FrameModel, start, end)
		NewVisitor(linear, WithSpatialIndex(false)).Apply(node)

		require.Equal(t, linear.Intersections(), indexed.Intersections())
	}
}

func TestSegmentResetClearsResults(t *testing.T) {
	seg := zSegment(0.25, 0.25, -1, 1)
	v := NewVisitor(seg)
	v.Apply(unitTriangle("tri", mgl64.Vec3{}))
	require.True(t, seg.ContainsIntersections())

	seg.Reset()
	require.False(t, seg.ContainsIntersections())
	require.False(t, seg.Disabled())
}

func TestNewSegmentAt(t *testing.T) {
	s := NewSegmentAt(FrameProjection, 0.5, -0.5)
	require.Equal(t, mgl64.Vec3{0.5, -0.5, -1}, s.Start())
	require.Equal(t, mgl64.Vec3{0.5, -0.5, 1}, s.End())

	s = NewSegmentAt(FrameWindow, 10, 20)
	require.Equal(t, mgl64.Vec3{10, 20, 0}, s.Start())
	require.Equal(t, mgl64.Vec3{10, 20, 1}, s.End())
}
