package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

var (
	tri0 = mgl64.Vec3{0, 0, 0}
	tri1 = mgl64.Vec3{1, 0, 0}
	tri2 = mgl64.Vec3{0, 1, 0}
)

func TestLineTestTriangle(t *testing.T) {
	lt := NewLineTest(mgl64.Vec3{0.25, 0.25, -1}, mgl64.Vec3{0.25, 0.25, 1})
	hit, ok := lt.Triangle(tri0, tri1, tri2)
	require.True(t, ok)
	require.InDelta(t, 0.5, hit.T*lt.InvLength, 1e-12)
	require.InDelta(t, 0.5, hit.Weights[0], 1e-12)
	require.InDelta(t, 0.25, hit.Weights[1], 1e-12)
	require.InDelta(t, 0.25, hit.Weights[2], 1e-12)
	require.True(t, hit.Normal.ApproxEqual(mgl64.Vec3{0, 0, 1}))

	p := lt.Start.Add(lt.Dir.Mul(hit.T))
	require.True(t, p.ApproxEqual(mgl64.Vec3{0.25, 0.25, 0}))
}

func TestLineTestTriangleWindingIndependent(t *testing.T) {
	lt := NewLineTest(mgl64.Vec3{0.25, 0.25, 1}, mgl64.Vec3{0.25, 0.25, -1})
	hit, ok := lt.Triangle(tri0, tri1, tri2)
	require.True(t, ok)
	require.InDelta(t, 1, hit.T, 1e-12)

	hit, ok = lt.Triangle(tri0, tri2, tri1)
	require.True(t, ok)
	require.True(t, hit.Normal.ApproxEqual(mgl64.Vec3{0, 0, -1}))
}

func TestLineTestTriangleMisses(t *testing.T) {
	tests := []struct {
		name string
		s, e mgl64.Vec3
	}{
		{"outside edge", mgl64.Vec3{0.75, 0.75, -1}, mgl64.Vec3{0.75, 0.75, 1}},
		{"too short", mgl64.Vec3{0.25, 0.25, -1}, mgl64.Vec3{0.25, 0.25, -0.5}},
		{"parallel", mgl64.Vec3{-1, 0.25, 0}, mgl64.Vec3{1, 0.25, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NewLineTest(tt.s, tt.e).Triangle(tri0, tri1, tri2)
			require.False(t, ok)
		})
	}
}

func TestDegenerateTriangleIsSkipped(t *testing.T) {
	lt := NewLineTest(mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 0, 1})
	_, ok := lt.Triangle(tri0, tri0, tri1)
	require.False(t, ok)
}

func TestLineTest32MatchesDouble(t *testing.T) {
	s, e := mgl64.Vec3{0.25, 0.25, -1}, mgl64.Vec3{0.25, 0.25, 1}
	want, ok := NewLineTest(s, e).Triangle(tri0, tri1, tri2)
	require.True(t, ok)

	got, ok := NewLineTest32(s, e).Triangle(tri0, tri1, tri2)
	require.True(t, ok)
	require.InDelta(t, want.T, got.T, 1e-6)
	for i := range want.Weights {
		require.InDelta(t, want.Weights[i], got.Weights[i], 1e-6)
	}
	require.True(t, got.Normal.ApproxEqualThreshold(want.Normal, 1e-6))
}
