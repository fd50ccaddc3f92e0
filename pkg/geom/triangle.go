package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

const triangleEpsilon = 1e-10

// TriangleHit is an accepted line/triangle crossing.
type TriangleHit struct {
	T       float64    // distance from the line start along the unit direction
	Weights [3]float64 // barycentric weights of v0, v1, v2
	Normal  mgl64.Vec3 // unit normal of (v1-v0) x (v2-v0)
}

// LineTest holds a finite line prepared for repeated triangle tests.
type LineTest struct {
	Start     mgl64.Vec3
	Dir       mgl64.Vec3 // unit direction
	Length    float64
	InvLength float64
}

// NewLineTest prepares the segment s-e.
func NewLineTest(s, e mgl64.Vec3) LineTest {
	d := e.Sub(s)
	l := d.Len()
	inv := 0.0
	if l > 0 {
		inv = 1 / l
	}
	return LineTest{Start: s, Dir: d.Mul(inv), Length: l, InvLength: inv}
}

// Triangle runs the Moller-Trumbore test. Near-parallel and degenerate
// triangles never hit.
func (lt LineTest) Triangle(v0, v1, v2 mgl64.Vec3) (TriangleHit, bool) {
	tv := lt.Start.Sub(v0)
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := lt.Dir.Cross(e2)
	det := p.Dot(e1)

	var u, v, t float64
	switch {
	case det > triangleEpsilon:
		u = p.Dot(tv)
		if u < 0 || u > det {
			return TriangleHit{}, false
		}
		q := tv.Cross(e1)
		v = q.Dot(lt.Dir)
		if v < 0 || v > det || u+v > det {
			return TriangleHit{}, false
		}
		t = q.Dot(e2) / det
	case det < -triangleEpsilon:
		u = p.Dot(tv)
		if u > 0 || u < det {
			return TriangleHit{}, false
		}
		q := tv.Cross(e1)
		v = q.Dot(lt.Dir)
		if v > 0 || v < det || u+v < det {
			return TriangleHit{}, false
		}
		t = q.Dot(e2) / det
	default:
		return TriangleHit{}, false
	}
	if t < 0 || t > lt.Length {
		return TriangleHit{}, false
	}
	u /= det
	v /= det
	return TriangleHit{
		T:       t,
		Weights: [3]float64{1 - u - v, u, v},
		Normal:  e1.Cross(e2).Normalize(),
	}, true
}

// LineTest32 is LineTest carried out in single precision.
type LineTest32 struct {
	Start  mgl32.Vec3
	Dir    mgl32.Vec3
	Length float32
}

// NewLineTest32 prepares the segment s-e in single precision.
func NewLineTest32(s, e mgl64.Vec3) LineTest32 {
	s32, e32 := Vec32(s), Vec32(e)
	d := e32.Sub(s32)
	l := d.Len()
	if l > 0 {
		d = d.Mul(1 / l)
	}
	return LineTest32{Start: s32, Dir: d, Length: l}
}

// Triangle runs the Moller-Trumbore test in single precision and widens the
// result.
func (lt LineTest32) Triangle(v0, v1, v2 mgl64.Vec3) (TriangleHit, bool) {
	a, b, c := Vec32(v0), Vec32(v1), Vec32(v2)
	tv := lt.Start.Sub(a)
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := lt.Dir.Cross(e2)
	det := p.Dot(e1)

	var u, v, t float32
	switch {
	case det > triangleEpsilon:
		u = p.Dot(tv)
		if u < 0 || u > det {
			return TriangleHit{}, false
		}
		q := tv.Cross(e1)
		v = q.Dot(lt.Dir)
		if v < 0 || v > det || u+v > det {
			return TriangleHit{}, false
		}
		t = q.Dot(e2) / det
	case det < -triangleEpsilon:
		u = p.Dot(tv)
		if u > 0 || u < det {
			return TriangleHit{}, false
		}
		q := tv.Cross(e1)
		v = q.Dot(lt.Dir)
		if v > 0 || v < det || u+v < det {
			return TriangleHit{}, false
		}
		t = q.Dot(e2) / det
	default:
		return TriangleHit{}, false
	}
	if t < 0 || t > lt.Length {
		return TriangleHit{}, false
	}
	u /= det
	v /= det
	return TriangleHit{
		T:       float64(t),
		Weights: [3]float64{float64(1 - u - v), float64(u), float64(v)},
		Normal:  Vec64(e1.Cross(e2).Normalize()),
	}, true
}

// Vec32 narrows a vector to single precision.
func Vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// Vec64 widens a single precision vector.
func Vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
