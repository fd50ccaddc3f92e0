package geom

import "github.com/go-gl/mathgl/mgl64"

// Plane is the half-space boundary a*x + b*y + c*z + d = 0. Points with a
// non-negative distance lie on the inside.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// NewPlane builds a plane from its four coefficients.
func NewPlane(a, b, c, d float64) Plane {
	return Plane{Normal: mgl64.Vec3{a, b, c}, D: d}
}

// PlaneFromPoint builds the plane with the given normal through p.
func PlaneFromPoint(normal, p mgl64.Vec3) Plane {
	return Plane{Normal: normal, D: -normal.Dot(p)}
}

// Vec4 returns the plane coefficients.
func (p Plane) Vec4() mgl64.Vec4 {
	return p.Normal.Vec4(p.D)
}

// Distance returns the signed distance of v from the plane, scaled by the
// normal's length.
func (p Plane) Distance(v mgl64.Vec3) float64 {
	return p.Normal.Dot(v) + p.D
}

// Normalized returns the plane scaled to a unit normal. Degenerate planes
// are returned unchanged.
func (p Plane) Normalized() Plane {
	l := p.Normal.Len()
	if l == 0 {
		return p
	}
	inv := 1 / l
	return Plane{Normal: p.Normal.Mul(inv), D: p.D * inv}
}

// Flipped returns the plane with the inside and outside swapped.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Mul(-1), D: -p.D}
}

// IntersectSphere classifies s against the plane: 1 when it lies wholly on
// the inside, -1 when wholly outside, 0 when it straddles.
func (p Plane) IntersectSphere(s Sphere) int {
	d := p.Distance(s.Center)
	switch {
	case d > s.Radius:
		return 1
	case d < -s.Radius:
		return -1
	default:
		return 0
	}
}

// IntersectBox classifies b against the plane like IntersectSphere, using
// the corners nearest and farthest along the normal.
func (p Plane) IntersectBox(b Box) int {
	lower, upper := b.Max, b.Min
	for i := 0; i < 3; i++ {
		if p.Normal[i] >= 0 {
			lower[i], upper[i] = b.Min[i], b.Max[i]
		}
	}
	if p.Distance(lower) > 0 {
		return 1
	}
	if p.Distance(upper) < 0 {
		return -1
	}
	return 0
}

// TransformProvidingInverse moves the plane into the frame whose points are
// reached by the inverse of inv. For a local-to-world matrix M, passing M
// yields the local plane of a world plane.
func (p Plane) TransformProvidingInverse(inv mgl64.Mat4) Plane {
	v := inv.Transpose().Mul4x1(p.Vec4())
	return Plane{Normal: v.Vec3(), D: v[3]}.Normalized()
}
