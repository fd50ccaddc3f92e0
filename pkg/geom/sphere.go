package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a bounding sphere. A negative radius marks it invalid, meaning
// the bounded volume is unknown and can never be culled.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// InvalidSphere returns the unbounded/unknown sphere.
func InvalidSphere() Sphere {
	return Sphere{Radius: -1}
}

// SphereFromBox returns the sphere circumscribing b.
func SphereFromBox(b Box) Sphere {
	if !b.Valid() {
		return InvalidSphere()
	}
	return Sphere{Center: b.Center(), Radius: b.Radius()}
}

// Valid reports whether the sphere has a usable radius.
func (s Sphere) Valid() bool {
	return s.Radius >= 0
}

// ExpandSphere returns the smallest sphere containing both s and o.
func (s Sphere) ExpandSphere(o Sphere) Sphere {
	if !o.Valid() {
		return s
	}
	if !s.Valid() {
		return o
	}
	d := o.Center.Sub(s.Center).Len()
	if d+o.Radius <= s.Radius {
		return s
	}
	if d+s.Radius <= o.Radius {
		return o
	}
	r := (s.Radius + d + o.Radius) * 0.5
	center := s.Center.Add(o.Center.Sub(s.Center).Mul((r - s.Radius) / d))
	return Sphere{Center: center, Radius: r}
}

// ExpandBox returns a sphere containing both s and b.
func (s Sphere) ExpandBox(b Box) Sphere {
	return s.ExpandSphere(SphereFromBox(b))
}

// Contains reports whether p lies inside or on the sphere.
func (s Sphere) Contains(p mgl64.Vec3) bool {
	return s.Valid() && p.Sub(s.Center).LenSqr() <= s.Radius*s.Radius
}

// Transformed carries the sphere through an affine matrix. The radius is
// scaled by the largest axis scale so the result still encloses the volume.
func (s Sphere) Transformed(m mgl64.Mat4) Sphere {
	if !s.Valid() {
		return s
	}
	scale := 0.0
	for i := 0; i < 3; i++ {
		scale = math.Max(scale, m.Col(i).Vec3().Len())
	}
	return Sphere{
		Center: mgl64.TransformCoordinate(s.Center, m),
		Radius: s.Radius * scale,
	}
}
