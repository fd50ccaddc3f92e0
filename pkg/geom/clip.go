package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	segmentClipEpsilon = 1e-5
	rayClipEpsilon     = 1e-6
)

// ClipSegmentToBox shrinks the segment s-e to the part that can lie inside
// b. The clipped ends are widened by a small parametric margin so hits on
// the box faces survive. It reports false when the segment misses b on any
// axis.
func ClipSegmentToBox(s, e mgl64.Vec3, b Box) (mgl64.Vec3, mgl64.Vec3, bool) {
	for i := 0; i < 3; i++ {
		if s[i] <= e[i] {
			if e[i] < b.Min[i] || s[i] > b.Max[i] {
				return s, e, false
			}
			if s[i] < b.Min[i] {
				r := (b.Min[i]-s[i])/(e[i]-s[i]) - segmentClipEpsilon
				if r > 0 {
					s = s.Add(e.Sub(s).Mul(r))
				}
			}
			if e[i] > b.Max[i] {
				r := (b.Max[i]-s[i])/(e[i]-s[i]) + segmentClipEpsilon
				if r < 1 {
					e = s.Add(e.Sub(s).Mul(r))
				}
			}
		} else {
			if s[i] < b.Min[i] || e[i] > b.Max[i] {
				return s, e, false
			}
			if e[i] < b.Min[i] {
				r := (b.Min[i]-e[i])/(s[i]-e[i]) - segmentClipEpsilon
				if r > 0 {
					e = e.Add(s.Sub(e).Mul(r))
				}
			}
			if s[i] > b.Max[i] {
				r := (b.Max[i]-e[i])/(s[i]-e[i]) + segmentClipEpsilon
				if r < 1 {
					s = e.Add(s.Sub(e).Mul(r))
				}
			}
		}
	}
	return s, e, true
}

// ClipRayToBox turns the ray from s along d into a finite segment covering
// its passage through b. Axes whose direction component is below epsilon do
// not bound the far end; when no axis does, the ray is reported as missing.
func ClipRayToBox(s, d mgl64.Vec3, b Box) (mgl64.Vec3, mgl64.Vec3, bool) {
	for i := 0; i < 3; i++ {
		if d[i] >= 0 {
			if s[i] > b.Max[i] {
				return s, s, false
			}
			if d[i] > rayClipEpsilon && s[i] < b.Min[i] {
				t := (b.Min[i]-s[i])/d[i] - rayClipEpsilon
				if t > 0 {
					s = s.Add(d.Mul(t))
				}
			}
		} else {
			if s[i] < b.Min[i] {
				return s, s, false
			}
			if d[i] < -rayClipEpsilon && s[i] > b.Max[i] {
				t := (b.Max[i]-s[i])/d[i] - rayClipEpsilon
				if t > 0 {
					s = s.Add(d.Mul(t))
				}
			}
		}
	}

	end := math.Inf(1)
	for i := 0; i < 3; i++ {
		switch {
		case d[i] >= rayClipEpsilon:
			end = math.Min(end, (b.Max[i]-s[i])/d[i]+rayClipEpsilon)
		case d[i] <= -rayClipEpsilon:
			end = math.Min(end, (b.Min[i]-s[i])/d[i]+rayClipEpsilon)
		}
	}
	if math.IsInf(end, 1) {
		return s, s, false
	}
	return s, s.Add(d.Mul(end)), true
}

// SphereRoots solves |s + t(e-s) - c|^2 = r^2 for t. It reports false when
// the line misses the sphere or s equals e.
func SphereRoots(s, e mgl64.Vec3, sph Sphere) (float64, float64, bool) {
	se := e.Sub(s)
	sm := s.Sub(sph.Center)
	a := se.LenSqr()
	if a == 0 {
		return 0, 0, false
	}
	b := 2 * sm.Dot(se)
	c := sm.LenSqr() - sph.Radius*sph.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, false
	}
	disc = math.Sqrt(disc)
	inv := 1 / (2 * a)
	return (-b - disc) * inv, (-b + disc) * inv, true
}
