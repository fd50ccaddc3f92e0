package geom

import "github.com/go-gl/mathgl/mgl64"

// ClipRing clips a closed vertex ring (first vertex repeated at the end)
// against every plane selected by mask, Sutherland-Hodgman style. The
// returned ring is empty when the primitive falls outside the volume, i.e.
// when a plane leaves one vertex or none. Each pass re-closes the ring. Both ring and scratch serve as
// work space and are overwritten.
func ClipRing(planes []Plane, mask ClipMask, ring, scratch []mgl64.Vec3) []mgl64.Vec3 {
	src, dst := ring, scratch[:0]
	for i, p := range planes {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		dst = dst[:0]
		prev := src[0]
		dPrev := p.Distance(prev)
		for _, cur := range src[1:] {
			dCur := p.Distance(cur)
			if dPrev >= 0 {
				dst = append(dst, prev)
			}
			if dPrev*dCur < 0 {
				r := dPrev / (dPrev - dCur)
				dst = append(dst, prev.Mul(1-r).Add(cur.Mul(r)))
			}
			prev, dPrev = cur, dCur
		}
		if dPrev >= 0 {
			dst = append(dst, prev)
		}
		if len(dst) <= 1 {
			return nil
		}
		if dst[0] != dst[len(dst)-1] {
			dst = append(dst, dst[0])
		}
		src, dst = dst, src
	}
	return src
}

// OpenRing drops the closing vertex of a ring when it repeats the first.
func OpenRing(ring []mgl64.Vec3) []mgl64.Vec3 {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		return ring[:n-1]
	}
	return ring
}
