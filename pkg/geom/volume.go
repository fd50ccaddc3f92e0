package geom

import "github.com/go-gl/mathgl/mgl64"

// ClipMask has one bit per plane of a PlaneVolume. A set bit means the plane
// might still reject something in the current subtree.
type ClipMask uint64

// MaxPlanes is the number of planes a ClipMask can track.
const MaxPlanes = 64

// PlaneVolume is a convex region bounded by inward-facing planes, with a
// stack of clip masks that narrows as traversal descends.
type PlaneVolume struct {
	planes []Plane
	masks  []ClipMask
	result ClipMask
}

// NewPlaneVolume builds a volume from planes, dropping any beyond MaxPlanes.
func NewPlaneVolume(planes ...Plane) *PlaneVolume {
	pv := &PlaneVolume{}
	pv.setupMask()
	for _, p := range planes {
		pv.Add(p)
	}
	return pv
}

// NewUnitFrustum returns the clip-space cube [-1,1]^3. The near and far
// planes are optional.
func NewUnitFrustum(near, far bool) *PlaneVolume {
	pv := NewPlaneVolume(
		NewPlane(1, 0, 0, 1),
		NewPlane(-1, 0, 0, 1),
		NewPlane(0, 1, 0, 1),
		NewPlane(0, -1, 0, 1),
	)
	if near {
		pv.Add(NewPlane(0, 0, 1, 1))
	}
	if far {
		pv.Add(NewPlane(0, 0, -1, 1))
	}
	return pv
}

// NewBoxVolume returns the six-plane volume matching b.
func NewBoxVolume(b Box) *PlaneVolume {
	return NewPlaneVolume(
		NewPlane(1, 0, 0, -b.Min[0]),
		NewPlane(-1, 0, 0, b.Max[0]),
		NewPlane(0, 1, 0, -b.Min[1]),
		NewPlane(0, -1, 0, b.Max[1]),
		NewPlane(0, 0, 1, -b.Min[2]),
		NewPlane(0, 0, -1, b.Max[2]),
	)
}

// Add appends a plane and resets the mask stack to cover every plane.
func (pv *PlaneVolume) Add(p Plane) {
	if len(pv.planes) >= MaxPlanes {
		return
	}
	pv.planes = append(pv.planes, p)
	pv.setupMask()
}

func (pv *PlaneVolume) setupMask() {
	var m ClipMask
	for i := range pv.planes {
		m |= 1 << uint(i)
	}
	pv.result = m
	pv.masks = append(pv.masks[:0], m)
}

// Planes returns the plane list. Callers must not modify it.
func (pv *PlaneVolume) Planes() []Plane {
	return pv.planes
}

// Len returns the number of planes.
func (pv *PlaneVolume) Len() int {
	return len(pv.planes)
}

// Empty reports whether the volume has no planes.
func (pv *PlaneVolume) Empty() bool {
	return len(pv.planes) == 0
}

// CurrentMask returns the mask on top of the stack.
func (pv *PlaneVolume) CurrentMask() ClipMask {
	return pv.masks[len(pv.masks)-1]
}

// ResultMask returns the mask narrowed by the last Contains call.
func (pv *PlaneVolume) ResultMask() ClipMask {
	return pv.result
}

// ResetResultMask makes the result mask equal the current mask, as if the
// last Contains call had narrowed nothing.
func (pv *PlaneVolume) ResetResultMask() {
	pv.result = pv.CurrentMask()
}

// PushCurrentMask pushes the mask narrowed by the last Contains call.
func (pv *PlaneVolume) PushCurrentMask() {
	pv.masks = append(pv.masks, pv.result)
}

// PopCurrentMask restores the mask in effect before the matching push. The
// base mask is never popped.
func (pv *PlaneVolume) PopCurrentMask() {
	if len(pv.masks) > 1 {
		pv.masks = pv.masks[:len(pv.masks)-1]
	}
}

// MaskDepth returns the number of pushes not yet popped.
func (pv *PlaneVolume) MaskDepth() int {
	return len(pv.masks) - 1
}

// ContainsPoint reports whether v is inside every active plane.
func (pv *PlaneVolume) ContainsPoint(v mgl64.Vec3) bool {
	mask := pv.CurrentMask()
	for i, p := range pv.planes {
		if mask&(1<<uint(i)) != 0 && p.Distance(v) < 0 {
			return false
		}
	}
	return true
}

// ContainsSphere reports whether s might intersect the volume. Planes that
// s lies wholly inside are cleared from the result mask. Invalid spheres are
// never rejected.
func (pv *PlaneVolume) ContainsSphere(s Sphere) bool {
	pv.result = pv.CurrentMask()
	if pv.result == 0 || !s.Valid() {
		return true
	}
	for i, p := range pv.planes {
		bit := ClipMask(1) << uint(i)
		if pv.result&bit == 0 {
			continue
		}
		switch p.IntersectSphere(s) {
		case -1:
			return false
		case 1:
			pv.result &^= bit
		}
	}
	return true
}

// ContainsBox is ContainsSphere for an axis-aligned box.
func (pv *PlaneVolume) ContainsBox(b Box) bool {
	pv.result = pv.CurrentMask()
	if pv.result == 0 || !b.Valid() {
		return true
	}
	for i, p := range pv.planes {
		bit := ClipMask(1) << uint(i)
		if pv.result&bit == 0 {
			continue
		}
		switch p.IntersectBox(b) {
		case -1:
			return false
		case 1:
			pv.result &^= bit
		}
	}
	return true
}

// Transformed returns a new volume holding the currently active planes
// moved by TransformProvidingInverse(inv). The new volume starts with a
// fresh mask stack.
func (pv *PlaneVolume) Transformed(inv mgl64.Mat4) *PlaneVolume {
	out := NewPlaneVolume()
	mask := pv.CurrentMask()
	for i, p := range pv.planes {
		if mask&(1<<uint(i)) != 0 {
			out.Add(p.TransformProvidingInverse(inv))
		}
	}
	return out
}

// Clone returns a copy with a fresh mask stack.
func (pv *PlaneVolume) Clone() *PlaneVolume {
	return NewPlaneVolume(pv.planes...)
}
