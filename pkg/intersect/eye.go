package intersect

import "github.com/go-gl/mathgl/mgl64"

// EyePoint returns the reference eye point in the current local frame. The
// result is cached until a matrix stack changes.
func (v *Visitor) EyePoint() mgl64.Vec3 {
	if v.eyeValid && v.eyeVersion == v.frames.Version() {
		return v.eye
	}
	v.eye = v.eyeRef
	if m, ok := v.frames.Composed(v.eyeFrame); ok {
		v.eye = mgl64.TransformCoordinate(v.eyeRef, m.Inv())
	}
	v.eyeVersion = v.frames.Version()
	v.eyeValid = true
	return v.eye
}

// ReferenceEyePoint returns the eye point and the frame it is given in.
func (v *Visitor) ReferenceEyePoint() (Frame, mgl64.Vec3) {
	return v.eyeFrame, v.eyeRef
}

// DistanceToEyePoint returns the local distance from pos to the eye point
// when levels are selected by eye point, and 0 otherwise.
func (v *Visitor) DistanceToEyePoint(pos mgl64.Vec3) float64 {
	if v.lodSelection != UseEyePointForLODLevelSelection {
		return 0
	}
	return pos.Sub(v.EyePoint()).Len()
}

// DistanceFromEyePoint is DistanceToEyePoint; intersection traversals have
// no view direction to measure depth along.
func (v *Visitor) DistanceFromEyePoint(pos mgl64.Vec3) float64 {
	return v.DistanceToEyePoint(pos)
}
