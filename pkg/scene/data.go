package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is the payload of a plain group.
type GroupData struct {
	Description string
}

func (GroupData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// ReferenceFrame says whether a node's matrices compose with the inherited
// ones or replace them.
type ReferenceFrame int

const (
	RelativeRF ReferenceFrame = iota // compose with the parent
	AbsoluteRF                       // ignore the parent
)

func (r ReferenceFrame) String() string {
	if r == AbsoluteRF {
		return "absolute"
	}
	return "relative"
}

// TransformData is the local-to-parent placement of the node's children.
// When Matrix is set it wins over the components.
type TransformData struct {
	Translation *mgl64.Vec3
	Rotation    *mgl64.Vec3 // Euler angles in degrees, applied X, then Y, then Z
	Scale       *mgl64.Vec3
	Matrix      *mgl64.Mat4
	Reference   ReferenceFrame
}

func (TransformData) nodeData() {}

// LocalMatrix returns the local-to-parent matrix.
func (d TransformData) LocalMatrix() mgl64.Mat4 {
	if d.Matrix != nil {
		return *d.Matrix
	}
	m := mgl64.Ident4()
	if d.Translation != nil {
		t := *d.Translation
		m = mgl64.Translate3D(t[0], t[1], t[2])
	}
	if d.Rotation != nil {
		r := *d.Rotation
		m = m.Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(r[2])))
		m = m.Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(r[1])))
		m = m.Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(r[0])))
	}
	if d.Scale != nil {
		s := *d.Scale
		m = m.Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// ---------------------------------------------------------------------------
// Projection
// ---------------------------------------------------------------------------

// ProjectionData replaces the projection matrix for its subtree.
type ProjectionData struct {
	Matrix mgl64.Mat4
}

func (ProjectionData) nodeData() {}

// ---------------------------------------------------------------------------
// Camera
// ---------------------------------------------------------------------------

// MultiplyOrder controls how a relative camera composes with the inherited
// projection and view.
type MultiplyOrder int

const (
	PreMultiply  MultiplyOrder = iota // camera view folds into the model matrix
	PostMultiply                      // camera matrices apply after the parent's
)

// Viewport is a device-pixel rectangle.
type Viewport struct {
	X, Y, Width, Height float64
}

// WindowMatrix maps normalized device coordinates to window coordinates.
func (v Viewport) WindowMatrix() mgl64.Mat4 {
	return mgl64.Translate3D(v.X, v.Y, 0).
		Mul4(mgl64.Scale3D(0.5*v.Width, 0.5*v.Height, 0.5)).
		Mul4(mgl64.Translate3D(1, 1, 1))
}

// CameraData opens a new viewing context.
type CameraData struct {
	Projection mgl64.Mat4
	View       mgl64.Mat4
	Reference  ReferenceFrame
	Order      MultiplyOrder
	Viewport   *Viewport
}

func (CameraData) nodeData() {}

// ---------------------------------------------------------------------------
// Billboard
// ---------------------------------------------------------------------------

// BillboardMode selects how children are turned toward the eye.
type BillboardMode int

const (
	BillboardAxialRot    BillboardMode = iota // rotate about Axis only
	BillboardPointRotEye                      // rotate Normal straight at the eye
)

var (
	defaultBillboardAxis   = mgl64.Vec3{0, 0, 1}
	defaultBillboardNormal = mgl64.Vec3{0, -1, 0}
)

// BillboardData turns each child, placed at its own position, to face the
// eye. Zero Axis and Normal default to +Z and -Y.
type BillboardData struct {
	Mode      BillboardMode
	Axis      mgl64.Vec3
	Normal    mgl64.Vec3
	Positions []mgl64.Vec3
}

func (BillboardData) nodeData() {}

// Position returns the anchor of child i; missing anchors are the origin.
func (d BillboardData) Position(i int) mgl64.Vec3 {
	if i < len(d.Positions) {
		return d.Positions[i]
	}
	return mgl64.Vec3{}
}

// ComputeMatrix returns modelView followed by the child's placement: a
// rotation turning the billboard toward eyeLocal, then a translation to pos.
// eyeLocal is the eye in the billboard's own frame.
func (d BillboardData) ComputeMatrix(modelView mgl64.Mat4, eyeLocal, pos mgl64.Vec3) mgl64.Mat4 {
	axis, normal := d.Axis, d.Normal
	if axis.LenSqr() == 0 {
		axis = defaultBillboardAxis
	}
	if normal.LenSqr() == 0 {
		normal = defaultBillboardNormal
	}
	axis, normal = axis.Normalize(), normal.Normalize()

	rot := mgl64.Ident4()
	ev := eyeLocal.Sub(pos)
	switch d.Mode {
	case BillboardPointRotEye:
		if ev.LenSqr() > 0 {
			rot = mgl64.QuatBetweenVectors(normal, ev.Normalize()).Mat4()
		}
	default:
		evp := ev.Sub(axis.Mul(ev.Dot(axis)))
		np := normal.Sub(axis.Mul(normal.Dot(axis)))
		if evp.LenSqr() > 0 && np.LenSqr() > 0 {
			angle := math.Atan2(np.Cross(evp).Dot(axis), np.Dot(evp))
			rot = mgl64.HomogRotate3D(angle, axis)
		}
	}
	return modelView.Mul4(mgl64.Translate3D(pos[0], pos[1], pos[2])).Mul4(rot)
}

// ---------------------------------------------------------------------------
// Level of detail
// ---------------------------------------------------------------------------

// RangeMode says what LOD ranges measure.
type RangeMode int

const (
	DistanceFromEye   RangeMode = iota // smaller range start is finer
	PixelSizeOnScreen                  // larger range start is finer
)

// Range is the [Min, Max) interval over which a child is shown.
type Range struct {
	Min, Max float64
}

// LODData pairs Ranges[i] with Children[i]. For paged nodes, FileNames[i]
// names the file holding child i when it is not resident; an index past the
// end uses the last name.
type LODData struct {
	Mode         RangeMode
	Ranges       []Range
	FileNames    []string
	DatabasePath string

	// Center and Radius give a user bound when Radius > 0, so that
	// non-resident children can still be culled.
	Center mgl64.Vec3
	Radius float64
}

func (LODData) nodeData() {}

// HighestDetail returns the range start of the finest level.
func (d LODData) HighestDetail() float64 {
	if d.Mode == PixelSizeOnScreen {
		target := 0.0
		for _, r := range d.Ranges {
			target = math.Max(target, r.Min)
		}
		return target
	}
	target := math.MaxFloat64
	for _, r := range d.Ranges {
		target = math.Min(target, r.Min)
	}
	return target
}

// FileName returns the database-relative file for range i, or "" when the
// node names no files.
func (d LODData) FileName(i int) string {
	if len(d.FileNames) == 0 {
		return ""
	}
	if i >= len(d.FileNames) {
		i = len(d.FileNames) - 1
	}
	if d.FileNames[i] == "" {
		return ""
	}
	return d.DatabasePath + d.FileNames[i]
}

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// GeometryData holds a drawable.
type GeometryData struct {
	Geometry *Geometry
}

func (GeometryData) nodeData() {}
