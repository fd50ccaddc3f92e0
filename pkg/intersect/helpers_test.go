package intersect

import (
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// unitTriangle is (0,0,0)-(1,0,0)-(0,1,0) translated by off.
func unitTriangle(name string, off mgl64.Vec3) *scene.Node {
	return scene.NewGeometry(name, scene.NewTriangles([]mgl64.Vec3{
		off,
		off.Add(mgl64.Vec3{1, 0, 0}),
		off.Add(mgl64.Vec3{0, 1, 0}),
	}, []uint32{0, 1, 2}))
}

// stackedTriangles returns one drawable holding a unit triangle at each z.
func stackedTriangles(name string, zs ...float64) *scene.Node {
	var verts []mgl64.Vec3
	var idx []uint32
	for _, z := range zs {
		base := uint32(len(verts))
		verts = append(verts, mgl64.Vec3{0, 0, z}, mgl64.Vec3{1, 0, z}, mgl64.Vec3{0, 1, z})
		idx = append(idx, base, base+1, base+2)
	}
	return scene.NewGeometry(name, scene.NewTriangles(verts, idx))
}

// quadXZ is a 2x2 quad centered on the origin in the XZ plane.
func quadXZ(name string) *scene.Node {
	return scene.NewGeometry(name, &scene.Geometry{
		Vertices: []mgl64.Vec3{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}},
		Primitives: []scene.PrimitiveSet{
			{Mode: scene.ModeQuads, Indices: []uint32{0, 1, 2, 3}},
		},
	})
}

func translate(name string, x, y, z float64, children ...*scene.Node) *scene.Node {
	return scene.NewTransform(name, mgl64.Translate3D(x, y, z), children...)
}

func zSegment(x, y, z0, z1 float64) *Segment {
	return NewSegment(FrameModel, mgl64.Vec3{x, y, z0}, mgl64.Vec3{x, y, z1})
}
