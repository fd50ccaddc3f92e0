package kernel

import (
	"slices"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which scene node this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i in double precision.
func (m *Mesh) Vertex(i int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(m.Vertices[3*i]),
		float64(m.Vertices[3*i+1]),
		float64(m.Vertices[3*i+2]),
	}
}

// Bounds returns the box around every vertex.
func (m *Mesh) Bounds() geom.Box {
	b := geom.EmptyBox()
	for i := 0; i < m.VertexCount(); i++ {
		b = b.ExpandPoint(m.Vertex(i))
	}
	return b
}

// Transformed returns a copy of the mesh with positions mapped by mat and
// normals by its inverse transpose.
func (m *Mesh) Transformed(mat mgl64.Mat4) *Mesh {
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  slices.Clone(m.Indices),
		Name:     m.Name,
	}
	for i := 0; i < m.VertexCount(); i++ {
		p := mgl64.TransformCoordinate(m.Vertex(i), mat)
		out.Vertices[3*i] = float32(p[0])
		out.Vertices[3*i+1] = float32(p[1])
		out.Vertices[3*i+2] = float32(p[2])
	}

	nm := mat.Mat3().Inv().Transpose()
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := nm.Mul3x1(mgl64.Vec3{
			float64(m.Normals[i]),
			float64(m.Normals[i+1]),
			float64(m.Normals[i+2]),
		})
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		out.Normals[i] = float32(n[0])
		out.Normals[i+1] = float32(n[1])
		out.Normals[i+2] = float32(n[2])
	}
	return out
}

// Append adds other's triangles to m, offsetting its indices.
func (m *Mesh) Append(other *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Normals = append(m.Normals, other.Normals...)
	for _, i := range other.Indices {
		m.Indices = append(m.Indices, base+i)
	}
}
