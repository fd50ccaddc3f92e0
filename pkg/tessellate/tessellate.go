// Package tessellate moves geometry between the solid modelling kernel and
// scenes. Kernel solids become indexed scene drawables, and scenes can be
// flattened back into world-space triangle meshes.
package tessellate

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/sightline/pkg/kernel"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// MeshToGeometry converts a kernel mesh into an indexed triangle drawable.
func MeshToGeometry(m *kernel.Mesh) *scene.Geometry {
	vertices := make([]mgl64.Vec3, m.VertexCount())
	for i := range vertices {
		vertices[i] = m.Vertex(i)
	}
	indices := make([]uint32, len(m.Indices))
	copy(indices, m.Indices)
	return scene.NewTriangles(vertices, indices)
}

// SolidNode tessellates s and wraps the result in a geometry node named
// name. The drawable gets a spatial index.
func SolidNode(k kernel.Kernel, name string, s kernel.Solid) (*scene.Node, error) {
	mesh, err := k.ToMesh(s)
	if err != nil {
		return nil, errors.New("tessellating solid failed").
			WithTag("node", name).
			Wrap(err)
	}
	mesh.Name = name
	return scene.NewGeometry(name, scene.BuildIndex(MeshToGeometry(mesh))), nil
}

// transformStack accumulates local-to-world matrices during traversal.
type transformStack struct {
	matrices []mgl64.Mat4
}

func newTransformStack() *transformStack {
	return &transformStack{matrices: []mgl64.Mat4{mgl64.Ident4()}}
}

func (ts *transformStack) top() mgl64.Mat4 {
	return ts.matrices[len(ts.matrices)-1]
}

func (ts *transformStack) push(m mgl64.Mat4) {
	ts.matrices = append(ts.matrices, m)
}

func (ts *transformStack) pop() {
	if len(ts.matrices) > 1 {
		ts.matrices = ts.matrices[:len(ts.matrices)-1]
	}
}

// flattener walks a scene collecting world-space meshes.
type flattener struct {
	ts     *transformStack
	onPath map[*scene.Node]bool
	meshes []*kernel.Mesh
}

// Flatten walks every root of g and returns one world-space mesh per
// drawable instance holding triangles or quads. Points and lines carry no
// surface and are skipped, as are nodes with a zero mask. Paged children
// that are not resident are not loaded. The scene is never mutated.
func Flatten(g *scene.Graph) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, root := range g.Roots {
		collected, err := FlattenNode(root)
		if err != nil {
			return nil, errors.New("flattening root failed").
				WithTag("root", root.ID.Short()).
				Wrap(err)
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// FlattenNode flattens the subtree rooted at n.
func FlattenNode(n *scene.Node) ([]*kernel.Mesh, error) {
	f := &flattener{
		ts:     newTransformStack(),
		onPath: make(map[*scene.Node]bool),
	}
	if err := f.walk(n); err != nil {
		return nil, err
	}
	return f.meshes, nil
}

// Merge concatenates meshes into a single mesh named name.
func Merge(name string, meshes []*kernel.Mesh) *kernel.Mesh {
	out := &kernel.Mesh{Name: name}
	for _, m := range meshes {
		out.Append(m)
	}
	return out
}

func (f *flattener) walk(n *scene.Node) error {
	if n == nil || n.Mask == 0 {
		return nil
	}
	if f.onPath[n] {
		return errors.New("cycle in scene").WithTag("node", n.ID.Short())
	}
	f.onPath[n] = true
	defer delete(f.onPath, n)

	switch n.Kind {
	case scene.NodeGeometry:
		return f.handleGeometry(n)

	case scene.NodeTransform:
		return f.handleTransform(n)

	case scene.NodeCamera:
		return f.handleCamera(n)

	case scene.NodeBillboard:
		return f.handleBillboard(n)

	case scene.NodeGroup, scene.NodeProjection, scene.NodeLOD, scene.NodePagedLOD:
		// Projections do not move geometry in world space; every resident
		// level of detail is emitted.
		return f.walkChildren(n)

	default:
		return errors.New("unknown node kind").
			WithTag("node", n.ID.Short()).
			WithTag("kind", n.Kind)
	}
}

func (f *flattener) walkChildren(n *scene.Node) error {
	for _, c := range n.Children {
		if err := f.walk(c); err != nil {
			return err
		}
	}
	return nil
}

// handleTransform pushes the node's world matrix, recurses, then pops.
func (f *flattener) handleTransform(n *scene.Node) error {
	td, ok := n.TransformData()
	if !ok {
		return errors.New("transform node has unexpected data").
			WithTag("node", n.ID.Short())
	}

	m := td.LocalMatrix()
	if td.Reference == scene.RelativeRF {
		m = f.ts.top().Mul4(m)
	}
	f.ts.push(m)
	defer f.ts.pop()
	return f.walkChildren(n)
}

// handleCamera restarts world space under absolute cameras. Relative
// cameras leave the model matrix as inherited.
func (f *flattener) handleCamera(n *scene.Node) error {
	cd, ok := n.CameraData()
	if !ok {
		return errors.New("camera node has unexpected data").
			WithTag("node", n.ID.Short())
	}
	if cd.Reference == scene.AbsoluteRF {
		f.ts.push(mgl64.Ident4())
		defer f.ts.pop()
	}
	return f.walkChildren(n)
}

// handleBillboard places each child at its anchor. Without an eye there is
// no facing rotation.
func (f *flattener) handleBillboard(n *scene.Node) error {
	bd, ok := n.BillboardData()
	if !ok {
		return errors.New("billboard node has unexpected data").
			WithTag("node", n.ID.Short())
	}
	for i, c := range n.Children {
		p := bd.Position(i)
		f.ts.push(f.ts.top().Mul4(mgl64.Translate3D(p[0], p[1], p[2])))
		err := f.walk(c)
		f.ts.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// handleGeometry emits the drawable's surface primitives in world space.
func (f *flattener) handleGeometry(n *scene.Node) error {
	g, ok := n.Geometry()
	if !ok {
		return errors.New("geometry node has no drawable").
			WithTag("node", n.ID.Short())
	}

	mesh := &kernel.Mesh{Name: n.Name}
	if mesh.Name == "" {
		mesh.Name = n.ID.Short()
	}

	m := f.ts.top()
	addTriangle := func(a, b, c mgl64.Vec3) {
		a = mgl64.TransformCoordinate(a, m)
		b = mgl64.TransformCoordinate(b, m)
		c = mgl64.TransformCoordinate(c, m)
		normal := b.Sub(a).Cross(c.Sub(a))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}
		base := uint32(mesh.VertexCount())
		for _, v := range [3]mgl64.Vec3{a, b, c} {
			mesh.Vertices = append(mesh.Vertices, float32(v[0]), float32(v[1]), float32(v[2]))
			mesh.Normals = append(mesh.Normals, float32(normal[0]), float32(normal[1]), float32(normal[2]))
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
	}

	g.EachPrimitive(func(p *scene.Primitive) bool {
		switch p.Count {
		case 3:
			addTriangle(p.Vertices[0], p.Vertices[1], p.Vertices[2])
		case 4:
			addTriangle(p.Vertices[0], p.Vertices[1], p.Vertices[3])
			addTriangle(p.Vertices[1], p.Vertices[2], p.Vertices[3])
		}
		return true
	})

	if !mesh.IsEmpty() {
		f.meshes = append(f.meshes, mesh)
	}
	return nil
}
