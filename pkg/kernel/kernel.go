// Package kernel defines the abstract solid modelling kernel used to author
// scene geometry. Implementations (sdfx) build solids from primitives and
// boolean operations and turn them into triangle meshes, which the
// tessellate package converts into scene drawables.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centered on the origin.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
