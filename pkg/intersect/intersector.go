package intersect

import (
	"github.com/chazu/sightline/pkg/geom"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Intersector is a geometric query walked over a scene by a Visitor.
//
// Enter and Leave bracket every culled subtree: Leave is called exactly once
// for each Enter that returned true. Clone expresses the query in the local
// frame given by the visitor's current matrices; clones report into the
// result set of the intersector they were cloned from.
type Intersector interface {
	Frame() Frame
	Limit() Limit

	Clone(f *Frames) Intersector
	Enter(n *scene.Node) bool
	Leave()
	Intersect(v *Visitor, drawable *scene.Node, g *scene.Geometry)

	// Reset clears the disabled count and, on the intersector that owns
	// them, the accumulated results.
	Reset()
	ContainsIntersections() bool
	ReachedLimit() bool

	Disabled() bool
	IncrementDisabledCount()
	DecrementDisabledCount()
}

type base struct {
	frame     Frame
	limit     Limit
	precision Precision
	disabled  int
}

// Frame returns the frame the query was constructed in.
func (b *base) Frame() Frame { return b.frame }

// Limit returns the result limit policy.
func (b *base) Limit() Limit { return b.limit }

// Precision returns the arithmetic used for triangle tests.
func (b *base) Precision() Precision { return b.precision }

// SetPrecision selects the arithmetic used for triangle tests.
func (b *base) SetPrecision(p Precision) { b.precision = p }

// Disabled reports whether the query is inert in the current subtree.
func (b *base) Disabled() bool { return b.disabled > 0 }

// IncrementDisabledCount disables the query for one more nesting level.
func (b *base) IncrementDisabledCount() { b.disabled++ }

// DecrementDisabledCount undoes one IncrementDisabledCount.
func (b *base) DecrementDisabledCount() {
	if b.disabled > 0 {
		b.disabled--
	}
}

// DisabledCount returns the current nesting of disables.
func (b *base) DisabledCount() int { return b.disabled }

// localMatrix returns the inverse of the composed matrix for frame, or false
// when the query can be copied unchanged into the current frame.
func localMatrix(f *Frames, frame Frame) (mgl64.Mat4, mgl64.Mat4, bool) {
	if f == nil {
		return mgl64.Mat4{}, mgl64.Mat4{}, false
	}
	m, ok := f.Composed(frame)
	if !ok {
		return mgl64.Mat4{}, mgl64.Mat4{}, false
	}
	return m, m.Inv(), true
}

// sphereCulled reports whether the node's bound can be skipped. Nodes with
// culling disabled are never skipped.
func sphereCulled(n *scene.Node, test func(geom.Sphere) bool) bool {
	if n.CullingDisabled {
		return false
	}
	return !test(n.Bound())
}
