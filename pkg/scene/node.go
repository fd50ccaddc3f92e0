package scene

import (
	"sync"

	"github.com/chazu/sightline/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// NodeKind enumerates the types of nodes in a scene.
type NodeKind int

const (
	NodeGroup      NodeKind = iota // plain grouping
	NodeTransform                  // local-to-parent matrix
	NodeProjection                 // projection matrix
	NodeCamera                     // new projection/view/viewport context
	NodeBillboard                  // children turned to face the eye
	NodeLOD                        // level-of-detail switch, all children resident
	NodePagedLOD                   // level-of-detail switch, children loaded on demand
	NodeGeometry                   // drawable leaf
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeTransform:
		return "transform"
	case NodeProjection:
		return "projection"
	case NodeCamera:
		return "camera"
	case NodeBillboard:
		return "billboard"
	case NodeLOD:
		return "lod"
	case NodePagedLOD:
		return "paged-lod"
	case NodeGeometry:
		return "geometry"
	default:
		return "unknown"
	}
}

// NodeMask selects which traversals see a node.
type NodeMask uint32

// AllNodes is the default mask: visible to every traversal.
const AllNodes NodeMask = 0xffffffff

// Node is the fundamental element of a scene.
type Node struct {
	ID   NodeID
	Kind NodeKind
	Name string

	// Mask is and-ed with a traversal mask; zero hides the node from every
	// traversal.
	Mask NodeMask

	// CullingDisabled makes bound tests always pass for this node.
	CullingDisabled bool

	Children []*Node
	Data     NodeData

	boundOnce sync.Once
	bound     geom.Sphere
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// NewNode builds a visible node with a fresh ID.
func NewNode(kind NodeKind, name string, data NodeData, children ...*Node) *Node {
	return &Node{
		ID:       NewNodeID(),
		Kind:     kind,
		Name:     name,
		Mask:     AllNodes,
		Children: children,
		Data:     data,
	}
}

// NewGroup builds a group node.
func NewGroup(name string, children ...*Node) *Node {
	return NewNode(NodeGroup, name, GroupData{}, children...)
}

// NewTransform builds a transform node with an explicit local-to-parent
// matrix.
func NewTransform(name string, m mgl64.Mat4, children ...*Node) *Node {
	return NewNode(NodeTransform, name, TransformData{Matrix: &m}, children...)
}

// NewGeometry builds a drawable leaf.
func NewGeometry(name string, g *Geometry) *Node {
	return NewNode(NodeGeometry, name, GeometryData{Geometry: g})
}

// AddChild appends children. Scenes must not be modified while queried.
func (n *Node) AddChild(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// ---------------------------------------------------------------------------
// Checked downcasts
// ---------------------------------------------------------------------------

// TransformData returns the payload of a transform node.
func (n *Node) TransformData() (TransformData, bool) {
	d, ok := n.Data.(TransformData)
	return d, ok && n.Kind == NodeTransform
}

// ProjectionData returns the payload of a projection node.
func (n *Node) ProjectionData() (ProjectionData, bool) {
	d, ok := n.Data.(ProjectionData)
	return d, ok && n.Kind == NodeProjection
}

// CameraData returns the payload of a camera node.
func (n *Node) CameraData() (CameraData, bool) {
	d, ok := n.Data.(CameraData)
	return d, ok && n.Kind == NodeCamera
}

// BillboardData returns the payload of a billboard node.
func (n *Node) BillboardData() (BillboardData, bool) {
	d, ok := n.Data.(BillboardData)
	return d, ok && n.Kind == NodeBillboard
}

// LODData returns the payload of a LOD or paged LOD node.
func (n *Node) LODData() (LODData, bool) {
	d, ok := n.Data.(LODData)
	return d, ok && (n.Kind == NodeLOD || n.Kind == NodePagedLOD)
}

// Geometry returns the drawable of a geometry node.
func (n *Node) Geometry() (*Geometry, bool) {
	d, ok := n.Data.(GeometryData)
	if !ok || n.Kind != NodeGeometry || d.Geometry == nil {
		return nil, false
	}
	return d.Geometry, true
}
