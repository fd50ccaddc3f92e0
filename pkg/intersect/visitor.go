package intersect

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// LODSelection says which level of an LOD node a traversal looks at.
type LODSelection int

const (
	// UseHighestLevelOfDetail always tests the finest level.
	UseHighestLevelOfDetail LODSelection = iota

	// UseEyePointForLODLevelSelection picks levels by distance from the
	// reference eye point.
	UseEyePointForLODLevelSelection
)

// Visitor walks a scene on behalf of an intersector, keeping the matrix
// stacks, the node path and the stack of intersector clones.
type Visitor struct {
	ctx    context.Context
	stack  []Intersector
	frames Frames
	path   []*scene.Node

	loader          Loader
	traversalMask   scene.NodeMask
	maskOverride    scene.NodeMask
	useSpatialIndex bool
	dummy           bool
	lodSelection    LODSelection

	eyeRef     mgl64.Vec3
	eyeFrame   Frame
	eyeSet     bool
	eye        mgl64.Vec3
	eyeVersion uint64
	eyeValid   bool
}

// Option configures a Visitor.
type Option func(*Visitor)

// WithLoader sets the loader used for paged children that are not resident.
func WithLoader(l Loader) Option {
	return func(v *Visitor) { v.loader = l }
}

// WithContext sets the context handed to the loader.
func WithContext(ctx context.Context) Option {
	return func(v *Visitor) { v.ctx = ctx }
}

// WithTraversalMask sets the mask and-ed with each node's mask.
func WithTraversalMask(m scene.NodeMask) Option {
	return func(v *Visitor) { v.traversalMask = m }
}

// WithNodeMaskOverride sets bits treated as present in every node's mask.
func WithNodeMaskOverride(m scene.NodeMask) Option {
	return func(v *Visitor) { v.maskOverride = m }
}

// WithSpatialIndex chooses whether drawables' spatial indexes are used.
// They are used by default.
func WithSpatialIndex(use bool) Option {
	return func(v *Visitor) { v.useSpatialIndex = use }
}

// WithDummyTraversal disables bound tests so every subtree is walked.
func WithDummyTraversal(dummy bool) Option {
	return func(v *Visitor) { v.dummy = dummy }
}

// WithLODSelection sets how LOD levels are chosen.
func WithLODSelection(s LODSelection) Option {
	return func(v *Visitor) { v.lodSelection = s }
}

// WithEyePoint sets the reference eye point and the frame it is given in.
// Without it, a segment query's start is the eye; otherwise the origin of
// the view frame.
func WithEyePoint(frame Frame, p mgl64.Vec3) Option {
	return func(v *Visitor) {
		v.eyeRef, v.eyeFrame, v.eyeSet = p, frame, true
	}
}

// NewVisitor returns a visitor driving i.
func NewVisitor(i Intersector, opts ...Option) *Visitor {
	v := &Visitor{
		ctx:             context.Background(),
		traversalMask:   scene.AllNodes,
		useSpatialIndex: true,
		eyeFrame:        FrameView,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.SetIntersector(i)
	return v
}

// SetIntersector replaces the root intersector and clears traversal state.
func (v *Visitor) SetIntersector(i Intersector) {
	v.Reset()
	v.stack = append(v.stack[:0], i)
	if !v.eyeSet {
		if s, ok := i.(*Segment); ok {
			v.eyeRef, v.eyeFrame = s.start, s.frame
		} else {
			v.eyeRef, v.eyeFrame = mgl64.Vec3{}, FrameView
		}
	}
	v.eyeValid = false
}

// Intersector returns the root intersector.
func (v *Visitor) Intersector() Intersector {
	if len(v.stack) == 0 {
		return nil
	}
	return v.stack[0]
}

// Reset drops every stacked matrix, clone and path entry. The root
// intersector and its results are kept.
func (v *Visitor) Reset() {
	v.frames.Reset()
	clear(v.path)
	v.path = v.path[:0]
	if len(v.stack) > 1 {
		clear(v.stack[1:])
		v.stack = v.stack[:1]
	}
	v.eyeValid = false
}

// Frames returns the traversal's matrix stacks.
func (v *Visitor) Frames() *Frames {
	return &v.frames
}

// ModelMatrix returns the current model matrix, or nil for the identity.
func (v *Visitor) ModelMatrix() *mgl64.Mat4 {
	return v.frames.Model()
}

// NodePath returns the nodes from the traversal root to the current node.
func (v *Visitor) NodePath() []*scene.Node {
	return v.path
}

// NodePathIDs returns a copy of the current node path as IDs.
func (v *Visitor) NodePathIDs() []scene.NodeID {
	return lo.Map(v.path, func(n *scene.Node, _ int) scene.NodeID {
		return n.ID
	})
}

// Depth returns the number of intersector clones on the stack.
func (v *Visitor) Depth() int {
	return len(v.stack) - 1
}

// ApplyGraph walks every root of g.
func (v *Visitor) ApplyGraph(g *scene.Graph) {
	for _, r := range g.Roots {
		v.Apply(r)
	}
}

// Apply walks the subtree at n.
func (v *Visitor) Apply(n *scene.Node) {
	if len(v.path) == 0 {
		defer instrumentTraversalLatency(time.Now())
	}
	v.apply(n)
}

func (v *Visitor) apply(n *scene.Node) {
	if n == nil || len(v.stack) == 0 || !v.validNodeMask(n) {
		return
	}
	v.path = append(v.path, n)
	defer func() {
		v.path[len(v.path)-1] = nil
		v.path = v.path[:len(v.path)-1]
	}()
	instrumentVisit(n.Kind)

	switch n.Kind {
	case scene.NodeTransform:
		v.applyTransform(n)
	case scene.NodeProjection:
		v.applyProjection(n)
	case scene.NodeCamera:
		v.applyCamera(n)
	case scene.NodeBillboard:
		v.applyBillboard(n)
	case scene.NodeLOD:
		v.applyLOD(n)
	case scene.NodePagedLOD:
		v.applyPagedLOD(n)
	case scene.NodeGeometry:
		v.applyGeometry(n)
	default:
		v.applyGroup(n)
	}
}

func (v *Visitor) validNodeMask(n *scene.Node) bool {
	return v.traversalMask&(v.maskOverride|n.Mask) != 0
}

func (v *Visitor) current() Intersector {
	return v.stack[len(v.stack)-1]
}

func (v *Visitor) enter(n *scene.Node) bool {
	if v.dummy {
		return true
	}
	if v.current().Enter(n) {
		return true
	}
	instrumentCulled()
	return false
}

func (v *Visitor) leave() {
	if !v.dummy {
		v.current().Leave()
	}
}

// pushClone expresses the root intersector in the current frame and returns
// the func that pops the clone.
func (v *Visitor) pushClone() func() {
	v.stack = append(v.stack, v.stack[0].Clone(&v.frames))
	depth := len(v.stack)
	return func() {
		v.stack[depth-1] = nil
		v.stack = v.stack[:depth-1]
	}
}

func (v *Visitor) traverse(n *scene.Node) {
	for _, c := range n.Children {
		v.apply(c)
	}
}

func (v *Visitor) applyGroup(n *scene.Node) {
	if !v.enter(n) {
		return
	}
	defer v.leave()
	v.traverse(n)
}

func (v *Visitor) applyGeometry(n *scene.Node) {
	g, ok := n.Geometry()
	if !ok {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()
	instrumentDrawable()
	v.current().Intersect(v, n, g)
}

func (v *Visitor) applyTransform(n *scene.Node) {
	d, ok := n.TransformData()
	if !ok {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()

	m := d.LocalMatrix()
	if d.Reference == scene.AbsoluteRF {
		defer v.frames.PushView(mgl64.Ident4())()
	} else if parent := v.frames.Model(); parent != nil {
		m = parent.Mul4(m)
	}
	defer v.frames.PushModel(m)()
	defer v.pushClone()()
	v.traverse(n)
}

func (v *Visitor) applyProjection(n *scene.Node) {
	d, ok := n.ProjectionData()
	if !ok {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()

	defer v.frames.PushProjection(d.Matrix)()
	defer v.pushClone()()
	v.traverse(n)
}

// applyCamera opens a new viewing context. Cameras are not culled.
func (v *Visitor) applyCamera(n *scene.Node) {
	d, ok := n.CameraData()
	if !ok {
		v.applyGroup(n)
		return
	}

	proj, view, model := d.Projection, d.View, mgl64.Ident4()
	pp, pv := v.frames.Projection(), v.frames.View()
	if d.Reference == scene.RelativeRF && pp != nil && pv != nil {
		pm := mgl64.Ident4()
		if m := v.frames.Model(); m != nil {
			pm = *m
		}
		if d.Order == scene.PostMultiply {
			proj = d.Projection.Mul4(*pp)
			view = d.View.Mul4(*pv)
			model = pm
		} else {
			proj = pp.Mul4(d.Projection)
			view = *pv
			model = pm.Mul4(d.View)
		}
	}

	if d.Viewport != nil {
		defer v.frames.PushWindow(d.Viewport.WindowMatrix())()
	}
	defer v.frames.PushProjection(proj)()
	defer v.frames.PushView(view)()
	defer v.frames.PushModel(model)()
	defer v.pushClone()()
	v.traverse(n)
}

// applyBillboard gives every child its own placement facing the eye.
func (v *Visitor) applyBillboard(n *scene.Node) {
	d, ok := n.BillboardData()
	if !ok {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()

	eye := v.EyePoint()
	for i, c := range n.Children {
		v.applyBillboardChild(d, i, c, eye)
	}
}

func (v *Visitor) applyBillboardChild(d scene.BillboardData, i int, c *scene.Node, eye mgl64.Vec3) {
	view, model := v.frames.View(), v.frames.Model()
	mv := mgl64.Ident4()
	switch {
	case view != nil && model != nil:
		mv = view.Mul4(*model)
	case view != nil:
		mv = *view
	case model != nil:
		mv = *model
	}
	m := d.ComputeMatrix(mv, eye, d.Position(i))
	if view != nil {
		m = view.Inv().Mul4(m)
	}

	defer v.frames.PushModel(m)()
	defer v.pushClone()()
	v.apply(c)
}

// applyLOD walks every level, or with eye point selection only the levels
// whose distance range holds the node's center.
func (v *Visitor) applyLOD(n *scene.Node) {
	d, ok := n.LODData()
	if !ok || v.lodSelection != UseEyePointForLODLevelSelection || d.Mode != scene.DistanceFromEye {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()

	center := d.Center
	if d.Radius <= 0 {
		center = n.Bound().Center
	}
	dist := v.DistanceToEyePoint(center)
	for i, c := range n.Children {
		if i < len(d.Ranges) && d.Ranges[i].Min <= dist && dist < d.Ranges[i].Max {
			v.apply(c)
		}
	}
}

// applyPagedLOD walks the finest level, loading it if it is not resident and
// falling back to the last resident child otherwise. A node naming no files
// has nothing to page, so every child is walked.
func (v *Visitor) applyPagedLOD(n *scene.Node) {
	d, ok := n.LODData()
	if !ok {
		v.applyGroup(n)
		return
	}
	if !v.enter(n) {
		return
	}
	defer v.leave()

	if len(d.FileNames) == 0 {
		v.traverse(n)
		return
	}

	target := d.HighestDetail()
	for i, r := range d.Ranges {
		if r.Min != target {
			continue
		}
		var child *scene.Node
		if i < len(n.Children) {
			child = n.Children[i]
		}
		if child == nil {
			child = v.load(d.FileName(i))
		}
		if child == nil && len(n.Children) > 0 {
			child = n.Children[len(n.Children)-1]
		}
		if child != nil {
			v.apply(child)
		}
	}
}

func (v *Visitor) load(file string) *scene.Node {
	if v.loader == nil || file == "" {
		return nil
	}
	child, err := v.loader.LoadNode(v.ctx, file)
	switch {
	case err != nil:
		instrumentPagedLoad("error")
		logs.WithTag("file", file).Debug(errors.New("loading paged child failed").Wrap(err))
		return nil
	case child == nil:
		instrumentPagedLoad("missing")
		return nil
	default:
		instrumentPagedLoad("loaded")
		return child
	}
}
