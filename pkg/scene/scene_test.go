package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// makeQuad returns a unit square in the z=0 plane as two triangles, offset
// by (x, y).
func makeQuad(x, y float64) *Geometry {
	return NewTriangles(
		[]mgl64.Vec3{{x, y, 0}, {x + 1, y, 0}, {x + 1, y + 1, 0}, {x, y + 1, 0}},
		[]uint32{0, 1, 2, 0, 2, 3},
	)
}

func TestNodeIDFromNameIsStable(t *testing.T) {
	a := NodeIDFromName("leg")
	b := NodeIDFromName("leg")
	c := NodeIDFromName("apron")
	if a != b {
		t.Fatalf("same name gave different IDs: %s vs %s", a, b)
	}
	if a == c {
		t.Fatal("different names gave the same ID")
	}
	if a.IsZero() || !ZeroID.IsZero() {
		t.Fatal("IsZero mismatch")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 chars", a.Short())
	}
	if a.Compare(a) != 0 || a.Compare(c) != -c.Compare(a) {
		t.Error("Compare is not antisymmetric")
	}
}

func TestNodeIDText(t *testing.T) {
	id := NodeIDFromName("leg")
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var got NodeID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if got != id {
		t.Errorf("decoded %s, want %s", got, id)
	}
	if err := got.UnmarshalText([]byte("not-an-id")); err == nil {
		t.Error("expected an error for a malformed ID")
	}
}

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{NodeGroup, "group"},
		{NodeTransform, "transform"},
		{NodeCamera, "camera"},
		{NodePagedLOD, "paged-lod"},
		{NodeGeometry, "geometry"},
		{NodeKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestCheckedDowncasts(t *testing.T) {
	leaf := NewGeometry("leaf", makeQuad(0, 0))
	if _, ok := leaf.Geometry(); !ok {
		t.Fatal("Geometry() failed on a geometry node")
	}
	if _, ok := leaf.TransformData(); ok {
		t.Fatal("TransformData() succeeded on a geometry node")
	}

	// Kind and payload must agree.
	odd := NewNode(NodeTransform, "odd", GroupData{})
	if _, ok := odd.TransformData(); ok {
		t.Fatal("TransformData() succeeded with a group payload")
	}
}

func TestGeometryBound(t *testing.T) {
	n := NewGeometry("quad", makeQuad(0, 0))
	b := n.Bound()
	if !b.Valid() {
		t.Fatal("bound is invalid")
	}
	want := mgl64.Vec3{0.5, 0.5, 0}
	if !b.Center.ApproxEqual(want) {
		t.Errorf("center = %v, want %v", b.Center, want)
	}
	if math.Abs(b.Radius-math.Sqrt2/2) > 1e-12 {
		t.Errorf("radius = %v, want %v", b.Radius, math.Sqrt2/2)
	}
}

func TestTransformBound(t *testing.T) {
	leaf := NewGeometry("quad", makeQuad(0, 0))
	xf := NewTransform("xf", mgl64.Translate3D(10, 0, 0), leaf)
	b := xf.Bound()
	if !b.Center.ApproxEqual(mgl64.Vec3{10.5, 0.5, 0}) {
		t.Errorf("center = %v", b.Center)
	}

	abs := NewNode(NodeTransform, "abs", TransformData{Reference: AbsoluteRF}, NewGeometry("q", makeQuad(0, 0)))
	if abs.Bound().Valid() {
		t.Error("absolute transform bound should be invalid")
	}
}

func TestGroupBoundIgnoresEmptyChildren(t *testing.T) {
	g := NewGroup("g", NewGroup("empty"), NewGeometry("q", makeQuad(0, 0)))
	if !g.Bound().Valid() {
		t.Fatal("empty child group made the bound invalid")
	}

	withCamera := NewGroup("g", NewNode(NodeCamera, "cam", CameraData{}, NewGeometry("q", makeQuad(0, 0))))
	if withCamera.Bound().Valid() {
		t.Fatal("camera child must make the bound unknown")
	}
}

func TestPagedLODBound(t *testing.T) {
	d := LODData{Ranges: []Range{{0, 10}, {10, 100}}, FileNames: []string{"a", "b"}}
	paged := NewNode(NodePagedLOD, "p", d, NewGeometry("coarse", makeQuad(0, 0)))
	if paged.Bound().Valid() {
		t.Error("paged node with missing children should have an invalid bound")
	}

	d.Center, d.Radius = mgl64.Vec3{1, 2, 3}, 5
	user := NewNode(NodePagedLOD, "p", d)
	if b := user.Bound(); b.Radius != 5 || b.Center != d.Center {
		t.Errorf("user bound = %+v", b)
	}
}

func TestBillboardBoundCoversRotation(t *testing.T) {
	d := BillboardData{Positions: []mgl64.Vec3{{5, 0, 0}}}
	bb := NewNode(NodeBillboard, "bb", d, NewGeometry("q", makeQuad(0, 0)))
	b := bb.Bound()
	// The quad's far corner (1,1,0) may swing anywhere within
	// |center| + radius of the anchor.
	if b.Radius < (mgl64.Vec3{0.5, 0.5, 0}).Len()+math.Sqrt2/2-1e-12 {
		t.Errorf("radius %v too small", b.Radius)
	}
	if !b.Center.ApproxEqual(mgl64.Vec3{5, 0, 0}) {
		t.Errorf("center = %v", b.Center)
	}
}

func TestEachPrimitiveModes(t *testing.T) {
	verts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 2, 0}}
	tests := []struct {
		name   string
		set    PrimitiveSet
		counts []int
	}{
		{"points", PrimitiveSet{Mode: ModePoints, Count: 3}, []int{1, 1, 1}},
		{"lines", PrimitiveSet{Mode: ModeLines, Count: 4}, []int{2, 2}},
		{"line strip", PrimitiveSet{Mode: ModeLineStrip, Count: 3}, []int{2, 2}},
		{"line loop", PrimitiveSet{Mode: ModeLineLoop, Count: 3}, []int{2, 2, 2}},
		{"triangles", PrimitiveSet{Mode: ModeTriangles, Indices: []uint32{0, 1, 2, 0, 2, 3}}, []int{3, 3}},
		{"strip", PrimitiveSet{Mode: ModeTriangleStrip, Count: 5}, []int{3, 3, 3}},
		{"fan", PrimitiveSet{Mode: ModeTriangleFan, Count: 4}, []int{3, 3}},
		{"quads", PrimitiveSet{Mode: ModeQuads, Count: 4}, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Geometry{Vertices: verts, Primitives: []PrimitiveSet{tt.set}}
			var counts []int
			g.EachPrimitive(func(p *Primitive) bool {
				if p.Index != len(counts) {
					t.Errorf("primitive index %d, want %d", p.Index, len(counts))
				}
				counts = append(counts, p.Count)
				return true
			})
			if len(counts) != len(tt.counts) {
				t.Fatalf("got %d primitives, want %d", len(counts), len(tt.counts))
			}
			for i := range counts {
				if counts[i] != tt.counts[i] {
					t.Errorf("primitive %d has %d vertices, want %d", i, counts[i], tt.counts[i])
				}
			}
		})
	}
}

func TestEachPrimitiveIndexSpansSets(t *testing.T) {
	g := &Geometry{
		Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Primitives: []PrimitiveSet{
			{Mode: ModePoints, Count: 1},
			{Mode: ModeLines, Count: 2},
			{Mode: ModeTriangles, Count: 3},
		},
	}
	var last *Primitive
	g.EachPrimitive(func(p *Primitive) bool {
		cp := *p
		last = &cp
		return true
	})
	if last == nil || last.Index != 2 || last.Count != 3 {
		t.Fatalf("last primitive = %+v, want index 2 triangle", last)
	}
	if last.Indices != [4]uint32{0, 1, 2, 0} {
		t.Errorf("indices = %v", last.Indices)
	}
}

func TestEachPrimitiveStopsEarly(t *testing.T) {
	g := makeQuad(0, 0)
	calls := 0
	g.EachPrimitive(func(*Primitive) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
