package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/sightline/pkg/kernel/sdfx"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// newTestEngine returns an engine with a coarse kernel so that scripted
// solids tessellate quickly.
func newTestEngine() *Engine {
	return NewEngine(WithKernel(sdfx.New(sdfx.WithMeshCells(16))))
}

// mustEvaluate evaluates source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *scene.Graph {
	t.Helper()
	g, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
	return g
}

// evalErrors evaluates source and returns its eval errors, failing on a
// fatal error.
func evalErrors(t *testing.T, source string) []EvalError {
	t.Helper()
	g, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) > 0 && g != nil {
		t.Fatal("expected nil graph alongside eval errors")
	}
	return evalErrs
}

const triangleVertices = `:vertices (list (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0))`

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere :radius 2)`,
			expect: `(sphere "__kw_radius" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :height 4 :radius 1)`,
			expect: `(cylinder "__kw_height" 4 "__kw_radius" 1)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(paged-lod :database-path "tiles/")`,
			expect: `(paged_lod "__kw_database-path" "tiles/")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(vec3 0 -1 0)`,
			expect: `(vec3 0 -1 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "keyword value",
			input:  `:mode :strip`,
			expect: `"__kw_mode" "__kw_strip"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Hierarchy tests
// ---------------------------------------------------------------------------

func TestGroupOfTriangles(t *testing.T) {
	g := mustEvaluate(t, `
(group "g"
  (triangles "tri" `+triangleVertices+`))
`)

	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}
	if len(g.Roots) != 1 || g.Roots[0].Name != "g" {
		t.Fatalf("expected group g as the only root")
	}

	tri := g.Lookup("tri")
	if tri == nil {
		t.Fatal("expected node named 'tri'")
	}
	geo, ok := tri.Geometry()
	if !ok {
		t.Fatalf("expected a drawable, got %T", tri.Data)
	}
	if geo.PrimitiveCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", geo.PrimitiveCount())
	}
	if geo.Index == nil {
		t.Error("expected the drawable to be indexed")
	}
	if g.Roots[0].Children[0] != tri {
		t.Error("expected tri to be the group's child")
	}
}

func TestVariableReference(t *testing.T) {
	g := mustEvaluate(t, `
(def tri (triangles "tri" `+triangleVertices+`))
(def lift 5)
(transform "up" :translate (vec3 0 0 lift) tri)
`)

	up := g.Lookup("up")
	if up == nil {
		t.Fatal("expected node named 'up'")
	}
	td, ok := up.TransformData()
	if !ok {
		t.Fatalf("expected TransformData, got %T", up.Data)
	}
	if td.Translation == nil || *td.Translation != (mgl64.Vec3{0, 0, 5}) {
		t.Errorf("expected translation (0,0,5) from variable, got %v", td.Translation)
	}
	if up.Children[0] != g.Lookup("tri") {
		t.Error("expected tri under up")
	}
}

func TestTransformArguments(t *testing.T) {
	g := mustEvaluate(t, `
(transform "t" :translate (vec3 1 2 3) :rotate (vec3 0 0 90) :scale (vec3 2 2 2) :absolute true
  (points "p" :vertices (list (vec3 0 0 0))))
`)

	td, ok := g.Lookup("t").TransformData()
	if !ok {
		t.Fatal("expected TransformData")
	}
	if td.Reference != scene.AbsoluteRF {
		t.Errorf("expected absolute reference frame, got %s", td.Reference)
	}
	got := mgl64.TransformCoordinate(mgl64.Vec3{1, 0, 0}, td.LocalMatrix())
	if !got.ApproxEqualThreshold(mgl64.Vec3{1, 4, 3}, 1e-9) {
		t.Errorf("local matrix maps (1,0,0) to %v, want (1,4,3)", got)
	}
}

func TestTransformMatrix(t *testing.T) {
	g := mustEvaluate(t, `
(transform "t" :matrix (list 1 0 0 0  0 1 0 0  0 0 1 0  7 8 9 1))
`)

	td, _ := g.Lookup("t").TransformData()
	if td.Matrix == nil {
		t.Fatal("expected an explicit matrix")
	}
	if td.Matrix.Col(3) != (mgl64.Vec4{7, 8, 9, 1}) {
		t.Errorf("expected translation column (7,8,9,1), got %v", td.Matrix.Col(3))
	}

	evalErrs := evalErrors(t, `(transform :matrix (list 1 2 3))`)
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error for a short matrix")
	}
}

func TestSharedNodeByName(t *testing.T) {
	g := mustEvaluate(t, `
(triangles "tri" `+triangleVertices+`)
(root
  (transform "a" :translate (vec3 1 0 0) (node "tri"))
  (transform "b" :translate (vec3 2 0 0) (node "tri")))
`)

	if len(g.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(g.Roots))
	}
	if g.Lookup("a").Children[0] != g.Lookup("b").Children[0] {
		t.Error("expected both transforms to share the drawable")
	}
}

func TestNodeLookupError(t *testing.T) {
	evalErrs := evalErrors(t, `(node "nonexistent")`)
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for missing node")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error should have a non-empty message")
	}
}

func TestDuplicateName(t *testing.T) {
	evalErrs := evalErrors(t, `
(group "same")
(group "same")
`)
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error for a duplicate name")
	}
}

func TestRootFromLastExpression(t *testing.T) {
	g := mustEvaluate(t, `
(group "first")
(group "last")
`)
	if len(g.Roots) != 1 || g.Roots[0].Name != "last" {
		t.Fatal("expected the final node to become the root")
	}

	g = mustEvaluate(t, `
(group "only")
(+ 1 2)
`)
	if len(g.Roots) != 0 {
		t.Errorf("expected no roots when the script ends with a number, got %d", len(g.Roots))
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", g.NodeCount())
	}
}

// ---------------------------------------------------------------------------
// Viewing context tests
// ---------------------------------------------------------------------------

func TestProjection(t *testing.T) {
	g := mustEvaluate(t, `
(root
  (projection "ortho" :left -2 :right 2 :bottom -1 :top 1 :near 0 :far 10)
  (projection "persp" :fovy 90 :aspect 1 :near 1 :far 100))
`)

	ortho, ok := g.Lookup("ortho").ProjectionData()
	if !ok {
		t.Fatal("expected ProjectionData")
	}
	if want := mgl64.Ortho(-2, 2, -1, 1, 0, 10); ortho.Matrix != want {
		t.Errorf("ortho matrix = %v, want %v", ortho.Matrix, want)
	}

	persp, _ := g.Lookup("persp").ProjectionData()
	if want := mgl64.Perspective(math.Pi/2, 1, 1, 100); !persp.Matrix.ApproxEqual(want) {
		t.Errorf("perspective matrix = %v, want %v", persp.Matrix, want)
	}

	if evalErrs := evalErrors(t, `(projection "p")`); len(evalErrs) == 0 {
		t.Error("expected an eval error for a projection without parameters")
	}
	if evalErrs := evalErrors(t, `(projection :fovy 90 :near 5 :far 1)`); len(evalErrs) == 0 {
		t.Error("expected an eval error for far < near")
	}
}

func TestCamera(t *testing.T) {
	g := mustEvaluate(t, `
(camera "cam" :eye (vec3 0 0 10) :center (vec3 0 0 0)
        :left -1 :right 1 :bottom -1 :top 1 :near 1 :far 20
        :viewport (list 0 0 800 600) :absolute true :order :post
  (group "scene"))
`)

	cd, ok := g.Lookup("cam").CameraData()
	if !ok {
		t.Fatal("expected CameraData")
	}
	if cd.Reference != scene.AbsoluteRF || cd.Order != scene.PostMultiply {
		t.Errorf("reference %s order %d, want absolute post", cd.Reference, cd.Order)
	}
	if cd.Viewport == nil || cd.Viewport.Width != 800 || cd.Viewport.Height != 600 {
		t.Errorf("unexpected viewport %+v", cd.Viewport)
	}
	eye := mgl64.TransformCoordinate(mgl64.Vec3{0, 0, 10}, cd.View)
	if !eye.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9) {
		t.Errorf("view maps the eye to %v, want the origin", eye)
	}
	if cd.Projection != mgl64.Ortho(-1, 1, -1, 1, 1, 20) {
		t.Error("unexpected camera projection")
	}

	if evalErrs := evalErrors(t, `(camera :order :sideways)`); len(evalErrs) == 0 {
		t.Error("expected an eval error for an unknown order")
	}
}

func TestCameraDefaults(t *testing.T) {
	g := mustEvaluate(t, `(camera "cam")`)
	cd, _ := g.Lookup("cam").CameraData()
	if cd.Projection != mgl64.Ident4() || cd.View != mgl64.Ident4() {
		t.Error("expected identity projection and view")
	}
	if cd.Reference != scene.RelativeRF || cd.Order != scene.PreMultiply || cd.Viewport != nil {
		t.Error("expected a relative pre-multiplied camera without viewport")
	}
}

func TestBillboard(t *testing.T) {
	g := mustEvaluate(t, `
(billboard "bb" :mode :point :normal (vec3 0 0 1)
           :positions (list (vec3 1 0 0) (vec3 2 0 0))
  (points "a" :vertices (list (vec3 0 0 0)))
  (points "b" :vertices (list (vec3 0 0 0))))
`)

	bd, ok := g.Lookup("bb").BillboardData()
	if !ok {
		t.Fatal("expected BillboardData")
	}
	if bd.Mode != scene.BillboardPointRotEye {
		t.Errorf("expected point mode, got %d", bd.Mode)
	}
	if bd.Normal != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("unexpected normal %v", bd.Normal)
	}
	if len(bd.Positions) != 2 || bd.Position(1) != (mgl64.Vec3{2, 0, 0}) {
		t.Errorf("unexpected positions %v", bd.Positions)
	}
}

// ---------------------------------------------------------------------------
// Level of detail tests
// ---------------------------------------------------------------------------

func TestLOD(t *testing.T) {
	g := mustEvaluate(t, `
(lod "l" :ranges (list (list 0 10) (list 10 100)) :center (vec3 1 2 3) :radius 4
  (points "near" :vertices (list (vec3 0 0 0)))
  (points "far" :vertices (list (vec3 0 0 0))))
`)

	n := g.Lookup("l")
	if n.Kind != scene.NodeLOD {
		t.Fatalf("expected NodeLOD, got %s", n.Kind)
	}
	d, _ := n.LODData()
	if len(d.Ranges) != 2 || d.Ranges[1] != (scene.Range{Min: 10, Max: 100}) {
		t.Errorf("unexpected ranges %v", d.Ranges)
	}
	if d.Mode != scene.DistanceFromEye || d.Radius != 4 || d.Center != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("unexpected LOD data %+v", d)
	}
	if len(n.Children) != 2 {
		t.Errorf("expected 2 children, got %d", len(n.Children))
	}
}

func TestPagedLOD(t *testing.T) {
	g := mustEvaluate(t, `
(paged-lod "tile" :mode :pixel :ranges (list (list 0 100) (list 100 1000))
           :files (list "coarse.zy" "fine.zy") :database-path "tiles/"
  (points "coarse" :vertices (list (vec3 0 0 0))))
`)

	n := g.Lookup("tile")
	if n.Kind != scene.NodePagedLOD {
		t.Fatalf("expected NodePagedLOD, got %s", n.Kind)
	}
	d, _ := n.LODData()
	if d.Mode != scene.PixelSizeOnScreen {
		t.Errorf("expected pixel mode, got %d", d.Mode)
	}
	if got := d.FileName(1); got != "tiles/fine.zy" {
		t.Errorf("FileName(1) = %q, want tiles/fine.zy", got)
	}

	if evalErrs := evalErrors(t, `(lod :ranges (list (list 0)))`); len(evalErrs) == 0 {
		t.Error("expected an eval error for a one-number range")
	}
}

func TestPagedLODWithoutChildOrFileIsInvalid(t *testing.T) {
	evalErrs := evalErrors(t, `(paged-lod "tile" :ranges (list (list 0 100)))`)
	if len(evalErrs) == 0 {
		t.Fatal("expected the scene validation error to be reported")
	}
	if !strings.Contains(evalErrs[0].Message, "file name") {
		t.Errorf("unexpected message %q", evalErrs[0].Message)
	}
}

// ---------------------------------------------------------------------------
// Drawable tests
// ---------------------------------------------------------------------------

func TestPrimitiveModes(t *testing.T) {
	const square = `:vertices (list (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0) (vec3 0 1 0))`
	tests := []struct {
		name   string
		source string
		mode   scene.PrimitiveMode
		count  int
	}{
		{"points", `(points ` + square + `)`, scene.ModePoints, 4},
		{"lines", `(lines ` + square + `)`, scene.ModeLines, 2},
		{"line strip", `(lines ` + square + ` :mode :strip)`, scene.ModeLineStrip, 3},
		{"line loop", `(lines ` + square + ` :mode :loop)`, scene.ModeLineLoop, 4},
		{"triangle fan", `(triangles ` + square + ` :mode :fan)`, scene.ModeTriangleFan, 2},
		{"triangle strip", `(triangles ` + square + ` :mode :strip)`, scene.ModeTriangleStrip, 2},
		{"indexed triangles", `(triangles ` + square + ` :indices (list 0 1 2 0 2 3))`, scene.ModeTriangles, 2},
		{"quads", `(quads ` + square + `)`, scene.ModeQuads, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustEvaluate(t, tt.source)
			geo, ok := g.Roots[0].Geometry()
			if !ok {
				t.Fatal("expected a drawable root")
			}
			if geo.Primitives[0].Mode != tt.mode {
				t.Errorf("mode = %s, want %s", geo.Primitives[0].Mode, tt.mode)
			}
			if n := geo.PrimitiveCount(); n != tt.count {
				t.Errorf("expected %d primitives, got %d", tt.count, n)
			}
		})
	}
}

func TestDrawableErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing vertices", `(triangles "t")`},
		{"negative index", `(triangles ` + triangleVertices + ` :indices (list 0 -1 2))`},
		{"out of range index", `(triangles ` + triangleVertices + ` :indices (list 0 1 7))`},
		{"unknown mode", `(quads ` + triangleVertices + ` :mode :fan)`},
		{"not a vec3", `(points :vertices (list 1 2 3))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if evalErrs := evalErrors(t, tt.source); len(evalErrs) == 0 {
				t.Errorf("expected an eval error for %s", tt.source)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Solid tests
// ---------------------------------------------------------------------------

func TestSolids(t *testing.T) {
	g := mustEvaluate(t, `
(root
  (box "crate" :size (vec3 2 1 1))
  (cylinder "pipe" :height 2 :radius 0.5)
  (sphere "ball" :radius 1))
`)

	for _, name := range []string{"crate", "pipe", "ball"} {
		n := g.Lookup(name)
		if n == nil {
			t.Fatalf("expected node named %q", name)
		}
		geo, ok := n.Geometry()
		if !ok {
			t.Fatalf("%s: expected a drawable", name)
		}
		if geo.PrimitiveCount() == 0 {
			t.Errorf("%s: expected triangles", name)
		}
	}

	b := g.Lookup("crate")
	geo, _ := b.Geometry()
	box := geo.BoundingBox()
	if math.Abs(box.Max[0]-1) > 0.2 || math.Abs(box.Max[1]-0.5) > 0.2 {
		t.Errorf("crate extends to %v, expected ~(1, 0.5, 0.5)", box.Max)
	}
}

func TestSolidOperations(t *testing.T) {
	g := mustEvaluate(t, `
(def body (difference (box "body" :size (vec3 2 2 2)) (sphere :radius 1.2)))
(root
  body
  (translate (sphere "moved" :radius 1) (vec3 10 0 0))
  (union "pair" (box :size (vec3 1 1 1)) (translate (box :size (vec3 1 1 1)) (vec3 3 0 0))))
`)

	if g.Lookup("body") == nil {
		t.Error("expected the difference to keep the first operand's name")
	}

	geo, _ := g.Lookup("moved").Geometry()
	if c := geo.BoundingBox().Center(); !c.ApproxEqualThreshold(mgl64.Vec3{10, 0, 0}, 0.2) {
		t.Errorf("moved sphere centered at %v, want ~(10,0,0)", c)
	}

	geo, _ = g.Lookup("pair").Geometry()
	if c := geo.BoundingBox().Center(); !c.ApproxEqualThreshold(mgl64.Vec3{1.5, 0, 0}, 0.2) {
		t.Errorf("union centered at %v, want ~(1.5,0,0)", c)
	}
}

func TestSolidErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"flat box", `(box :size (vec3 1 0 1))`},
		{"negative radius", `(sphere :radius -1)`},
		{"union of one", `(union (sphere))`},
		{"union of node", `(union (sphere) (group "g"))`},
		{"translate node", `(translate (group "g") (vec3 1 0 0))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if evalErrs := evalErrors(t, tt.source); len(evalErrs) == 0 {
				t.Errorf("expected an eval error for %s", tt.source)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Node flag tests
// ---------------------------------------------------------------------------

func TestNodeMaskAndCulling(t *testing.T) {
	g := mustEvaluate(t, `
(group "root"
  (node-mask (points "hidden" :vertices (list (vec3 0 0 0))) 2)
  (disable-culling (points "always" :vertices (list (vec3 0 0 0)))))
`)

	if m := g.Lookup("hidden").Mask; m != 2 {
		t.Errorf("mask = %d, want 2", m)
	}
	if !g.Lookup("always").CullingDisabled {
		t.Error("expected culling to be disabled")
	}
	if g.Lookup("root").Mask != scene.AllNodes {
		t.Error("expected the default mask on other nodes")
	}

	if evalErrs := evalErrors(t, `(node-mask (group "g") -1)`); len(evalErrs) == 0 {
		t.Error("expected an eval error for a negative mask")
	}
}

// ---------------------------------------------------------------------------
// Identity tests
// ---------------------------------------------------------------------------

func TestDeterministicIDs(t *testing.T) {
	const source = `(group "g" (group) (group))`
	eng := newTestEngine()

	first, _, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	second, _, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	for i := range first.Roots[0].Children {
		if first.Roots[0].Children[i].ID != second.Roots[0].Children[i].ID {
			t.Errorf("child %d has a different ID across evaluations", i)
		}
	}
	if first.Roots[0].Children[0].ID == first.Roots[0].Children[1].ID {
		t.Error("anonymous siblings share an ID")
	}

	other, _, err := eng.EvaluateNamed("other.zy", source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if other.Roots[0].ID == first.Roots[0].ID {
		t.Error("expected namespaces to separate IDs")
	}
}

// ---------------------------------------------------------------------------
// Vec3 and regression tests
// ---------------------------------------------------------------------------

func TestVec3(t *testing.T) {
	if evalErrs := evalErrors(t, `(vec3 1 2)`); len(evalErrs) == 0 {
		t.Error("expected an eval error for two components")
	}
	if evalErrs := evalErrors(t, `(vec3 1 "two" 3)`); len(evalErrs) == 0 {
		t.Error("expected an eval error for a string component")
	}

	g := mustEvaluate(t, `(points "p" :vertices (list (vec3 1.5 -2 3)))`)
	geo, _ := g.Lookup("p").Geometry()
	if geo.Vertices[0] != (mgl64.Vec3{1.5, -2, 3}) {
		t.Errorf("vertex = %v, want (1.5,-2,3)", geo.Vertices[0])
	}
}

func TestEmptySourceStillWorks(t *testing.T) {
	g := mustEvaluate(t, "")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	g := mustEvaluate(t, "(+ 1 2)")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}
