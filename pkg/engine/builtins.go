package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/sightline/pkg/kernel"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/chazu/sightline/pkg/tessellate"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: paged-lod -> paged_lod
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNode wraps a scene node so it can be passed between builtins.
type sexpNode struct {
	node *scene.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	if n.node.Name != "" {
		return fmt.Sprintf("(%s %q)", n.node.Kind, n.node.Name)
	}
	return fmt.Sprintf("(%s %s)", n.node.Kind, n.node.ID.Short())
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid. It becomes a geometry node the first
// time it is used as one.
type sexpSolid struct {
	solid kernel.Solid
	name  string
	node  *scene.Node
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	min, max := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %q %v %v)", s.name, min, max)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an mgl64.Vec3.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool extracts a boolean from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toVec3List extracts a list of vec3 values.
func toVec3List(s zygo.Sexp) ([]mgl64.Vec3, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]mgl64.Vec3, len(items))
	for i, item := range items {
		if out[i], err = toVec3(item); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}

// toFloats extracts a list of numbers.
func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}

// toIndices extracts a list of vertex indices.
func toIndices(s zygo.Sexp) ([]uint32, error) {
	fs, err := toFloats(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(fs))
	for i, f := range fs {
		if f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
			return nil, fmt.Errorf("entry %d: %g is not a vertex index", i, f)
		}
		out[i] = uint32(f)
	}
	return out, nil
}

// toMatrix extracts a column-major 4x4 matrix from a list of 16 numbers.
func toMatrix(s zygo.Sexp) (mgl64.Mat4, error) {
	fs, err := toFloats(s)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	if len(fs) != 16 {
		return mgl64.Mat4{}, fmt.Errorf("expected 16 numbers, got %d", len(fs))
	}
	var m mgl64.Mat4
	copy(m[:], fs)
	return m, nil
}

// toRanges extracts LOD ranges from a list of (min max) pairs.
func toRanges(s zygo.Sexp) ([]scene.Range, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]scene.Range, len(items))
	for i, item := range items {
		fs, err := toFloats(item)
		if err != nil {
			return nil, fmt.Errorf("range %d: %w", i, err)
		}
		if len(fs) != 2 {
			return nil, fmt.Errorf("range %d: expected (min max), got %d numbers", i, len(fs))
		}
		out[i] = scene.Range{Min: fs[0], Max: fs[1]}
	}
	return out, nil
}

// toStrings extracts a list of strings.
func toStrings(s zygo.Sexp) ([]string, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if out[i], err = toString(item); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}

// number returns the numeric keyword argument key, or def when absent.
func (pa kwArgs) number(key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// vec3 returns the vec3 keyword argument key, or def when absent.
func (pa kwArgs) vec3(key string, def mgl64.Vec3) (mgl64.Vec3, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

// flag returns the boolean keyword argument key, false when absent.
func (pa kwArgs) flag(key string) (bool, error) {
	v, ok := pa.kw[key]
	if !ok {
		return false, nil
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// keyword returns the keyword argument key as a plain name, or def when
// absent.
func (pa kwArgs) keyword(key, def string) (string, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

// name pops a leading string positional argument.
func (pa *kwArgs) name() string {
	if len(pa.positional) == 0 {
		return ""
	}
	if s, ok := pa.positional[0].(*zygo.SexpStr); ok {
		pa.positional = pa.positional[1:]
		return s.S
	}
	return ""
}

// ---------------------------------------------------------------------------
// Scene building
// ---------------------------------------------------------------------------

// builder collects the nodes created by one evaluation.
type builder struct {
	g         *scene.Graph
	k         kernel.Kernel
	namespace string
	anon      int
}

func newBuilder(k kernel.Kernel, namespace string) *builder {
	return &builder{g: scene.New(), k: k, namespace: namespace}
}

// register gives n a deterministic ID derived from its name, or from a
// per-evaluation counter for anonymous nodes, and adds it to the scene.
func (b *builder) register(n *scene.Node) (*scene.Node, error) {
	key := n.Name
	if key == "" {
		b.anon++
		key = fmt.Sprintf("%s/_anon_%d", n.Kind, b.anon)
	} else if b.g.Lookup(n.Name) != nil {
		return nil, fmt.Errorf("duplicate node name %q", n.Name)
	}
	n.ID = scene.NodeIDFromName(b.namespace + "/" + key)
	b.g.AddNode(n)
	return n, nil
}

func (b *builder) add(kind scene.NodeKind, name string, data scene.NodeData, children []*scene.Node) (zygo.Sexp, error) {
	n, err := b.register(scene.NewNode(kind, name, data, children...))
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpNode{node: n}, nil
}

// toNode returns the node behind s, tessellating solids on first use.
func (b *builder) toNode(s zygo.Sexp) (*scene.Node, error) {
	switch v := s.(type) {
	case *sexpNode:
		return v.node, nil
	case *sexpSolid:
		if v.node != nil {
			return v.node, nil
		}
		n, err := tessellate.SolidNode(b.k, v.name, v.solid)
		if err != nil {
			return nil, err
		}
		if n, err = b.register(n); err != nil {
			return nil, err
		}
		v.node = n
		return n, nil
	}
	return nil, fmt.Errorf("expected node, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel solid.
func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// children converts the remaining positional arguments into nodes.
func (b *builder) children(pa kwArgs) ([]*scene.Node, error) {
	out := make([]*scene.Node, 0, len(pa.positional))
	for i, s := range pa.positional {
		n, err := b.toNode(s)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// projectionMatrix reads a perspective (:fovy :aspect :near :far) or
// orthographic (:left :right :bottom :top :near :far) projection. It
// returns false when neither is given.
func projectionMatrix(pa kwArgs) (mgl64.Mat4, bool, error) {
	if _, ok := pa.kw["fovy"]; ok {
		fovy, err := pa.number("fovy", 0)
		if err != nil {
			return mgl64.Mat4{}, false, err
		}
		aspect, err := pa.number("aspect", 1)
		if err != nil {
			return mgl64.Mat4{}, false, err
		}
		near, err := pa.number("near", 1)
		if err != nil {
			return mgl64.Mat4{}, false, err
		}
		far, err := pa.number("far", 1000)
		if err != nil {
			return mgl64.Mat4{}, false, err
		}
		if fovy <= 0 || fovy >= 180 || aspect <= 0 || near <= 0 || far <= near {
			return mgl64.Mat4{}, false, fmt.Errorf("invalid perspective fovy=%g aspect=%g near=%g far=%g", fovy, aspect, near, far)
		}
		return mgl64.Perspective(mgl64.DegToRad(fovy), aspect, near, far), true, nil
	}

	if _, ok := pa.kw["left"]; !ok {
		return mgl64.Ident4(), false, nil
	}
	var v [6]float64
	defaults := [6]float64{-1, 1, -1, 1, -1, 1}
	for i, key := range []string{"left", "right", "bottom", "top", "near", "far"} {
		f, err := pa.number(key, defaults[i])
		if err != nil {
			return mgl64.Mat4{}, false, err
		}
		v[i] = f
	}
	if v[0] == v[1] || v[2] == v[3] || v[4] == v[5] {
		return mgl64.Mat4{}, false, fmt.Errorf("empty orthographic volume %v", v)
	}
	return mgl64.Ortho(v[0], v[1], v[2], v[3], v[4], v[5]), true, nil
}

// lodData reads the arguments shared by lod and paged-lod.
func lodData(pa kwArgs) (scene.LODData, error) {
	var d scene.LODData
	if v, ok := pa.kw["ranges"]; ok {
		r, err := toRanges(v)
		if err != nil {
			return d, fmt.Errorf("ranges: %w", err)
		}
		d.Ranges = r
	}
	mode, err := pa.keyword("mode", "distance")
	if err != nil {
		return d, err
	}
	switch mode {
	case "distance":
		d.Mode = scene.DistanceFromEye
	case "pixel":
		d.Mode = scene.PixelSizeOnScreen
	default:
		return d, fmt.Errorf("invalid mode %q, expected distance or pixel", mode)
	}
	if d.Center, err = pa.vec3("center", mgl64.Vec3{}); err != nil {
		return d, err
	}
	if d.Radius, err = pa.number("radius", 0); err != nil {
		return d, err
	}
	return d, nil
}

// geometry reads :vertices and optional :indices into a drawable drawn
// with mode, and indexes it.
func geometry(pa kwArgs, mode scene.PrimitiveMode) (*scene.Geometry, error) {
	v, ok := pa.kw["vertices"]
	if !ok {
		return nil, fmt.Errorf("vertices are required")
	}
	vertices, err := toVec3List(v)
	if err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}

	ps := scene.PrimitiveSet{Mode: mode, Count: len(vertices)}
	if v, ok := pa.kw["indices"]; ok {
		if ps.Indices, err = toIndices(v); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		ps.Count = 0
	}
	return scene.BuildIndex(&scene.Geometry{
		Vertices:   vertices,
		Primitives: []scene.PrimitiveSet{ps},
	}), nil
}

// drawable registers a geometry builtin whose :mode keyword picks among
// modes, defaulting to def.
func drawable(env *zygo.Zlisp, b *builder, fn string, modes map[string]scene.PrimitiveMode, def string) {
	env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()

		modeName, err := pa.keyword("mode", def)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		mode, ok := modes[modeName]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s: invalid mode %q", fn, modeName)
		}
		g, err := geometry(pa, mode)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return b.add(scene.NodeGeometry, nodeName, scene.GeometryData{Geometry: g}, nil)
	})
}

// solidOp registers a boolean operation folding its solid arguments left
// to right.
func solidOp(env *zygo.Zlisp, fn string, op func(a, b kernel.Solid) kernel.Solid) {
	env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two solids", fn)
		}
		first, err := toSolid(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		acc := first.solid
		for i, s := range pa.positional[1:] {
			next, err := toSolid(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", fn, i+1, err)
			}
			acc = op(acc, next.solid)
		}
		if nodeName == "" {
			nodeName = first.name
		}
		return &sexpSolid{solid: acc, name: nodeName}, nil
	})
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. The builtins populate b's scene during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (node "name")
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a name argument")
		}
		nodeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
		}
		n := b.g.Lookup(nodeName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("node: no node named %q", nodeName)
		}
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (group "name" child...)
	// -----------------------------------------------------------------------
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: %w", err)
		}
		return b.add(scene.NodeGroup, nodeName, scene.GroupData{}, children)
	})

	// -----------------------------------------------------------------------
	// (transform "name" :translate (vec3 0 0 5) :rotate (vec3 0 0 90)
	//            :scale (vec3 2 2 2) :matrix (list ...16) :absolute true child...)
	// -----------------------------------------------------------------------
	env.AddFunction("transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		td := scene.TransformData{}

		for key, dst := range map[string]**mgl64.Vec3{
			"translate": &td.Translation,
			"rotate":    &td.Rotation,
			"scale":     &td.Scale,
		} {
			if v, ok := pa.kw[key]; ok {
				vec, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("transform: %s: %w", key, err)
				}
				*dst = &vec
			}
		}
		if v, ok := pa.kw["matrix"]; ok {
			m, err := toMatrix(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: matrix: %w", err)
			}
			td.Matrix = &m
		}
		abs, err := pa.flag("absolute")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("transform: %w", err)
		}
		if abs {
			td.Reference = scene.AbsoluteRF
		}

		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("transform: %w", err)
		}
		return b.add(scene.NodeTransform, nodeName, td, children)
	})

	// -----------------------------------------------------------------------
	// (projection "name" :left -1 :right 1 :bottom -1 :top 1 child...)
	// (projection "name" :fovy 45 :aspect 1.5 :near 1 :far 100 child...)
	// -----------------------------------------------------------------------
	env.AddFunction("projection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		m, ok, err := projectionMatrix(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("projection: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("projection requires :fovy or :left")
		}
		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("projection: %w", err)
		}
		return b.add(scene.NodeProjection, nodeName, scene.ProjectionData{Matrix: m}, children)
	})

	// -----------------------------------------------------------------------
	// (camera "name" :eye (vec3 0 0 10) :center (vec3 0 0 0) :up (vec3 0 1 0)
	//         :fovy 45 :aspect 1 :near 1 :far 100 :viewport (list 0 0 800 600)
	//         :absolute true :order :post child...)
	// -----------------------------------------------------------------------
	env.AddFunction("camera", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()

		proj, _, err := projectionMatrix(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("camera: %w", err)
		}
		cd := scene.CameraData{Projection: proj, View: mgl64.Ident4()}

		if _, ok := pa.kw["eye"]; ok {
			eye, err := pa.vec3("eye", mgl64.Vec3{})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			center, err := pa.vec3("center", mgl64.Vec3{})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			up, err := pa.vec3("up", mgl64.Vec3{0, 1, 0})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			cd.View = mgl64.LookAtV(eye, center, up)
		}

		if v, ok := pa.kw["viewport"]; ok {
			fs, err := toFloats(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: viewport: %w", err)
			}
			if len(fs) != 4 {
				return zygo.SexpNull, fmt.Errorf("camera: viewport: expected (x y width height), got %d numbers", len(fs))
			}
			cd.Viewport = &scene.Viewport{X: fs[0], Y: fs[1], Width: fs[2], Height: fs[3]}
		}

		abs, err := pa.flag("absolute")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("camera: %w", err)
		}
		if abs {
			cd.Reference = scene.AbsoluteRF
		}

		order, err := pa.keyword("order", "pre")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("camera: %w", err)
		}
		switch order {
		case "pre":
			cd.Order = scene.PreMultiply
		case "post":
			cd.Order = scene.PostMultiply
		default:
			return zygo.SexpNull, fmt.Errorf("camera: invalid order %q, expected pre or post", order)
		}

		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("camera: %w", err)
		}
		return b.add(scene.NodeCamera, nodeName, cd, children)
	})

	// -----------------------------------------------------------------------
	// (billboard "name" :mode :point :axis (vec3 0 0 1) :normal (vec3 0 -1 0)
	//            :positions (list (vec3 0 0 0) ...) child...)
	// -----------------------------------------------------------------------
	env.AddFunction("billboard", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		bd := scene.BillboardData{}

		mode, err := pa.keyword("mode", "axial")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("billboard: %w", err)
		}
		switch mode {
		case "axial":
			bd.Mode = scene.BillboardAxialRot
		case "point":
			bd.Mode = scene.BillboardPointRotEye
		default:
			return zygo.SexpNull, fmt.Errorf("billboard: invalid mode %q, expected axial or point", mode)
		}
		if bd.Axis, err = pa.vec3("axis", mgl64.Vec3{}); err != nil {
			return zygo.SexpNull, fmt.Errorf("billboard: %w", err)
		}
		if bd.Normal, err = pa.vec3("normal", mgl64.Vec3{}); err != nil {
			return zygo.SexpNull, fmt.Errorf("billboard: %w", err)
		}
		if v, ok := pa.kw["positions"]; ok {
			if bd.Positions, err = toVec3List(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("billboard: positions: %w", err)
			}
		}

		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("billboard: %w", err)
		}
		return b.add(scene.NodeBillboard, nodeName, bd, children)
	})

	// -----------------------------------------------------------------------
	// (lod "name" :ranges (list (list 0 10) (list 10 100)) :mode :distance
	//      :center (vec3 0 0 0) :radius 5 child...)
	// -----------------------------------------------------------------------
	env.AddFunction("lod", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		d, err := lodData(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("lod: %w", err)
		}
		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("lod: %w", err)
		}
		return b.add(scene.NodeLOD, nodeName, d, children)
	})

	// -----------------------------------------------------------------------
	// (paged-lod "name" :ranges (list (list 0 10) (list 10 100))
	//            :files (list "near.zy" "far.zy") :database-path "tiles/" child...)
	// -----------------------------------------------------------------------
	env.AddFunction("paged_lod", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		d, err := lodData(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("paged-lod: %w", err)
		}
		if v, ok := pa.kw["files"]; ok {
			if d.FileNames, err = toStrings(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("paged-lod: files: %w", err)
			}
		}
		if v, ok := pa.kw["database-path"]; ok {
			if d.DatabasePath, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("paged-lod: database-path: %w", err)
			}
		}
		children, err := b.children(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("paged-lod: %w", err)
		}
		return b.add(scene.NodePagedLOD, nodeName, d, children)
	})

	// -----------------------------------------------------------------------
	// (triangles "name" :vertices (list (vec3 ...) ...) :indices (list 0 1 2)
	//            :mode :strip)
	// -----------------------------------------------------------------------
	drawable(env, b, "triangles", map[string]scene.PrimitiveMode{
		"list":  scene.ModeTriangles,
		"strip": scene.ModeTriangleStrip,
		"fan":   scene.ModeTriangleFan,
	}, "list")
	drawable(env, b, "quads", map[string]scene.PrimitiveMode{
		"list": scene.ModeQuads,
	}, "list")
	drawable(env, b, "points", map[string]scene.PrimitiveMode{
		"list": scene.ModePoints,
	}, "list")
	drawable(env, b, "lines", map[string]scene.PrimitiveMode{
		"list":  scene.ModeLines,
		"strip": scene.ModeLineStrip,
		"loop":  scene.ModeLineLoop,
	}, "list")

	// -----------------------------------------------------------------------
	// (box "name" :size (vec3 2 1 1))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		size, err := pa.vec3("size", mgl64.Vec3{1, 1, 1})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("box: size %v must be positive", size)
		}
		return &sexpSolid{solid: b.k.Box(size[0], size[1], size[2]), name: nodeName}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder "name" :height 2 :radius 0.5 :segments 32)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		height, err := pa.number("height", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		radius, err := pa.number("radius", 0.5)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		segments, err := pa.number("segments", 32)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if height <= 0 || radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder: height %g and radius %g must be positive", height, radius)
		}
		return &sexpSolid{solid: b.k.Cylinder(height, radius, int(segments)), name: nodeName}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere "name" :radius 1)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName := pa.name()
		radius, err := pa.number("radius", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		if radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("sphere: radius %g must be positive", radius)
		}
		return &sexpSolid{solid: b.k.Sphere(radius), name: nodeName}, nil
	})

	// -----------------------------------------------------------------------
	// (union "name" a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	solidOp(env, "union", b.k.Union)
	solidOp(env, "difference", b.k.Difference)
	solidOp(env, "intersection", b.k.Intersection)

	// -----------------------------------------------------------------------
	// (translate solid (vec3 1 0 0)), (rotate solid (vec3 0 0 90))
	// -----------------------------------------------------------------------
	for fn, op := range map[string]func(kernel.Solid, float64, float64, float64) kernel.Solid{
		"translate": b.k.Translate,
		"rotate":    b.k.Rotate,
	} {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", fn)
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &sexpSolid{solid: op(s.solid, v[0], v[1], v[2]), name: s.name}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (node-mask node 0x2)
	// -----------------------------------------------------------------------
	env.AddFunction("node_mask", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("node-mask requires a node and a mask")
		}
		n, err := b.toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node-mask: %w", err)
		}
		m, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node-mask: %w", err)
		}
		if m < 0 || m > math.MaxUint32 || m != math.Trunc(m) {
			return zygo.SexpNull, fmt.Errorf("node-mask: %g is not a 32-bit mask", m)
		}
		n.Mask = scene.NodeMask(m)
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (disable-culling node)
	// -----------------------------------------------------------------------
	env.AddFunction("disable_culling", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("disable-culling requires a node")
		}
		n, err := b.toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("disable-culling: %w", err)
		}
		n.CullingDisabled = true
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (root node...)
	// -----------------------------------------------------------------------
	env.AddFunction("root", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("root requires at least one node")
		}
		var last *scene.Node
		for i, s := range args {
			n, err := b.toNode(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("root: %d: %w", i, err)
			}
			b.g.AddRoot(n)
			last = n
		}
		return &sexpNode{node: last}, nil
	})
}
