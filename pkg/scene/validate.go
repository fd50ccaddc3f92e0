package scene

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeInvalidScene classifies errors returned by Check.
const ErrTypeInvalidScene = "invalid_scene"

// ValidationSeverity indicates whether a validation finding makes a scene
// unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // scene must not be queried
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// Validate runs every check on the scene and returns all findings. It never
// mutates the scene and never panics, including on cyclic input.
func Validate(g *Graph) ValidationResult {
	var findings []ValidationError
	findings = append(findings, validateDAG(g)...)
	if len(findings) > 0 {
		// The remaining checks walk the scene and assume it is acyclic.
		return ValidationResult{Errors: findings}
	}
	findings = append(findings, validateNodes(g)...)
	findings = append(findings, validateNames(g)...)

	var result ValidationResult
	for _, f := range findings {
		if f.Severity == SeverityError {
			result.Errors = append(result.Errors, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}
	return result
}

// Check validates g and returns an error carrying the first blocking
// finding, if any.
func Check(g *Graph) error {
	res := Validate(g)
	if len(res.Errors) == 0 {
		return nil
	}
	first := res.Errors[0]
	return errors.New("scene is invalid").
		WithType(ErrTypeInvalidScene).
		WithTag("node", first.NodeID.String()).
		WithTag("problems", len(res.Errors)).
		Wrap(first)
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Node]int)
	var errs []ValidationError

	var visit func(n *Node) bool // returns true if cycle found
	visit = func(n *Node) bool {
		if n == nil {
			return false
		}
		switch color[n] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("cycle detected: node %s is its own ancestor", n.ID.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[n] = gray
		for _, c := range n.Children {
			if visit(c) {
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, r := range g.Roots {
		if visit(r) {
			break
		}
	}
	return errs
}

func validateNodes(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, r := range g.Roots {
		Walk(r, func(n *Node) bool {
			errs = append(errs, validateNode(n)...)
			return true
		})
	}
	return errs
}

func validateNode(n *Node) []ValidationError {
	var errs []ValidationError
	add := func(sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	for i, c := range n.Children {
		if c == nil {
			add(SeverityError, "child %d is nil", i)
		}
	}
	if n.Mask == 0 {
		add(SeverityWarning, "node mask is zero; no traversal will see it")
	}

	switch n.Kind {
	case NodeGroup:
		if _, ok := n.Data.(GroupData); n.Data != nil && !ok {
			add(SeverityError, "group node carries %T", n.Data)
		}

	case NodeTransform:
		d, ok := n.TransformData()
		if !ok {
			add(SeverityError, "transform node carries %T", n.Data)
			break
		}
		if !invertible(d.LocalMatrix().Det()) {
			add(SeverityError, "transform matrix is singular")
		}

	case NodeProjection:
		d, ok := n.ProjectionData()
		if !ok {
			add(SeverityError, "projection node carries %T", n.Data)
			break
		}
		if !invertible(d.Matrix.Det()) {
			add(SeverityError, "projection matrix is singular")
		}

	case NodeCamera:
		d, ok := n.CameraData()
		if !ok {
			add(SeverityError, "camera node carries %T", n.Data)
			break
		}
		if !invertible(d.Projection.Det()) || !invertible(d.View.Det()) {
			add(SeverityError, "camera projection or view matrix is singular")
		}
		if vp := d.Viewport; vp != nil && (vp.Width <= 0 || vp.Height <= 0) {
			add(SeverityError, "camera viewport %gx%g is empty", vp.Width, vp.Height)
		}

	case NodeBillboard:
		d, ok := n.BillboardData()
		if !ok {
			add(SeverityError, "billboard node carries %T", n.Data)
			break
		}
		if len(d.Positions) < len(n.Children) {
			add(SeverityWarning, "billboard has %d positions for %d children; the rest sit at the origin",
				len(d.Positions), len(n.Children))
		}

	case NodeLOD, NodePagedLOD:
		d, ok := n.LODData()
		if !ok {
			add(SeverityError, "%s node carries %T", n.Kind, n.Data)
			break
		}
		for i, r := range d.Ranges {
			if r.Max < r.Min {
				add(SeverityError, "range %d is inverted: [%g, %g)", i, r.Min, r.Max)
			}
		}
		if len(n.Children) > len(d.Ranges) {
			add(SeverityWarning, "%d children but only %d ranges", len(n.Children), len(d.Ranges))
		}
		if n.Kind == NodePagedLOD && len(n.Children) < len(d.Ranges) && len(d.FileNames) == 0 {
			add(SeverityError, "ranges %d..%d have neither a resident child nor a file name",
				len(n.Children), len(d.Ranges)-1)
		}

	case NodeGeometry:
		g, ok := n.Geometry()
		if !ok {
			add(SeverityError, "geometry node has no drawable")
			break
		}
		if len(n.Children) > 0 {
			add(SeverityWarning, "geometry node has %d children; they are never visited", len(n.Children))
		}
		errs = append(errs, validateGeometry(n.ID, g)...)

	default:
		add(SeverityError, "unknown node kind %d", int(n.Kind))
	}
	return errs
}

// arity is the number of vertices each primitive of a list mode takes.
var arity = map[PrimitiveMode]int{
	ModePoints:    1,
	ModeLines:     2,
	ModeTriangles: 3,
	ModeQuads:     4,
}

func validateGeometry(id NodeID, g *Geometry) []ValidationError {
	var errs []ValidationError
	if len(g.Vertices) == 0 {
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  "drawable has no vertices",
			Severity: SeverityWarning,
		})
	}
	for si, ps := range g.Primitives {
		n := ps.Len()
		if a, ok := arity[ps.Mode]; ok && n%a != 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("primitive set %d: %d vertices is not a multiple of %d for %s", si, n, a, ps.Mode),
				Severity: SeverityWarning,
			})
		}
		for k := 0; k < n; k++ {
			if vi := ps.At(k); int(vi) >= len(g.Vertices) {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("primitive set %d: vertex index %d out of range (%d vertices)", si, vi, len(g.Vertices)),
					Severity: SeverityError,
				})
				break
			}
		}
	}
	return errs
}

func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]NodeID)
	for _, r := range g.Roots {
		Walk(r, func(n *Node) bool {
			if n.Name == "" {
				return true
			}
			if first, ok := seen[n.Name]; ok && first != n.ID {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("name %q is also used by node %s", n.Name, first.Short()),
					Severity: SeverityWarning,
				})
				return true
			}
			seen[n.Name] = n.ID
			return true
		})
	}
	return errs
}

func invertible(det float64) bool {
	return math.Abs(det) > 1e-12
}
