package main

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/sightline/pkg/engine"
	"github.com/chazu/sightline/pkg/intersect"
	"github.com/chazu/sightline/pkg/kernel"
	"github.com/chazu/sightline/pkg/loader"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/chazu/sightline/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// App evaluates scene scripts and runs intersection queries against them.
type App struct {
	engine *engine.Engine
	loader *loader.Loader
}

// HitData is the JSON form of one intersection.
type HitData struct {
	Query       string         `json:"query"`
	Drawable    scene.NodeID   `json:"drawable"`
	Name        string         `json:"name,omitempty"`
	Path        []scene.NodeID `json:"path"`
	Primitive   int            `json:"primitive"`
	Ratio       float64        `json:"ratio,omitempty"`
	Distance    float64        `json:"distance"`
	MaxDistance float64        `json:"maxDistance,omitempty"`
	Point       mgl64.Vec3     `json:"point"`
	Normal      *mgl64.Vec3    `json:"normal,omitempty"`
}

// MeshData summarizes one flattened world-space mesh.
type MeshData struct {
	Name      string     `json:"name"`
	Vertices  int        `json:"vertices"`
	Triangles int        `json:"triangles"`
	Min       mgl64.Vec3 `json:"min"`
	Max       mgl64.Vec3 `json:"max"`
}

// EvalErrorData is a JSON-serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// PickResult is the full result printed by the CLI.
type PickResult struct {
	Hits   []HitData       `json:"hits"`
	Meshes []MeshData      `json:"meshes,omitempty"`
	Scene  *MeshData       `json:"scene,omitempty"`
	Errors []EvalErrorData `json:"errors"`
}

// pickOptions tunes a single query run.
type pickOptions struct {
	// namespace scopes the IDs of the evaluated scene, usually its path.
	namespace     string
	traversalMask scene.NodeMask
	spatialIndex  bool
	flatten       bool
}

func defaultPickOptions() pickOptions {
	return pickOptions{
		traversalMask: scene.AllNodes,
		spatialIndex:  true,
	}
}

// NewApp creates an App whose paged children are read from databasePath.
func NewApp(databasePath string) *App {
	e := engine.NewEngine()
	return &App{
		engine: e,
		loader: loader.New(
			loader.WithRoot(databasePath),
			loader.WithEngine(e),
		),
	}
}

// Pick evaluates source and runs q over the resulting scene.
func (a *App) Pick(ctx context.Context, source string, q intersect.Intersector, opts pickOptions) PickResult {
	result := PickResult{
		Hits:   []HitData{},
		Errors: []EvalErrorData{},
	}

	g, evalErrs, err := a.engine.EvaluateNamed(opts.namespace, source)
	if err != nil {
		logs.Warn(err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = lo.Map(evalErrs, func(e engine.EvalError, _ int) EvalErrorData {
			return EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			}
		})
		return result
	}

	names := nodeNames(g.Roots...)
	load := intersect.LoaderFunc(func(ctx context.Context, file string) (*scene.Node, error) {
		n, err := a.loader.LoadNode(ctx, file)
		if n != nil {
			for id, name := range nodeNames(n) {
				names[id] = name
			}
		}
		return n, err
	})

	v := intersect.NewVisitor(q,
		intersect.WithContext(ctx),
		intersect.WithLoader(load),
		intersect.WithTraversalMask(opts.traversalMask),
		intersect.WithSpatialIndex(opts.spatialIndex),
	)
	v.ApplyGraph(g)

	result.Hits = collectHits(q, names)
	logs.WithTag("hits", len(result.Hits)).
		WithTag("query", queryName(q)).
		Debug("query done")

	if opts.flatten {
		meshes, err := tessellate.Flatten(g)
		if err != nil {
			logs.Warn(err)
			result.Errors = append(result.Errors, EvalErrorData{
				Message: "flattening failed: " + err.Error(),
			})
			return result
		}
		result.Meshes = lo.Map(meshes, func(m *kernel.Mesh, _ int) MeshData {
			return meshData(m)
		})
		if merged := tessellate.Merge("scene", meshes); !merged.IsEmpty() {
			total := meshData(merged)
			result.Scene = &total
		}
	}
	return result
}

func nodeNames(roots ...*scene.Node) map[scene.NodeID]string {
	names := make(map[scene.NodeID]string)
	for _, r := range roots {
		scene.Walk(r, func(n *scene.Node) bool {
			if n.Name != "" {
				names[n.ID] = n.Name
			}
			return true
		})
	}
	return names
}

// collectHits reads the results of q, flattening groups in member order.
func collectHits(q intersect.Intersector, names map[scene.NodeID]string) []HitData {
	hits := []HitData{}
	switch q := q.(type) {
	case *intersect.Segment:
		hits = append(hits, lineHits("segment", q.Intersections(), names)...)

	case *intersect.Ray:
		hits = append(hits, lineHits("ray", q.Intersections(), names)...)

	case *intersect.Polytope:
		for _, in := range q.Intersections() {
			hits = append(hits, HitData{
				Query:       "polytope",
				Drawable:    in.Drawable,
				Name:        names[in.Drawable],
				Path:        in.NodePath,
				Primitive:   in.PrimitiveIndex,
				Distance:    in.Distance,
				MaxDistance: in.MaxDistance,
				Point:       in.WorldPoint(),
			})
		}

	case *intersect.Group:
		for _, m := range q.Members() {
			hits = append(hits, collectHits(m, names)...)
		}
	}
	return hits
}

func lineHits(query string, ins []intersect.Intersection, names map[scene.NodeID]string) []HitData {
	return lo.Map(ins, func(in intersect.Intersection, _ int) HitData {
		normal := in.WorldNormal()
		return HitData{
			Query:     query,
			Drawable:  in.Drawable,
			Name:      names[in.Drawable],
			Path:      in.NodePath,
			Primitive: in.PrimitiveIndex,
			Ratio:     in.Ratio,
			Distance:  in.Distance,
			Point:     in.WorldPoint(),
			Normal:    &normal,
		}
	})
}

func meshData(m *kernel.Mesh) MeshData {
	b := m.Bounds()
	return MeshData{
		Name:      m.Name,
		Vertices:  m.VertexCount(),
		Triangles: m.TriangleCount(),
		Min:       b.Min,
		Max:       b.Max,
	}
}

func queryName(q intersect.Intersector) string {
	switch q.(type) {
	case *intersect.Segment:
		return "segment"
	case *intersect.Ray:
		return "ray"
	case *intersect.Polytope:
		return "polytope"
	case *intersect.Group:
		return "group"
	default:
		return "unknown"
	}
}
