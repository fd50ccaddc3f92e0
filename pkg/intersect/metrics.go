package intersect

import (
	"time"

	"github.com/chazu/sightline/pkg/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel   = "kind"
	queryLabel  = "query"
	resultLabel = "result"
)

var (
	nodesVisited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sightline_nodes_visited",
		Help: "The number of scene nodes visited by intersection traversals.",
	}, []string{
		kindLabel,
	})

	nodesCulled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sightline_nodes_culled",
		Help: "The number of subtrees skipped by bound tests.",
	})

	drawablesTested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sightline_drawables_tested",
		Help: "The number of drawables handed to intersectors.",
	})

	intersectionsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sightline_intersections",
		Help: "The number of primitive hits, before result limits apply.",
	}, []string{
		queryLabel,
	})

	pagedLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sightline_paged_loads",
		Help: "The number of paged children requested from the loader.",
	}, []string{
		resultLabel,
	})

	traversalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sightline_traversal_latency",
		Help: "The time to run one intersection traversal.",
	})
)

func instrumentVisit(k scene.NodeKind) {
	nodesVisited.With(prometheus.Labels{
		kindLabel: k.String(),
	}).Inc()
}

func instrumentCulled() {
	nodesCulled.Inc()
}

func instrumentDrawable() {
	drawablesTested.Inc()
}

func instrumentIntersections(query string, n int) {
	if n == 0 {
		return
	}
	intersectionsFound.With(prometheus.Labels{
		queryLabel: query,
	}).Add(float64(n))
}

func instrumentPagedLoad(result string) {
	pagedLoads.With(prometheus.Labels{
		resultLabel: result,
	}).Inc()
}

func instrumentTraversalLatency(start time.Time) {
	traversalLatency.Observe(time.Since(start).Seconds())
}
