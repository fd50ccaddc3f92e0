package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/segmentio/encoding/json"
)

var (
	// The Sightline version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "sightline_info",
		Help:        "Sightline information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Scene         string `cli:""        env:"SIGHTLINE_SCENE"          help:"Scene script to query."`
	Database      string `cli:""        env:"SIGHTLINE_DATABASE"       help:"Directory paged children are loaded from. Defaults to the scene's directory."`
	Query         string `cli:""        env:"SIGHTLINE_QUERY"          help:"Comma separated queries to run (segment|ray|polytope)."`
	Frame         string `cli:""        env:"SIGHTLINE_FRAME"          help:"Frame the query is expressed in (window|projection|view|model)."`
	Start         string `cli:""        env:"SIGHTLINE_START"          help:"Segment or ray start, as x,y,z."`
	End           string `cli:""        env:"SIGHTLINE_END"            help:"Segment end, as x,y,z."`
	Direction     string `cli:""        env:"SIGHTLINE_DIRECTION"      help:"Ray direction, as x,y,z."`
	Window        string `cli:""        env:"SIGHTLINE_WINDOW"         help:"Polytope rectangle, as xmin,ymin,xmax,ymax."`
	Limit         string `cli:""        env:"SIGHTLINE_LIMIT"          help:"Result limit (none|one-per-drawable|one|nearest)."`
	Precision     string `cli:""        env:"SIGHTLINE_PRECISION"      help:"Triangle test arithmetic (double|single)."`
	Primitives    string `cli:""        env:"SIGHTLINE_PRIMITIVES"     help:"Comma separated primitive kinds a polytope considers (points|lines|triangles|all)."`
	TraversalMask string `cli:""        env:"SIGHTLINE_TRAVERSAL_MASK" help:"Node mask a node must share a bit with to be visited."`
	SpatialIndex  bool   `cli:""        env:"SIGHTLINE_SPATIAL_INDEX"  help:"Use drawable spatial indexes."`
	Flatten       bool   `cli:""        env:"SIGHTLINE_FLATTEN"        help:"Also print the scene flattened to world-space meshes."`
	Metrics       bool   `cli:""        env:"SIGHTLINE_METRICS"        help:"Print gathered metrics to stderr after the query."`
	LogLevel      string `cli:""        env:"SIGHTLINE_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	LogIndent     bool   `cli:""        env:"SIGHTLINE_LOG_INDENT"     help:"Indent logs and output."`
	Version       bool   `cli:""        env:"-"                        help:"Show version."`
	Help          bool   `cli:""        env:"-"                        help:"Show help."`
}

func defaultConfig() config {
	return config{
		Query:         "segment",
		Frame:         "model",
		Start:         "0,0,1000",
		End:           "0,0,-1000",
		Direction:     "0,0,-1",
		Window:        "-1,-1,1,1",
		Limit:         "none",
		Precision:     "double",
		Primitives:    "all",
		TraversalMask: "0xffffffff",
		SpatialIndex:  true,
		LogLevel:      logs.InfoLevel.String(),
	}
}

func main() {
	conf := defaultConfig()

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Runs an intersection query against a scene script and prints the hits as JSON.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	ok, err := run(ctx, conf, os.Stdout)
	if err != nil {
		logs.Fatal(err)
	}

	if conf.Metrics {
		if err := writeMetrics(os.Stderr, prometheus.DefaultGatherer); err != nil {
			logs.Warn(errors.New("writing metrics failed").Wrap(err))
		}
	}

	if !ok {
		os.Exit(1)
	}
}

// run executes the query described by conf and writes the result to w. It
// reports false when the scene had errors.
func run(ctx context.Context, conf config, w io.Writer) (bool, error) {
	if err := validateConfig(conf); err != nil {
		return false, err
	}

	q, err := buildQuery(conf)
	if err != nil {
		return false, err
	}

	opts := defaultPickOptions()
	if opts.traversalMask, err = parseNodeMask(conf.TraversalMask); err != nil {
		return false, invalidArgument("traversal-mask", err)
	}
	opts.spatialIndex = conf.SpatialIndex
	opts.flatten = conf.Flatten
	opts.namespace = conf.Scene

	source, err := os.ReadFile(conf.Scene)
	if err != nil {
		return false, errors.New("reading scene failed").
			WithTag("scene", conf.Scene).
			Wrap(err)
	}

	database := conf.Database
	if database == "" {
		database = filepath.Dir(conf.Scene)
	}

	logs.WithTag("scene", conf.Scene).
		WithTag("query", conf.Query).
		WithTag("frame", conf.Frame).
		Info("running query")

	res := NewApp(database).Pick(ctx, string(source), q, opts)
	if err := writeJSON(w, res, conf.LogIndent); err != nil {
		return false, errors.New("writing result failed").Wrap(err)
	}
	return len(res.Errors) == 0, nil
}

func validateConfig(conf config) error {
	if conf.Scene == "" {
		return errors.New("a scene script is required").
			WithType(errTypeInvalidArgument)
	}
	return nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	var (
		b   []byte
		err error
	)
	if indent {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// writeMetrics prints every gathered metric family in the text exposition
// format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
