package main

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/sightline/pkg/intersect"
	"github.com/chazu/sightline/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

const errTypeInvalidArgument = "invalid_argument"

// buildQuery creates the intersector described by conf. A comma separated
// query list builds a group running every listed query in one traversal.
func buildQuery(conf config) (intersect.Intersector, error) {
	frame, err := intersect.ParseFrame(conf.Frame)
	if err != nil {
		return nil, invalidArgument("frame", err)
	}
	limit, err := intersect.ParseLimit(conf.Limit)
	if err != nil {
		return nil, invalidArgument("limit", err)
	}
	precision, err := intersect.ParsePrecision(conf.Precision)
	if err != nil {
		return nil, invalidArgument("precision", err)
	}

	kinds := splitList(conf.Query)
	if len(kinds) == 0 {
		return nil, errors.New("no query given").WithType(errTypeInvalidArgument)
	}

	var members []intersect.Intersector
	for _, kind := range kinds {
		q, err := buildSingleQuery(conf, kind, frame, limit, precision)
		if err != nil {
			return nil, err
		}
		members = append(members, q)
	}
	if len(members) == 1 {
		return members[0], nil
	}
	return intersect.NewGroup(members...), nil
}

func buildSingleQuery(conf config, kind string, frame intersect.Frame, limit intersect.Limit, precision intersect.Precision) (intersect.Intersector, error) {
	switch kind {
	case "segment":
		start, err := parseVec3(conf.Start)
		if err != nil {
			return nil, invalidArgument("start", err)
		}
		end, err := parseVec3(conf.End)
		if err != nil {
			return nil, invalidArgument("end", err)
		}
		s := intersect.NewSegment(frame, start, end)
		s.SetLimit(limit)
		s.SetPrecision(precision)
		return s, nil

	case "ray":
		start, err := parseVec3(conf.Start)
		if err != nil {
			return nil, invalidArgument("start", err)
		}
		dir, err := parseVec3(conf.Direction)
		if err != nil {
			return nil, invalidArgument("direction", err)
		}
		r := intersect.NewRay(frame, start, dir)
		r.SetLimit(limit)
		r.SetPrecision(precision)
		return r, nil

	case "polytope":
		w, err := parseFloats(conf.Window, 4)
		if err != nil {
			return nil, invalidArgument("window", err)
		}
		if w[0] >= w[2] || w[1] >= w[3] {
			return nil, errors.New("window is empty").
				WithType(errTypeInvalidArgument).
				WithTag("window", conf.Window)
		}
		mask, err := parsePrimitiveMask(conf.Primitives)
		if err != nil {
			return nil, invalidArgument("primitives", err)
		}
		p := intersect.NewPolytopeWindow(frame, w[0], w[1], w[2], w[3])
		p.SetLimit(limit)
		p.SetPrimitiveMask(mask)
		return p, nil

	default:
		return nil, errors.New("unknown query").
			WithType(errTypeInvalidArgument).
			WithTag("query", kind)
	}
}

func invalidArgument(name string, err error) error {
	return errors.New("invalid argument").
		WithType(errTypeInvalidArgument).
		WithTag("argument", name).
		Wrap(err)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseFloats parses exactly n comma separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, errors.Newf("expected %d numbers, got %d", n, len(fields)).
			WithTag("value", s)
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.New("invalid number").
				WithTag("value", f).
				Wrap(err)
		}
		out[i] = v
	}
	return out, nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (mgl64.Vec3, error) {
	f, err := parseFloats(s, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{f[0], f[1], f[2]}, nil
}

// parsePrimitiveMask parses a list of points, lines, triangles or all.
func parsePrimitiveMask(s string) (intersect.PrimitiveMask, error) {
	var mask intersect.PrimitiveMask
	for _, name := range splitList(s) {
		switch name {
		case "points":
			mask |= intersect.PointPrimitives
		case "lines":
			mask |= intersect.LinePrimitives
		case "triangles":
			mask |= intersect.TrianglePrimitives
		case "all":
			mask |= intersect.AllPrimitives
		default:
			return 0, errors.New("unknown primitive kind").WithTag("kind", name)
		}
	}
	if mask == 0 {
		return 0, errors.New("no primitive kind given")
	}
	return mask, nil
}

// parseNodeMask accepts decimal, 0x hex or 0b binary masks.
func parseNodeMask(s string) (scene.NodeMask, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, errors.New("invalid node mask").
			WithTag("value", s).
			Wrap(err)
	}
	return scene.NodeMask(v), nil
}
