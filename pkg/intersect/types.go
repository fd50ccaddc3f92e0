package intersect

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Frame names the coordinate system a query is expressed in.
type Frame int

const (
	FrameWindow Frame = iota
	FrameProjection
	FrameView
	FrameModel
)

func (f Frame) String() string {
	switch f {
	case FrameWindow:
		return "window"
	case FrameProjection:
		return "projection"
	case FrameView:
		return "view"
	case FrameModel:
		return "model"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// ParseFrame converts a name produced by Frame.String.
func ParseFrame(s string) (Frame, error) {
	for f := FrameWindow; f <= FrameModel; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, errors.New("unknown frame").WithTag("frame", s)
}

// Limit bounds how many intersections a query keeps.
type Limit int

const (
	NoLimit             Limit = iota // keep every hit
	LimitOnePerDrawable              // keep the nearest hit of each drawable instance
	LimitOne                         // stop after the first drawable that hits
	LimitNearest                     // keep only the nearest hit overall
)

func (l Limit) String() string {
	switch l {
	case NoLimit:
		return "none"
	case LimitOnePerDrawable:
		return "one-per-drawable"
	case LimitOne:
		return "one"
	case LimitNearest:
		return "nearest"
	default:
		return fmt.Sprintf("Limit(%d)", int(l))
	}
}

// ParseLimit converts a name produced by Limit.String.
func ParseLimit(s string) (Limit, error) {
	for l := NoLimit; l <= LimitNearest; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, errors.New("unknown limit").WithTag("limit", s)
}

// Precision selects the arithmetic used by triangle tests.
type Precision int

const (
	DoublePrecision Precision = iota
	SinglePrecision
)

func (p Precision) String() string {
	if p == SinglePrecision {
		return "single"
	}
	return "double"
}

// ParsePrecision converts "single" or "double".
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "double":
		return DoublePrecision, nil
	case "single":
		return SinglePrecision, nil
	default:
		return 0, errors.New("unknown precision").WithTag("precision", s)
	}
}

// PrimitiveMask selects which primitive kinds a polytope query considers.
type PrimitiveMask uint8

const (
	PointPrimitives    PrimitiveMask = 1 << iota
	LinePrimitives                   // lines and line strips
	TrianglePrimitives               // triangles and quads
	AllPrimitives      = PointPrimitives | LinePrimitives | TrianglePrimitives
)
