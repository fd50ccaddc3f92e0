package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned bounding box. A box with any Min component greater
// than the matching Max component is invalid (empty).
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyBox returns an invalid box that any expansion will replace.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// NewBox returns the smallest box containing all points.
func NewBox(points ...mgl64.Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

// Valid reports whether the box encloses at least one point.
func (b Box) Valid() bool {
	return b.Max[0] >= b.Min[0] && b.Max[1] >= b.Min[1] && b.Max[2] >= b.Min[2]
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns half the length of the box diagonal.
func (b Box) Radius() float64 {
	return b.Max.Sub(b.Min).Len() * 0.5
}

// Corner returns one of the eight corners. Bit 0 of i selects the max x,
// bit 1 the max y and bit 2 the max z.
func (b Box) Corner(i int) mgl64.Vec3 {
	c := b.Min
	if i&1 != 0 {
		c[0] = b.Max[0]
	}
	if i&2 != 0 {
		c[1] = b.Max[1]
	}
	if i&4 != 0 {
		c[2] = b.Max[2]
	}
	return c
}

// ExpandPoint returns the box grown to include p.
func (b Box) ExpandPoint(p mgl64.Vec3) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// ExpandBox returns the box grown to include o. Invalid boxes are ignored.
func (b Box) ExpandBox(o Box) Box {
	if !o.Valid() {
		return b
	}
	return b.ExpandPoint(o.Min).ExpandPoint(o.Max)
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p mgl64.Vec3) bool {
	return b.Valid() &&
		p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Intersects reports whether the two boxes overlap.
func (b Box) Intersects(o Box) bool {
	if !b.Valid() || !o.Valid() {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Transformed returns the box enclosing the eight corners of b carried
// through m.
func (b Box) Transformed(m mgl64.Mat4) Box {
	if !b.Valid() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		out = out.ExpandPoint(mgl64.TransformCoordinate(b.Corner(i), m))
	}
	return out
}
