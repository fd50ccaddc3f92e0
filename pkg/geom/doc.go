// Package geom holds the bounding volumes, half-space planes and exact
// primitive tests used by intersection queries.
//
// All double precision math is done with mgl64 in column-vector convention:
// a point p is carried into another frame with M.Mul4x1(p.Vec4(1)), and
// matrices compose right to left.
package geom
