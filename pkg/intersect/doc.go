// Package intersect answers "what along this segment, ray or convex region
// touches the geometry in this scene?".
//
// A query is an Intersector (Segment, Ray, Polytope, or a Group of them)
// handed to a Visitor, which walks a scene.Node tree. The visitor keeps the
// window/projection/view/model matrix stacks, culls subtrees with the
// intersector's bound test, and clones the intersector into each new local
// frame. Every clone reports into the result set of the intersector the
// caller built, so results are read from that one value once Apply returns.
//
//	seg := intersect.NewSegment(intersect.FrameModel, start, end)
//	intersect.NewVisitor(seg).Apply(root)
//	if hit, ok := seg.FirstIntersection(); ok { ... }
//
// A Visitor and its intersector must be used from one goroutine. Separate
// queries may walk the same scene concurrently.
package intersect
