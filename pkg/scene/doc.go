// Package scene defines the hierarchy that intersection queries walk.
//
// A scene is a tree (or DAG) of Nodes. Each node carries a kind tag and a
// kind-specific payload (NodeData); leaves carry drawable Geometry. Nodes are
// treated as read-only once built, so any number of queries may walk the
// same scene concurrently.
package scene
