package scene

import "fmt"

// Graph is a scene: its root nodes plus lookup indexes over every
// registered node.
type Graph struct {
	Nodes     map[NodeID]*Node
	Roots     []*Node
	NameIndex map[string]NodeID
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode registers a node. It does not check for duplicates.
func (g *Graph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers n and its whole subtree, and makes n a root.
func (g *Graph) AddRoot(n *Node) {
	g.Roots = append(g.Roots, n)
	Walk(n, func(c *Node) bool {
		g.AddNode(c)
		return true
	})
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// Root returns the single root, wrapping several roots in a group.
func (g *Graph) Root() *Node {
	if len(g.Roots) == 1 {
		return g.Roots[0]
	}
	return NewGroup("", g.Roots...)
}

// Drawables returns every geometry node, in depth-first order.
func (g *Graph) Drawables() []*Node {
	var out []*Node
	for _, r := range g.Roots {
		Walk(r, func(n *Node) bool {
			if n.Kind == NodeGeometry {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

// Walk visits n and its descendants depth-first, each node once even when
// shared. Returning false from fn skips that node's children. Cycles are
// not followed.
func Walk(n *Node, fn func(*Node) bool) {
	seen := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
}
