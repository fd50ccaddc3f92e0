package intersect

import (
	"github.com/chazu/sightline/pkg/scene"
	"github.com/samber/lo"
)

// Group runs several intersectors in one traversal. Members whose bound test
// fails in a subtree are disabled there instead of being dropped.
type Group struct {
	base
	members []Intersector
	levels  [][]bool
}

// NewGroup returns a group of the given intersectors.
func NewGroup(members ...Intersector) *Group {
	return &Group{
		base:    base{frame: FrameModel},
		members: members,
	}
}

// Add appends an intersector to the group.
func (g *Group) Add(i Intersector) {
	g.members = append(g.members, i)
}

// Members returns the grouped intersectors.
func (g *Group) Members() []Intersector {
	return g.members
}

// Clone clones every enabled member.
func (g *Group) Clone(f *Frames) Intersector {
	enabled := lo.Filter(g.members, func(m Intersector, _ int) bool {
		return !m.Disabled()
	})
	return &Group{
		base: base{frame: g.frame, limit: g.limit, precision: g.precision},
		members: lo.Map(enabled, func(m Intersector, _ int) Intersector {
			return m.Clone(f)
		}),
	}
}

// Enter admits n if any enabled member does.
func (g *Group) Enter(n *scene.Node) bool {
	if g.Disabled() {
		return false
	}

	entered := make([]bool, len(g.members))
	entry := false
	for i, m := range g.members {
		switch {
		case m.Disabled():
			m.IncrementDisabledCount()
		case m.Enter(n):
			entered[i] = true
			entry = true
		default:
			m.IncrementDisabledCount()
		}
	}
	if !entry {
		for _, m := range g.members {
			m.DecrementDisabledCount()
		}
		return false
	}
	g.levels = append(g.levels, entered)
	return true
}

// Leave undoes Enter on the members that entered.
func (g *Group) Leave() {
	if len(g.levels) == 0 {
		return
	}
	entered := g.levels[len(g.levels)-1]
	g.levels = g.levels[:len(g.levels)-1]
	for i, m := range g.members {
		if entered[i] {
			m.Leave()
		} else {
			m.DecrementDisabledCount()
		}
	}
}

func (g *Group) Intersect(v *Visitor, drawable *scene.Node, geo *scene.Geometry) {
	for _, m := range g.members {
		if !m.Disabled() {
			m.Intersect(v, drawable, geo)
		}
	}
}

// Reset resets all members.
func (g *Group) Reset() {
	g.disabled = 0
	g.levels = g.levels[:0]
	for _, m := range g.members {
		m.Reset()
	}
}

// ContainsIntersections reports whether any member has a hit.
func (g *Group) ContainsIntersections() bool {
	return lo.SomeBy(g.members, func(m Intersector) bool {
		return m.ContainsIntersections()
	})
}

// ReachedLimit reports whether every enabled member has reached its limit.
func (g *Group) ReachedLimit() bool {
	if len(g.members) == 0 {
		return false
	}
	return lo.EveryBy(g.members, func(m Intersector) bool {
		return m.Disabled() || m.ReachedLimit()
	})
}
