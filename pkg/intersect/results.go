package intersect

import (
	"slices"
	"sort"
)

type record interface {
	instanceKey() string
}

// ResultSet is an ordered multiset of hits that applies a Limit as hits are
// inserted. Records that compare equal keep their insertion order.
type ResultSet[T record] struct {
	items []T
	less  func(a, b T) bool
	limit Limit
}

func newResultSet[T record](limit Limit, less func(a, b T) bool) *ResultSet[T] {
	return &ResultSet[T]{less: less, limit: limit}
}

// Len returns the number of records.
func (rs *ResultSet[T]) Len() int {
	return len(rs.items)
}

// At returns record i in order.
func (rs *ResultSet[T]) At(i int) T {
	return rs.items[i]
}

// All returns the records in order. The slice must not be modified.
func (rs *ResultSet[T]) All() []T {
	return rs.items
}

// First returns the nearest record.
func (rs *ResultSet[T]) First() (T, bool) {
	if len(rs.items) == 0 {
		var zero T
		return zero, false
	}
	return rs.items[0], true
}

// Clear drops every record and keeps the storage.
func (rs *ResultSet[T]) Clear() {
	clear(rs.items)
	rs.items = rs.items[:0]
}

// Insert adds x subject to the limit policy.
func (rs *ResultSet[T]) Insert(x T) {
	switch rs.limit {
	case LimitOne, LimitNearest:
		if len(rs.items) > 0 {
			if rs.less(x, rs.items[0]) {
				rs.items[0] = x
			}
			return
		}
	case LimitOnePerDrawable:
		key := x.instanceKey()
		for i, it := range rs.items {
			if it.instanceKey() != key {
				continue
			}
			if !rs.less(x, it) {
				return
			}
			rs.items = slices.Delete(rs.items, i, i+1)
			break
		}
	}
	i := sort.Search(len(rs.items), func(i int) bool {
		return rs.less(x, rs.items[i])
	})
	rs.items = slices.Insert(rs.items, i, x)
}

func lessRatio(a, b Intersection) bool {
	return a.Ratio < b.Ratio
}

func lessDistance(a, b Intersection) bool {
	return a.Distance < b.Distance
}
