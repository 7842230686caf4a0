package config

import "sort"

// Adjacency is a symmetric estate neighbor relation. Listing B under A makes
// A nearby B as well. The zero value knows no neighbors.
type Adjacency struct {
	near map[string]map[string]struct{}
}

func NewAdjacency(m map[string][]string) *Adjacency {
	a := &Adjacency{near: make(map[string]map[string]struct{})}
	for estate, list := range m {
		for _, other := range list {
			if other == "" || other == estate {
				continue
			}
			a.link(estate, other)
			a.link(other, estate)
		}
	}
	return a
}

func (a *Adjacency) link(x, y string) {
	set, ok := a.near[x]
	if !ok {
		set = make(map[string]struct{})
		a.near[x] = set
	}
	set[y] = struct{}{}
}

// Nearby reports whether two distinct estates are adjacent.
func (a *Adjacency) Nearby(x, y string) bool {
	if a == nil || x == y {
		return false
	}
	_, ok := a.near[x][y]
	return ok
}

// NearbyEstates returns the estates adjacent to estate, sorted.
func (a *Adjacency) NearbyEstates(estate string) []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.near[estate]))
	for e := range a.near[estate] {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
