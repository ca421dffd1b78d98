// Package station implements the StationList of spec.md §4.3: an
// append-only map from station name to a set of platform-track edges.
package station

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
)

// List is an append-only, name-indexed collection of stations. The zero
// value is not usable; construct one with New.
type List struct {
	names []string
	// tracks[name] holds the edge indices belonging to that station, in
	// the order they were added.
	tracks map[string][]int
	// ownedBy maps an edge index to the station it belongs to, enforcing
	// spec.md §3's "edges may appear in at most one station".
	ownedBy map[int]string
}

// New returns an empty List.
func New() *List {
	return &List{tracks: map[string][]int{}, ownedBy: map[int]string{}}
}

// AddStation registers name if it isn't already known. Idempotent.
func (l *List) AddStation(name string) {
	if _, ok := l.tracks[name]; ok {
		return
	}
	l.names = append(l.names, name)
	l.tracks[name] = nil
}

// AddTrackToStation verifies edge exists in n and belongs to no other
// station, registers the station if new, and appends edge to its track set.
func (l *List) AddTrackToStation(n *network.Network, name string, edge int) error {
	const op = "station.AddTrackToStation"
	if edge < 0 || edge >= n.NumEdges() {
		return railopt.Newf(railopt.NotFound, op, "edge index %d out of range", edge)
	}
	if owner, ok := l.ownedBy[edge]; ok && owner != name {
		return railopt.Newf(railopt.Duplicate, op, "edge %d already belongs to station %q", edge, owner)
	}
	l.AddStation(name)
	l.tracks[name] = append(l.tracks[name], edge)
	l.ownedBy[edge] = name
	return nil
}

// Tracks returns the edge indices belonging to name, in insertion order.
func (l *List) Tracks(name string) ([]int, error) {
	tracks, ok := l.tracks[name]
	if !ok {
		return nil, railopt.Newf(railopt.NotFound, "station.Tracks", "no station named %q", name)
	}
	return tracks, nil
}

// StationOf returns the name of the station owning edge, if any.
func (l *List) StationOf(edge int) (string, bool) {
	name, ok := l.ownedBy[edge]
	return name, ok
}

// Names returns the station names in insertion order.
func (l *List) Names() []string { return l.names }

// Has reports whether name is a known station.
func (l *List) Has(name string) bool {
	_, ok := l.tracks[name]
	return ok
}

// UpdateAfterDiscretization applies rewrites (from network.Discretize) to
// every station's track set: any entry equal to a Rewrite's OldEdge is
// replaced, in place, by its ordered NewEdges chain.
func (l *List) UpdateAfterDiscretization(rewrites []network.Rewrite) {
	byOld := make(map[int][]int, len(rewrites))
	for _, r := range rewrites {
		byOld[r.OldEdge] = r.NewEdges
	}
	for name, edges := range l.tracks {
		var rewritten []int
		for _, e := range edges {
			if chain, ok := byOld[e]; ok {
				rewritten = append(rewritten, chain...)
				continue
			}
			rewritten = append(rewritten, e)
		}
		l.tracks[name] = rewritten
	}
	newOwnedBy := make(map[int]string, len(l.ownedBy))
	for e, name := range l.ownedBy {
		if chain, ok := byOld[e]; ok {
			for _, ne := range chain {
				newOwnedBy[ne] = name
			}
			continue
		}
		newOwnedBy[e] = name
	}
	l.ownedBy = newOwnedBy
}
