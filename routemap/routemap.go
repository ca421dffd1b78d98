// Package routemap implements the RouteMap of spec.md §4.5: a per-train
// ordered sequence of edges constrained by the network's successor
// relation.
package routemap

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
)

// RouteMap holds, for each train index, an ordered edge sequence. Edge and
// train indices are weak references; the Network remains the sole owner of
// its vertices and edges (spec.md §3 "Ownership").
type RouteMap struct {
	net    *network.Network
	routes map[int][]int
}

// New returns an empty RouteMap over net.
func New(net *network.Network) *RouteMap {
	return &RouteMap{net: net, routes: map[int][]int{}}
}

// Route returns the edge sequence for train, or nil if it has none.
func (r *RouteMap) Route(train int) []int {
	return r.routes[train]
}

// PushBackEdge appends edge to train's route. If the route is non-empty,
// edge must be a valid successor of the route's current last edge.
func (r *RouteMap) PushBackEdge(train, edge int) error {
	const op = "routemap.PushBackEdge"
	if err := r.checkEdge(op, edge); err != nil {
		return err
	}
	route := r.routes[train]
	if len(route) > 0 {
		last := route[len(route)-1]
		if !r.net.IsValidSuccessor(last, edge) {
			return railopt.Newf(railopt.Consistency, op, "edge %d is not a valid successor of %d", edge, last)
		}
	}
	r.routes[train] = append(route, edge)
	return nil
}

// PushFrontEdge prepends edge to train's route. If the route is non-empty,
// the route's current first edge must be a valid successor of edge.
func (r *RouteMap) PushFrontEdge(train, edge int) error {
	const op = "routemap.PushFrontEdge"
	if err := r.checkEdge(op, edge); err != nil {
		return err
	}
	route := r.routes[train]
	if len(route) > 0 {
		first := route[0]
		if !r.net.IsValidSuccessor(edge, first) {
			return railopt.Newf(railopt.Consistency, op, "edge %d is not a valid successor of %d", first, edge)
		}
	}
	r.routes[train] = append([]int{edge}, route...)
	return nil
}

func (r *RouteMap) checkEdge(op string, edge int) error {
	if edge < 0 || edge >= r.net.NumEdges() {
		return railopt.Newf(railopt.NotFound, op, "edge index %d out of range", edge)
	}
	return nil
}

// EdgePos returns the cumulative [start, end) position, measured in
// edge-length units along the route, spanned by the occurrences of edges
// within train's route. For a single edge this is its own span; for a set
// it is (min start, max end) among matching occurrences.
func (r *RouteMap) EdgePos(train int, edges []int) (start, end float64, err error) {
	const op = "routemap.EdgePos"
	route := r.routes[train]
	want := make(map[int]bool, len(edges))
	for _, e := range edges {
		want[e] = true
	}
	found := false
	pos := 0.0
	for _, e := range route {
		length := r.net.Edge(e).Length
		if want[e] {
			if !found || pos < start {
				start = pos
			}
			if !found || pos+length > end {
				end = pos + length
			}
			found = true
		}
		pos += length
	}
	if !found {
		return 0, 0, railopt.Newf(railopt.NotFound, op, "no edge of %v found on train %d's route", edges, train)
	}
	return start, end, nil
}

// UpdateAfterDiscretization applies rewrites (from network.Discretize) to
// every train's route: any entry equal to a Rewrite's OldEdge is replaced,
// in place, by its ordered NewEdges chain.
func (r *RouteMap) UpdateAfterDiscretization(rewrites []network.Rewrite) {
	byOld := make(map[int][]int, len(rewrites))
	for _, rw := range rewrites {
		byOld[rw.OldEdge] = rw.NewEdges
	}
	for train, route := range r.routes {
		var rewritten []int
		for _, e := range route {
			if chain, ok := byOld[e]; ok {
				rewritten = append(rewritten, chain...)
				continue
			}
			rewritten = append(rewritten, e)
		}
		r.routes[train] = rewritten
	}
}

// Trains returns the train indices that have a non-empty route.
func (r *RouteMap) Trains() []int {
	out := make([]int, 0, len(r.routes))
	for train := range r.routes {
		out = append(out, train)
	}
	return out
}
