package network

import (
	"fmt"

	"nyiyui.ca/railopt"
)

// SeparationType selects how a breakable edge is subdivided by
// SeparateEdge. Uniform is the only strategy spec.md names.
type SeparationType int

const (
	Uniform SeparationType = iota
)

// Rewrite records that the edge at OldEdge (identified by the index it had
// before discretization) must be replaced, wherever it is referenced by a
// route or a station, with the ordered chain NewEdges.
type Rewrite struct {
	OldEdge  int
	NewEdges []int
}

// SeparateEdge replaces the edge u->v (and, if present, v->u) with a chain
// of k = floor(length/min_block_length) equal-length unbreakable edges
// through k-1 new NoBorderVSS vertices. The edge's own index is reused for
// the last segment of its chain, so callers that only rewrite "the old
// index becomes this ordered list" (routes, stations) get a slice that
// still resolves correctly. Returns the forward and reverse chains in
// order; each ends with the (mutated) original edge index.
func (n *Network) SeparateEdge(u, v int, sep SeparationType) (forward, reverse []int, err error) {
	const op = "network.SeparateEdge"
	fi, ferr := n.EdgeByEndpoints(u, v)
	if ferr != nil {
		return nil, nil, railopt.Wrap(railopt.NotFound, op, ferr)
	}
	fe := n.edges[fi]
	if !fe.Breakable {
		return nil, nil, railopt.Newf(railopt.InvalidInput, op, "edge %d is not breakable", fi)
	}
	if fe.MinBlockLength <= 0 {
		return nil, nil, railopt.Newf(railopt.InvalidInput, op, "edge %d has non-positive min_block_length", fi)
	}
	k := int(fe.Length / fe.MinBlockLength)
	if k < 2 {
		return nil, nil, railopt.Newf(railopt.Consistency, op, "edge %d too short to separate (k=%d)", fi, k)
	}
	segLen := fe.Length / float64(k)

	ri, hasReverse := n.byEndpoints[[2]int{v, u}]

	newVerts := make([]int, k-1)
	for i := 0; i < k-1; i++ {
		name := fmt.Sprintf("%s_%s_%d", n.vertices[u].Name, n.vertices[v].Name, i)
		vi, err := n.AddVertex(name, NoBorderVSS)
		if err != nil {
			return nil, nil, railopt.Wrap(railopt.Consistency, op, err)
		}
		newVerts[i] = vi
	}

	chain := make([]int, 0, k+1)
	chain = append(chain, u)
	chain = append(chain, newVerts...)
	chain = append(chain, v)

	forward = n.buildChain(chain, fi, segLen, fe.MaxSpeed)

	if hasReverse {
		revChain := make([]int, len(chain))
		for i, vtx := range chain {
			revChain[len(chain)-1-i] = vtx
		}
		re := n.edges[ri]
		reverse = n.buildChain(revChain, ri, segLen, re.MaxSpeed)
	}

	return forward, reverse, nil
}

// buildChain mutates the network so that oldEdge's endpoints span only the
// final segment of chain, allocates fresh edges for the earlier segments,
// re-links successors, and returns the ordered chain of edge indices.
func (n *Network) buildChain(chain []int, oldEdge int, segLen, maxSpeed float64) []int {
	k := len(chain) - 1
	newEdges := make([]int, k)
	for i := 0; i < k-1; i++ {
		ei, err := n.AddEdge(chain[i], chain[i+1], segLen, maxSpeed, false, 0)
		if err != nil {
			panic(fmt.Sprintf("buildChain: unreachable AddEdge failure: %s", err))
		}
		newEdges[i] = ei
	}
	// The old edge index becomes the last segment.
	n.edges[oldEdge].Source = chain[k-1]
	n.edges[oldEdge].Target = chain[k]
	n.edges[oldEdge].Length = segLen
	n.edges[oldEdge].Breakable = false
	n.edges[oldEdge].MinBlockLength = 0
	delete(n.byEndpoints, [2]int{chain[0], chain[k]})
	n.byEndpoints[[2]int{chain[k-1], chain[k]}] = oldEdge
	newEdges[k-1] = oldEdge

	// Predecessors of the old edge (arriving at chain[0]) must now target
	// the first new segment instead. k >= 2 is guaranteed by the caller,
	// so newEdges[0] is always a freshly allocated edge, never oldEdge.
	for e := range n.successors {
		for i, s := range n.successors[e] {
			if s == oldEdge {
				n.successors[e][i] = newEdges[0]
			}
		}
	}
	// Internal chain edges become each other's sole successor. oldEdge
	// keeps whatever successors it already had (edges reachable after v),
	// which remain correct since oldEdge is still the segment ending at v.
	for i := 0; i < k-1; i++ {
		n.successors[newEdges[i]] = []int{newEdges[i+1]}
	}
	return newEdges
}

// Discretize applies SeparateEdge to every breakable edge whose endpoints
// are not both VSS (a "non-TTD border"); TTD-bounded and NoBorder-bounded
// breakable edges are split, edges already pinned between two VSS points
// are left alone. Reverse edges are processed together with their forward
// counterpart via CombineReverseEdges so each physical edge is split once.
func (n *Network) Discretize(sep SeparationType) ([]Rewrite, error) {
	const op = "network.Discretize"
	var candidates []int
	for _, e := range n.edges {
		if !e.Breakable {
			continue
		}
		if n.vertices[e.Source].Kind == VSS && n.vertices[e.Target].Kind == VSS {
			continue
		}
		candidates = append(candidates, e.Index)
	}
	pairs := n.CombineReverseEdges(candidates, true)
	var rewrites []Rewrite
	for _, pair := range pairs {
		fi := pair[0]
		u, v := n.edges[fi].Source, n.edges[fi].Target
		forward, reverse, err := n.SeparateEdge(u, v, sep)
		if err != nil {
			return nil, railopt.Wrap(railopt.Consistency, op, err)
		}
		rewrites = append(rewrites, Rewrite{OldEdge: fi, NewEdges: forward})
		if pair[1] != -1 {
			rewrites = append(rewrites, Rewrite{OldEdge: pair[1], NewEdges: reverse})
		}
	}
	return rewrites, nil
}
