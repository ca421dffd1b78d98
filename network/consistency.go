package network

// IsConsistentForTransformation reports whether the network is in a state
// where SeparateEdge/Discretize can be safely applied:
//
//   - every NoBorderVSS vertex has exactly one in-edge and one out-edge in
//     each direction it participates in;
//   - every breakable edge satisfies its length bound and has a positive
//     min_block_length;
//   - for every reverse pair, both edges have identical length and
//     breakability.
func (n *Network) IsConsistentForTransformation() bool {
	for v, vertex := range n.vertices {
		if vertex.Kind != NoBorderVSS {
			continue
		}
		in := n.InEdges(v)
		out := n.OutEdges(v)
		// Each direction of travel through v contributes one in-edge and
		// one out-edge, and a chain interior joins at most two neighbours.
		if len(in) != len(out) || len(in) > 2 {
			return false
		}
		adjacent := map[int]bool{}
		for _, e := range in {
			adjacent[n.edges[e].Source] = true
		}
		for _, e := range out {
			adjacent[n.edges[e].Target] = true
		}
		if len(adjacent) > 2 {
			return false
		}
	}
	for _, e := range n.edges {
		if !e.Breakable {
			continue
		}
		if e.MinBlockLength <= 0 {
			return false
		}
		if e.Length < 2*e.MinBlockLength {
			return false
		}
	}
	for _, e := range n.edges {
		rev, ok := n.GetReverseEdgeIndex(e.Index)
		if !ok {
			continue
		}
		re := n.edges[rev]
		if re.Length != e.Length || re.Breakable != e.Breakable {
			return false
		}
	}
	return true
}
