package network

import "golang.org/x/exp/slices"

// unionFind is a small disjoint-set structure used to build sections from
// the successor relation. It is not exported; sections() is the only
// caller.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// sections partitions every edge into a maximal connected component under
// the (undirected closure of the) successor relation, cutting the
// connection through a shared vertex whenever that vertex's kind is not
// in throughKinds. This single helper implements both
// UnbreakableSections (throughKinds = interior, i.e. everything but
// train-detection borders) and NoBorderVSSSections (throughKinds =
// {NoBorderVSS} only).
func (n *Network) sections(throughKinds map[VertexKind]bool) [][]int {
	uf := newUnionFind(len(n.edges))
	for e1, succs := range n.successors {
		for _, e2 := range succs {
			shared := n.edges[e1].Target
			if n.edges[e2].Source != shared {
				continue // AddSuccessor guarantees this can't happen, defensive only
			}
			if throughKinds[n.vertices[shared].Kind] {
				uf.union(e1, e2)
			}
		}
	}
	groups := map[int][]int{}
	for e := range n.edges {
		root := uf.find(e)
		groups[root] = append(groups[root], e)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		slices.Sort(g)
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b []int) bool { return a[0] < b[0] })
	return out
}

// UnbreakableSections returns the partition of every edge into maximal
// groups not crossing a train-detection border (TTD or VSS). Under
// fixed-block rules, exactly one train may occupy a section.
func (n *Network) UnbreakableSections() [][]int {
	return n.sections(map[VertexKind]bool{NoBorder: true, NoBorderVSS: true})
}

// NoBorderVSSSections returns the partition restricted to connections
// through NoBorderVSS vertices only, used to locate candidate spans for
// variable section separator placement.
func (n *Network) NoBorderVSSSections() [][]int {
	return n.sections(map[VertexKind]bool{NoBorderVSS: true})
}
