// Package pathcache persists AllEdgePairsShortestPaths results keyed by a
// content hash of the network that produced them, so repeated MIP builds
// against the same network (spec.md §4.9's edges_used_by_train reachability
// queries, §4.8's destination-penalty normaliser) don't re-run Floyd-Warshall
// every time.
package pathcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"nyiyui.ca/railopt/network"
)

// Hash returns a stable content hash of n's vertices, edges and successor
// relation. Two networks built with identical vertices, edges (in the same
// order) and successors hash identically regardless of how they were
// constructed.
func Hash(n *network.Network) string {
	h := sha256.New()
	for v := 0; v < n.NumVertices(); v++ {
		vertex := n.Vertex(v)
		fmt.Fprintf(h, "v:%s:%d\n", vertex.Name, vertex.Kind)
	}
	for e := 0; e < n.NumEdges(); e++ {
		edge := n.Edge(e)
		fmt.Fprintf(h, "e:%d:%d:%v:%v:%v:%v\n", edge.Source, edge.Target, edge.Length, edge.MaxSpeed, edge.Breakable, edge.MinBlockLength)
	}
	for e := 0; e < n.NumEdges(); e++ {
		succs := n.Successors(e)
		fmt.Fprintf(h, "s:%d:%s\n", e, formatInts(succs))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatInts(xs []int) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(x)
	}
	return out
}
