// Package network implements the track topology model of spec.md §4.1: a
// directed multigraph of vertices and edges with a successor relation
// encoding switch geometry, plus the analyses (sections, discretization,
// shortest paths) built on top of it.
package network

import (
	"fmt"

	"golang.org/x/exp/slices"
	"nyiyui.ca/railopt"
)

// VertexKind classifies a Vertex the way spec.md §3 does. TTD and VSS are
// train-detection borders; NoBorder and NoBorderVSS are interior.
type VertexKind int

const (
	NoBorder VertexKind = iota
	NoBorderVSS
	VSS
	TTD
)

func (k VertexKind) String() string {
	switch k {
	case NoBorder:
		return "NoBorder"
	case NoBorderVSS:
		return "NoBorderVSS"
	case VSS:
		return "VSS"
	case TTD:
		return "TTD"
	default:
		return fmt.Sprintf("VertexKind(%d)", int(k))
	}
}

// ParseVertexKind is the inverse of String, used by the JSON loader.
func ParseVertexKind(s string) (VertexKind, error) {
	switch s {
	case "NoBorder":
		return NoBorder, nil
	case "NoBorderVSS":
		return NoBorderVSS, nil
	case "VSS":
		return VSS, nil
	case "TTD":
		return TTD, nil
	default:
		return 0, railopt.Newf(railopt.InvalidInput, "network.ParseVertexKind", "unknown vertex kind %q", s)
	}
}

// isBorder reports whether k is a train-detection border (TTD or VSS).
func (k VertexKind) isBorder() bool { return k == TTD || k == VSS }

// Vertex is a stable-indexed, uniquely-named node in the track graph.
type Vertex struct {
	Index int
	Name  string
	Kind  VertexKind
}

// Edge is a directed, weighted arc between two vertices.
type Edge struct {
	Index          int
	Source         int
	Target         int
	Length         float64
	MaxSpeed       float64
	Breakable      bool
	MinBlockLength float64
}

// Network owns the vertex and edge slices; StationList, Timetable and
// RouteMap only ever hold weak (index) references into it (spec.md §3
// "Ownership").
type Network struct {
	vertices     []Vertex
	edges        []Edge
	vertexByName map[string]int
	// successors[e] holds, in insertion order, the indices of the edges
	// that may directly follow e.
	successors [][]int
	// byEndpoints maps (source,target) endpoint pairs to an edge index, used
	// both for duplicate-edge detection and GetReverseEdgeIndex.
	byEndpoints map[[2]int]int
}

// New returns an empty Network.
func New() *Network {
	return &Network{
		vertexByName: map[string]int{},
		byEndpoints:  map[[2]int]int{},
	}
}

// AddVertex appends a new vertex and returns its stable index. Fails with
// railopt.Duplicate if name is already used.
func (n *Network) AddVertex(name string, kind VertexKind) (int, error) {
	const op = "network.AddVertex"
	if _, ok := n.vertexByName[name]; ok {
		return 0, railopt.Newf(railopt.Duplicate, op, "vertex name %q already exists", name)
	}
	idx := len(n.vertices)
	n.vertices = append(n.vertices, Vertex{Index: idx, Name: name, Kind: kind})
	n.vertexByName[name] = idx
	return idx, nil
}

// AddEdge appends a new directed edge and returns its stable index.
func (n *Network) AddEdge(source, target int, length, maxSpeed float64, breakable bool, minBlockLength float64) (int, error) {
	const op = "network.AddEdge"
	if err := n.checkVertex(op, source); err != nil {
		return 0, err
	}
	if err := n.checkVertex(op, target); err != nil {
		return 0, err
	}
	if length <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "length must be positive, got %v", length)
	}
	if maxSpeed <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "max_speed must be positive, got %v", maxSpeed)
	}
	if minBlockLength < 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "min_block_length must be non-negative, got %v", minBlockLength)
	}
	if breakable && length < 2*minBlockLength {
		return 0, railopt.Newf(railopt.InvalidInput, op, "breakable edge length %v must be >= 2*min_block_length (%v)", length, minBlockLength)
	}
	if rev, ok := n.byEndpoints[[2]int{target, source}]; ok {
		revEdge := n.edges[rev]
		if revEdge.Length != length {
			return 0, railopt.Newf(railopt.InvalidInput, op, "reverse edge %d has length %v, want %v", rev, revEdge.Length, length)
		}
		if revEdge.Breakable != breakable {
			return 0, railopt.Newf(railopt.InvalidInput, op, "reverse edge %d has breakable=%v, want %v", rev, revEdge.Breakable, breakable)
		}
	}
	idx := len(n.edges)
	n.edges = append(n.edges, Edge{
		Index:          idx,
		Source:         source,
		Target:         target,
		Length:         length,
		MaxSpeed:       maxSpeed,
		Breakable:      breakable,
		MinBlockLength: minBlockLength,
	})
	n.successors = append(n.successors, nil)
	n.byEndpoints[[2]int{source, target}] = idx
	return idx, nil
}

// AddSuccessor asserts target(e1) == source(e2) and records e2 as
// reachable directly after e1. Idempotent.
func (n *Network) AddSuccessor(e1, e2 int) error {
	const op = "network.AddSuccessor"
	if err := n.checkEdge(op, e1); err != nil {
		return err
	}
	if err := n.checkEdge(op, e2); err != nil {
		return err
	}
	if n.edges[e1].Target != n.edges[e2].Source {
		return railopt.Newf(railopt.InvalidInput, op, "target(e%d)=%d != source(e%d)=%d", e1, n.edges[e1].Target, e2, n.edges[e2].Source)
	}
	if slices.Contains(n.successors[e1], e2) {
		return nil
	}
	n.successors[e1] = append(n.successors[e1], e2)
	return nil
}

// Successors returns the (read-only) list of edges that may directly
// follow e.
func (n *Network) Successors(e int) []int {
	return n.successors[e]
}

// IsValidSuccessor reports whether e2 is a recorded successor of e1.
func (n *Network) IsValidSuccessor(e1, e2 int) bool {
	return slices.Contains(n.successors[e1], e2)
}

func (n *Network) checkVertex(op string, v int) error {
	if v < 0 || v >= len(n.vertices) {
		return railopt.Newf(railopt.NotFound, op, "vertex index %d out of range", v)
	}
	return nil
}

func (n *Network) checkEdge(op string, e int) error {
	if e < 0 || e >= len(n.edges) {
		return railopt.Newf(railopt.NotFound, op, "edge index %d out of range", e)
	}
	return nil
}

// Vertex returns the vertex at index v.
func (n *Network) Vertex(v int) Vertex { return n.vertices[v] }

// Edge returns the edge at index e.
func (n *Network) Edge(e int) Edge { return n.edges[e] }

// NumVertices returns the number of vertices in the network.
func (n *Network) NumVertices() int { return len(n.vertices) }

// NumEdges returns the number of edges in the network.
func (n *Network) NumEdges() int { return len(n.edges) }

// VertexByName looks a vertex up by its unique name.
func (n *Network) VertexByName(name string) (int, error) {
	if idx, ok := n.vertexByName[name]; ok {
		return idx, nil
	}
	return 0, railopt.Newf(railopt.NotFound, "network.VertexByName", "no vertex named %q", name)
}

// EdgeByEndpoints looks an edge up by its (source, target) pair.
func (n *Network) EdgeByEndpoints(source, target int) (int, error) {
	if idx, ok := n.byEndpoints[[2]int{source, target}]; ok {
		return idx, nil
	}
	return 0, railopt.Newf(railopt.NotFound, "network.EdgeByEndpoints", "no edge %d->%d", source, target)
}

// InEdges returns the indices of all edges whose target is v.
func (n *Network) InEdges(v int) []int {
	var out []int
	for _, e := range n.edges {
		if e.Target == v {
			out = append(out, e.Index)
		}
	}
	return out
}

// OutEdges returns the indices of all edges whose source is v.
func (n *Network) OutEdges(v int) []int {
	var out []int
	for _, e := range n.edges {
		if e.Source == v {
			out = append(out, e.Index)
		}
	}
	return out
}

// Neighbors returns the set of vertices directly reachable from v via one
// out-edge.
func (n *Network) Neighbors(v int) []int {
	var out []int
	for _, e := range n.OutEdges(v) {
		t := n.edges[e].Target
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// GetReverseEdgeIndex returns the index of the edge with swapped endpoints,
// if one exists.
func (n *Network) GetReverseEdgeIndex(e int) (int, bool) {
	edge := n.edges[e]
	idx, ok := n.byEndpoints[[2]int{edge.Target, edge.Source}]
	return idx, ok
}

// CombineReverseEdges groups edges into unordered (min, max) pairs sharing
// a reverse relationship, or (e, -1) when no reverse exists. With sort
// true, the result is ordered by the first element.
func (n *Network) CombineReverseEdges(edges []int, sort bool) [][2]int {
	seen := map[int]bool{}
	var out [][2]int
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		rev, ok := n.GetReverseEdgeIndex(e)
		if !ok || !slices.Contains(edges, rev) {
			out = append(out, [2]int{e, -1})
			continue
		}
		seen[rev] = true
		lo, hi := e, rev
		if lo > hi {
			lo, hi = hi, lo
		}
		out = append(out, [2]int{lo, hi})
	}
	if sort {
		slices.SortFunc(out, func(a, b [2]int) bool { return a[0] < b[0] })
	}
	return out
}

// MaxVSSOnEdge returns floor(length/min_block_length) - 1 when e is
// breakable, else 0.
func (n *Network) MaxVSSOnEdge(e int) int {
	edge := n.edges[e]
	if !edge.Breakable || edge.MinBlockLength <= 0 {
		return 0
	}
	return int(edge.Length/edge.MinBlockLength) - 1
}
