package network

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildS1 constructs the 6-vertex, 11-edge graph spec.md §8 (scenario S1)
// describes, returning the network and the edge indices named in the
// scenario.
func buildS1(t *testing.T) (*Network, map[string]int) {
	t.Helper()
	n := New()
	names := map[string]int{}
	for _, name := range []string{"v1", "v2", "v3", "v4", "v5", "v6"} {
		vi, err := n.AddVertex(name, NoBorder)
		if err != nil {
			t.Fatalf("AddVertex(%s): %s", name, err)
		}
		names[name] = vi
	}
	edge := func(label string, src, tgt string, length float64) int {
		ei, err := n.AddEdge(names[src], names[tgt], length, 30, false, 0)
		if err != nil {
			t.Fatalf("AddEdge(%s): %s", label, err)
		}
		return ei
	}
	e := map[string]int{
		"v1v2": edge("v1v2", "v1", "v2", 100),
		"v2v3": edge("v2v3", "v2", "v3", 200),
		"v3v4": edge("v3v4", "v3", "v4", 300),
		"v4v5": edge("v4v5", "v4", "v5", 400),
		"v5v6": edge("v5v6", "v5", "v6", 600),
		"v4v1": edge("v4v1", "v4", "v1", 500),
		"v3v2": edge("v3v2", "v3", "v2", 200),
		"v6v1": edge("v6v1", "v6", "v1", 700),
		"v2v4": edge("v2v4", "v2", "v4", 800),
		"v5v3": edge("v5v3", "v5", "v3", 900),
		"v4v6": edge("v4v6", "v4", "v6", 1000),
	}
	if got, want := n.NumEdges(), 11; got != want {
		t.Fatalf("NumEdges() = %d, want %d", got, want)
	}
	must := func(e1, e2 int) {
		if err := n.AddSuccessor(e1, e2); err != nil {
			t.Fatalf("AddSuccessor(%d,%d): %s", e1, e2, err)
		}
	}
	must(e["v1v2"], e["v2v3"])
	must(e["v2v3"], e["v3v4"])
	must(e["v3v4"], e["v4v5"])
	must(e["v3v4"], e["v4v1"])
	must(e["v4v5"], e["v5v6"])
	must(e["v4v1"], e["v1v2"])
	return n, e
}

func TestAllEdgePairsShortestPathsS1(t *testing.T) {
	n, e := buildS1(t)
	d := n.AllEdgePairsShortestPaths()

	if got, want := d[e["v1v2"]][e["v5v6"]], 1500.0; got != want {
		t.Errorf("d[v1v2][v5v6] = %v, want %v", got, want)
	}
	if got, want := d[e["v3v4"]][e["v1v2"]], 600.0; got != want {
		t.Errorf("d[v3v4][v1v2] = %v, want %v", got, want)
	}
	if got := d[e["v5v6"]][e["v3v2"]]; got != Inf {
		t.Errorf("d[v5v6][v3v2] = %v, want Inf", got)
	}
	for _, ei := range e {
		if got := d[ei][ei]; got != 0 {
			t.Errorf("d[%d][%d] = %v, want 0", ei, ei, got)
		}
	}
}

// TestShortestPathsTriangle checks the Floyd-Warshall fixed point property
// of spec.md §8.6 over the S1 graph: d[a][c] <= d[a][b] + d[b][c] for any
// b on some path (using the second edge's length weighting, the triangle
// inequality holds directly on the computed matrix).
func TestShortestPathsTriangle(t *testing.T) {
	n, _ := buildS1(t)
	d := n.AllEdgePairsShortestPaths()
	m := n.NumEdges()
	for a := 0; a < m; a++ {
		for b := 0; b < m; b++ {
			if d[a][b] == Inf {
				continue
			}
			for c := 0; c < m; c++ {
				if d[b][c] == Inf {
					continue
				}
				if d[a][c] > d[a][b]+d[b][c]+1e-9 {
					t.Fatalf("triangle inequality violated: d[%d][%d]=%v > d[%d][%d]+d[%d][%d]=%v", a, c, d[a][c], a, b, b, c, d[a][b]+d[b][c])
				}
			}
		}
	}
}

// TestSeparateEdgeUniformS2 checks scenario S2: a breakable edge of length
// 44 with min_block_length 10 splits into 4 edges of length 11 through 3
// new NoBorderVSS vertices.
func TestSeparateEdgeUniformS2(t *testing.T) {
	n := New()
	v1, _ := n.AddVertex("v1", NoBorder)
	v2, _ := n.AddVertex("v2", NoBorder)
	before, _ := n.AddVertex("before", NoBorder)
	after, _ := n.AddVertex("after", NoBorder)
	ei, err := n.AddEdge(v1, v2, 44, 30, true, 10)
	if err != nil {
		t.Fatalf("AddEdge: %s", err)
	}
	preEdge, _ := n.AddEdge(before, v1, 50, 30, false, 0)
	postEdge, _ := n.AddEdge(v2, after, 50, 30, false, 0)
	if err := n.AddSuccessor(preEdge, ei); err != nil {
		t.Fatal(err)
	}
	if err := n.AddSuccessor(ei, postEdge); err != nil {
		t.Fatal(err)
	}

	forward, reverse, err := n.SeparateEdge(v1, v2, Uniform)
	if err != nil {
		t.Fatalf("SeparateEdge: %s", err)
	}
	if reverse != nil {
		t.Fatalf("reverse = %v, want nil (no reverse edge existed)", reverse)
	}
	if got, want := len(forward), 4; got != want {
		t.Fatalf("len(forward) = %d, want %d", got, want)
	}
	if forward[len(forward)-1] != ei {
		t.Fatalf("forward chain must end with the original edge index %d, got %v", ei, forward)
	}
	for _, fi := range forward {
		e := n.Edge(fi)
		if e.Length != 11 {
			t.Errorf("edge %d length = %v, want 11", fi, e.Length)
		}
		if e.Breakable {
			t.Errorf("edge %d still breakable", fi)
		}
	}
	wantNames := []string{"v1_v2_0", "v1_v2_1", "v1_v2_2"}
	for i, want := range wantNames {
		got := n.Vertex(n.Edge(forward[i]).Target).Name
		if got != want {
			t.Errorf("intermediate vertex %d name = %q, want %q", i, got, want)
		}
		if n.Vertex(n.Edge(forward[i]).Target).Kind != NoBorderVSS {
			t.Errorf("intermediate vertex %d kind = %v, want NoBorderVSS", i, n.Vertex(n.Edge(forward[i]).Target).Kind)
		}
	}
	if !n.IsValidSuccessor(preEdge, forward[0]) {
		t.Errorf("preEdge should now point to forward[0]")
	}
	if !n.IsValidSuccessor(forward[len(forward)-1], postEdge) {
		t.Errorf("last chain edge should still point to postEdge")
	}
	var total float64
	for _, fi := range forward {
		total += n.Edge(fi).Length
	}
	if total != 44 {
		t.Errorf("chain total length = %v, want 44", total)
	}
}

func TestSeparateEdgeWithReverse(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", NoBorder)
	b, _ := n.AddVertex("b", NoBorder)
	fwd, err := n.AddEdge(a, b, 30, 30, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := n.AddEdge(b, a, 30, 30, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	forward, reverse, err := n.SeparateEdge(a, b, Uniform)
	if err != nil {
		t.Fatalf("SeparateEdge: %s", err)
	}
	if len(forward) != 3 || len(reverse) != 3 {
		t.Fatalf("len(forward)=%d len(reverse)=%d, want 3 and 3", len(forward), len(reverse))
	}
	if forward[len(forward)-1] != fwd {
		t.Errorf("forward chain should end with original forward edge %d, got %v", fwd, forward)
	}
	if reverse[len(reverse)-1] != rev {
		t.Errorf("reverse chain should end with original reverse edge %d, got %v", rev, reverse)
	}
	if !n.IsConsistentForTransformation() {
		t.Errorf("expected network to remain consistent for transformation after separation")
	}
	for i := 0; i < len(forward); i++ {
		revCounterpart, ok := n.GetReverseEdgeIndex(forward[i])
		if !ok {
			t.Fatalf("forward chain edge %d has no reverse", forward[i])
		}
		want := reverse[len(reverse)-1-i]
		if revCounterpart != want {
			t.Errorf("reverse pairing mismatch at %d: got %d want %d", i, revCounterpart, want)
		}
	}
}

func TestUnbreakableSectionsPartition(t *testing.T) {
	n, e := buildS1(t)
	sections := n.UnbreakableSections()
	seen := map[int]bool{}
	for _, sec := range sections {
		for _, ei := range sec {
			if seen[ei] {
				t.Fatalf("edge %d appears in more than one section", ei)
			}
			seen[ei] = true
		}
	}
	if len(seen) != n.NumEdges() {
		t.Fatalf("sections cover %d edges, want %d", len(seen), n.NumEdges())
	}
	_ = e
}

func TestNoBorderVSSSectionsAfterDiscretize(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", TTD)
	b, _ := n.AddVertex("b", TTD)
	_, err := n.AddEdge(a, b, 30, 30, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	rewrites, err := n.Discretize(Uniform)
	if err != nil {
		t.Fatalf("Discretize: %s", err)
	}
	if len(rewrites) != 1 {
		t.Fatalf("len(rewrites) = %d, want 1", len(rewrites))
	}
	sections := n.NoBorderVSSSections()
	if len(sections) != 1 {
		t.Fatalf("len(sections) = %d, want 1 (the whole discretized chain)", len(sections))
	}
	if len(sections[0]) != 3 {
		t.Fatalf("len(sections[0]) = %d, want 3", len(sections[0]))
	}
}

func TestReverseEdgeSymmetry(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", NoBorder)
	b, _ := n.AddVertex("b", NoBorder)
	fwd, err := n.AddEdge(a, b, 50, 20, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := n.AddEdge(b, a, 50, 20, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := n.GetReverseEdgeIndex(fwd)
	if !ok || got != rev {
		t.Fatalf("GetReverseEdgeIndex(fwd) = (%d,%v), want (%d,true)", got, ok, rev)
	}
	back, ok := n.GetReverseEdgeIndex(rev)
	if !ok || back != fwd {
		t.Fatalf("GetReverseEdgeIndex(rev) = (%d,%v), want (%d,true)", back, ok, fwd)
	}
}

func TestAddEdgeRejectsMismatchedReverse(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", NoBorder)
	b, _ := n.AddVertex("b", NoBorder)
	if _, err := n.AddEdge(a, b, 50, 20, true, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := n.AddEdge(b, a, 40, 20, true, 10); err == nil {
		t.Fatalf("expected InvalidInput for mismatched reverse edge length")
	}
}

func TestAddEdgeRejectsBadBreakable(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", NoBorder)
	b, _ := n.AddVertex("b", NoBorder)
	if _, err := n.AddEdge(a, b, 15, 20, true, 10); err == nil {
		t.Fatalf("expected InvalidInput: 15 < 2*10")
	}
}

func TestRoundTripIO(t *testing.T) {
	n, _ := buildS1(t)
	dir := t.TempDir()
	if err := n.Export(dir); err != nil {
		t.Fatalf("Export: %s", err)
	}
	got, err := Import(dir)
	if err != nil {
		t.Fatalf("Import: %s", err)
	}
	if diff := cmp.Diff(n.vertices, got.vertices); diff != "" {
		t.Errorf("vertices diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(n.edges, got.edges); diff != "" {
		t.Errorf("edges diff (-want +got):\n%s", diff)
	}
	for e := range n.successors {
		wantList := append([]int(nil), n.successors[e]...)
		gotList := append([]int(nil), got.successors[e]...)
		if diff := cmp.Diff(wantList, gotList); diff != "" {
			t.Errorf("successors[%d] diff (-want +got):\n%s", e, diff)
		}
	}
}

func TestMaxVSSOnEdge(t *testing.T) {
	n := New()
	a, _ := n.AddVertex("a", NoBorder)
	b, _ := n.AddVertex("b", NoBorder)
	breakable, err := n.AddEdge(a, b, 44, 30, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n.MaxVSSOnEdge(breakable), 3; got != want {
		t.Errorf("MaxVSSOnEdge = %d, want %d", got, want)
	}
	c, _ := n.AddVertex("c", NoBorder)
	notBreakable, _ := n.AddEdge(b, c, 44, 30, false, 0)
	if got, want := n.MaxVSSOnEdge(notBreakable), 0; got != want {
		t.Errorf("MaxVSSOnEdge(non-breakable) = %d, want %d", got, want)
	}
}

func TestSuccessorEndpoints(t *testing.T) {
	n, e := buildS1(t)
	for e1 := 0; e1 < n.NumEdges(); e1++ {
		for _, e2 := range n.Successors(e1) {
			if n.Edge(e1).Target != n.Edge(e2).Source {
				t.Errorf("successor pair (%d,%d) breaks target/source invariant", e1, e2)
			}
		}
	}
	_ = e
}

func TestInfIsLargerThanAnyRealDistance(t *testing.T) {
	if Inf < 1e300 {
		t.Fatalf("Inf sentinel too small: %v", Inf)
	}
}
