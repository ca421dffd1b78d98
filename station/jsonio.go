package station

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/exp/slices"
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
)

// edgeRef resolves either an edge index or a "src>tgt" endpoint-name pair,
// matching spec.md §6's edge_ref convention.
type edgeRef struct {
	raw string
}

func (r edgeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

func (r *edgeRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.raw = s
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		r.raw = strconv.Itoa(i)
		return nil
	}
	return fmt.Errorf("edge ref must be a string or number: %s", data)
}

func resolveEdgeRef(n *network.Network, r edgeRef) (int, error) {
	if i, err := strconv.Atoi(r.raw); err == nil {
		if i >= 0 && i < n.NumEdges() {
			return i, nil
		}
		return 0, railopt.Newf(railopt.NotFound, "station.resolveEdgeRef", "edge index %d out of range", i)
	}
	parts := splitPair(r.raw)
	if parts == nil {
		return 0, railopt.Newf(railopt.InvalidInput, "station.resolveEdgeRef", "invalid edge ref %q", r.raw)
	}
	src, err := n.VertexByName(parts[0])
	if err != nil {
		return 0, err
	}
	tgt, err := n.VertexByName(parts[1])
	if err != nil {
		return 0, err
	}
	return n.EdgeByEndpoints(src, tgt)
}

func splitPair(s string) []string {
	for i := 0; i < len(s); i++ {
		if s[i] == '>' {
			return []string{s[:i], s[i+1:]}
		}
	}
	return nil
}

// Export writes stations.json into dir, per spec.md §6, using edge indices
// as the canonical edge_ref form.
func (l *List) Export(dir string) error {
	const op = "station.Export"
	out := make(map[string][]edgeRef, len(l.names))
	for _, name := range l.names {
		edges := l.tracks[name]
		refs := make([]edgeRef, len(edges))
		for i, e := range edges {
			refs[i] = edgeRef{raw: strconv.Itoa(e)}
		}
		out[name] = refs
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stations.json"), data, 0o644); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

// Import reads stations.json from dir, resolving each edge_ref against n.
func Import(dir string, n *network.Network) (*List, error) {
	const op = "station.Import"
	data, err := os.ReadFile(filepath.Join(dir, "stations.json"))
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	var raw map[string][]edgeRef
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	l := New()
	// Names arrive from a map, whose iteration order is unspecified; sort
	// them so Import is deterministic across runs.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, ref := range raw[name] {
			edge, err := resolveEdgeRef(n, ref)
			if err != nil {
				return nil, railopt.Wrap(railopt.IoFailure, op, err)
			}
			if err := l.AddTrackToStation(n, name, edge); err != nil {
				return nil, railopt.Wrap(railopt.IoFailure, op, err)
			}
		}
		l.AddStation(name)
	}
	return l, nil
}
