package routemap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/exp/slices"
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/traincat"
)

// edgeRef resolves either an edge index or a "src>tgt" endpoint-name pair,
// matching spec.md §6's edge_ref convention (mirrors station's edgeRef).
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
		return 0, railopt.Newf(railopt.NotFound, "routemap.resolveEdgeRef", "edge index %d out of range", i)
	}
	for i := 0; i < len(r.raw); i++ {
		if r.raw[i] == '>' {
			src, err := n.VertexByName(r.raw[:i])
			if err != nil {
				return 0, err
			}
			tgt, err := n.VertexByName(r.raw[i+1:])
			if err != nil {
				return 0, err
			}
			return n.EdgeByEndpoints(src, tgt)
		}
	}
	return 0, railopt.Newf(railopt.InvalidInput, "routemap.resolveEdgeRef", "invalid edge ref %q", r.raw)
}

// Export writes routes.json into dir, per spec.md §6, keyed by train name.
func (r *RouteMap) Export(dir string, trains *traincat.Catalogue) error {
	const op = "routemap.Export"
	out := make(map[string][]edgeRef, len(r.routes))
	for train, route := range r.routes {
		refs := make([]edgeRef, len(route))
		for i, e := range route {
			refs[i] = edgeRef{raw: strconv.Itoa(e)}
		}
		out[trains.Train(train).Name] = refs
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "routes.json"), data, 0o644); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

// Import reads routes.json from dir, resolving train names against trains
// and edge refs against net.
func Import(dir string, net *network.Network, trains *traincat.Catalogue) (*RouteMap, error) {
	const op = "routemap.Import"
	data, err := os.ReadFile(filepath.Join(dir, "routes.json"))
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	var raw map[string][]edgeRef
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	r := New(net)
	for _, name := range names {
		train, err := trains.ByName(name)
		if err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
		for _, ref := range raw[name] {
			edge, err := resolveEdgeRef(net, ref)
			if err != nil {
				return nil, railopt.Wrap(railopt.IoFailure, op, err)
			}
			if err := r.PushBackEdge(train, edge); err != nil {
				return nil, railopt.Wrap(railopt.IoFailure, op, err)
			}
		}
	}
	return r, nil
}
