package network

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nyiyui.ca/railopt"
)

// vertexRef resolves either a vertex name or a stable index, as spec.md §6
// allows for edge endpoints.
type vertexRef struct {
	name string
}

func (r vertexRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.name)
}

func (r *vertexRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.name = s
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		r.name = strconv.Itoa(i)
		return nil
	}
	return fmt.Errorf("vertex ref must be a string or number: %s", data)
}

func (n *Network) resolveVertexRef(r vertexRef) (int, error) {
	if idx, err := n.VertexByName(r.name); err == nil {
		return idx, nil
	}
	if i, err := strconv.Atoi(r.name); err == nil && i >= 0 && i < len(n.vertices) {
		return i, nil
	}
	return 0, railopt.Newf(railopt.NotFound, "network.resolveVertexRef", "no vertex %q", r.name)
}

type vertexJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type edgeJSON struct {
	Source         vertexRef `json:"source"`
	Target         vertexRef `json:"target"`
	Length         float64   `json:"length"`
	MaxSpeed       float64   `json:"max_speed"`
	Breakable      bool      `json:"breakable"`
	MinBlockLength float64   `json:"min_block_length"`
}

// Export writes vertices.json, edges.json and successors.json into dir,
// creating it if necessary.
func (n *Network) Export(dir string) error {
	const op = "network.Export"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}

	vs := make([]vertexJSON, len(n.vertices))
	for i, v := range n.vertices {
		vs[i] = vertexJSON{Name: v.Name, Type: v.Kind.String()}
	}
	if err := writeJSON(filepath.Join(dir, "vertices.json"), vs); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}

	es := make([]edgeJSON, len(n.edges))
	for i, e := range n.edges {
		es[i] = edgeJSON{
			Source:         vertexRef{name: n.vertices[e.Source].Name},
			Target:         vertexRef{name: n.vertices[e.Target].Name},
			Length:         e.Length,
			MaxSpeed:       e.MaxSpeed,
			Breakable:      e.Breakable,
			MinBlockLength: e.MinBlockLength,
		}
	}
	if err := writeJSON(filepath.Join(dir, "edges.json"), es); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}

	succ := make(map[string][]int, len(n.successors))
	for e, ss := range n.successors {
		if len(ss) == 0 {
			continue
		}
		succ[strconv.Itoa(e)] = ss
	}
	if err := writeJSON(filepath.Join(dir, "successors.json"), succ); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Import reads vertices.json, edges.json and successors.json from dir and
// reconstructs a Network with identical indices to the one that produced
// them (assuming it was produced by Export, or hand-written in the same
// index order).
func Import(dir string) (*Network, error) {
	const op = "network.Import"
	n := New()

	var vs []vertexJSON
	if err := readJSON(filepath.Join(dir, "vertices.json"), &vs); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	for _, v := range vs {
		kind, err := ParseVertexKind(v.Type)
		if err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
		if _, err := n.AddVertex(v.Name, kind); err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
	}

	var es []edgeJSON
	if err := readJSON(filepath.Join(dir, "edges.json"), &es); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	for _, e := range es {
		src, err := n.resolveVertexRef(e.Source)
		if err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
		tgt, err := n.resolveVertexRef(e.Target)
		if err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
		if _, err := n.AddEdge(src, tgt, e.Length, e.MaxSpeed, e.Breakable, e.MinBlockLength); err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
	}

	succPath := filepath.Join(dir, "successors.json")
	if _, err := os.Stat(succPath); err == nil {
		var succ map[string][]int
		if err := readJSON(succPath, &succ); err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
		for key, list := range succ {
			e1, err := parseEdgeKey(n, key)
			if err != nil {
				return nil, railopt.Wrap(railopt.IoFailure, op, err)
			}
			for _, e2 := range list {
				if err := n.AddSuccessor(e1, e2); err != nil {
					return nil, railopt.Wrap(railopt.IoFailure, op, err)
				}
			}
		}
	}
	return n, nil
}

// parseEdgeKey accepts either a decimal edge index or a "src>tgt" pair of
// vertex names, matching spec.md §6's "endpoint-pair or index" allowance
// for successors.json keys.
func parseEdgeKey(n *Network, key string) (int, error) {
	if i, err := strconv.Atoi(key); err == nil {
		return i, nil
	}
	parts := strings.SplitN(key, ">", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid edge key %q", key)
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

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
