package timetable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
)

// vertexRef resolves either a vertex name or a stable index, mirroring
// network.jsonio's vertexRef (each flat package here keeps its own small
// ref type rather than exporting one, matching the teacher's preference
// for self-contained packages).
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

func resolveVertexRef(n *network.Network, r vertexRef) (int, error) {
	if idx, err := n.VertexByName(r.name); err == nil {
		return idx, nil
	}
	if i, err := strconv.Atoi(r.name); err == nil && i >= 0 && i < n.NumVertices() {
		return i, nil
	}
	return 0, railopt.Newf(railopt.NotFound, "timetable.resolveVertexRef", "no vertex %q", r.name)
}

// flexWindow marshals a point window (A==B) as a bare number and a true
// window as a [2]float64 array, matching spec.md §6's "begin"/"end" stop
// fields (which carry either form depending on whether the stop is Fixed
// or General).
type flexWindow Window

func (w flexWindow) MarshalJSON() ([]byte, error) {
	if w.A == w.B {
		return json.Marshal(w.A)
	}
	return json.Marshal([2]float64{w.A, w.B})
}

func (w *flexWindow) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*w = flexWindow{A: scalar, B: scalar}
		return nil
	}
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err == nil {
		*w = flexWindow{A: pair[0], B: pair[1]}
		return nil
	}
	return fmt.Errorf("window must be a number or a 2-element array: %s", data)
}

type stopJSON struct {
	Begin           flexWindow `json:"begin"`
	End             flexWindow `json:"end"`
	MinStoppingTime *float64   `json:"min_stopping_time,omitempty"`
	Station         string     `json:"station"`
}

type scheduleJSON struct {
	T0      float64      `json:"t_0"`
	T0Range *[2]float64  `json:"t_0_range,omitempty"`
	V0      float64      `json:"v_0"`
	Entry   vertexRef    `json:"entry"`
	Tn      float64      `json:"t_n"`
	TnRange *[2]float64  `json:"t_n_range,omitempty"`
	Vn      float64      `json:"v_n"`
	Exit    vertexRef    `json:"exit"`
	Stops   []stopJSON   `json:"stops"`
}

// Export writes schedules.json into dir, per spec.md §6. t_0 is the entry
// window's lower bound and t_n the exit window's upper bound (matching
// TimeInterval's convention); the paired _range field is included only
// when the window is non-degenerate.
func (tt *Timetable) Export(dir string, net *network.Network) error {
	const op = "timetable.Export"
	out := make([]scheduleJSON, len(tt.schedules))
	for i, s := range tt.schedules {
		sj := scheduleJSON{
			T0:    s.EntryWindow.A,
			V0:    s.EntrySpeed,
			Entry: vertexRef{name: vertexName(net, s.EntryVertex)},
			Tn:    s.ExitWindow.B,
			Vn:    s.ExitSpeed,
			Exit:  vertexRef{name: vertexName(net, s.ExitVertex)},
		}
		if s.EntryWindow.A != s.EntryWindow.B {
			sj.T0Range = &[2]float64{s.EntryWindow.A, s.EntryWindow.B}
		}
		if s.ExitWindow.A != s.ExitWindow.B {
			sj.TnRange = &[2]float64{s.ExitWindow.A, s.ExitWindow.B}
		}
		sj.Stops = make([]stopJSON, len(s.Stops))
		for j, stop := range s.Stops {
			stj := stopJSON{
				Begin:   flexWindow(stop.Begin),
				End:     flexWindow(stop.End),
				Station: stop.Station,
			}
			if stop.Kind == General {
				tau := stop.Tau
				stj.MinStoppingTime = &tau
			}
			sj.Stops[j] = stj
		}
		out[i] = sj
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "schedules.json"), data, 0o644); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

func vertexName(net *network.Network, v int) string {
	return net.Vertex(v).Name
}

// Import reads schedules.json from dir, resolving entry/exit vertex refs
// against net, and appends one schedule per record onto an already
// populated Timetable (whose train catalogue must have a matching entry
// per index, e.g. built by importing trains.json first via traincat).
func (tt *Timetable) Import(dir string, net *network.Network) error {
	const op = "timetable.Import"
	data, err := os.ReadFile(filepath.Join(dir, "schedules.json"))
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	var raw []scheduleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	for _, sj := range raw {
		entry, err := resolveVertexRef(net, sj.Entry)
		if err != nil {
			return railopt.Wrap(railopt.IoFailure, op, err)
		}
		exit, err := resolveVertexRef(net, sj.Exit)
		if err != nil {
			return railopt.Wrap(railopt.IoFailure, op, err)
		}
		sched := Schedule{
			EntryVertex: entry,
			EntryWindow: windowFrom(sj.T0, sj.T0Range),
			EntrySpeed:  sj.V0,
			ExitVertex:  exit,
			ExitWindow:  windowFrom(sj.Tn, sj.TnRange),
			ExitSpeed:   sj.Vn,
		}
		for _, stj := range sj.Stops {
			var stop Stop
			if stj.MinStoppingTime != nil {
				stop, err = NewGeneralStop(stj.Station, Window(stj.Begin), Window(stj.End), *stj.MinStoppingTime)
			} else {
				stop, err = NewFixedStop(stj.Station, stj.Begin.A, stj.End.A)
			}
			if err != nil {
				return railopt.Wrap(railopt.IoFailure, op, err)
			}
			sched.Stops = append(sched.Stops, stop)
		}
		tt.schedules = append(tt.schedules, sched)
	}
	return nil
}

func windowFrom(point float64, rng *[2]float64) Window {
	if rng == nil {
		return Window{A: point, B: point}
	}
	return Window{A: rng[0], B: rng[1]}
}
