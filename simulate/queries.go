package simulate

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
)

// GetState returns the trajectory's interpolated state at timestep t. Since
// every EdgeTrajectory already carries one state per integer timestep, this
// is a lookup rather than an interpolation; it returns railopt.NotFound if
// t falls outside the trajectory's recorded span.
func (traj *TrainTrajectory) GetState(t int) (TrainState, error) {
	const op = "simulate.TrainTrajectory.GetState"
	for _, et := range traj.Edges {
		for _, s := range et.States {
			if s.T == t {
				return s, nil
			}
		}
	}
	return TrainState{}, railopt.Newf(railopt.NotFound, op, "no recorded state at t=%d", t)
}

// FinalState returns the trajectory's last recorded state.
func (traj *TrainTrajectory) FinalState() (TrainState, bool) {
	if len(traj.Edges) == 0 {
		return TrainState{}, false
	}
	last := traj.Edges[len(traj.Edges)-1]
	if len(last.States) == 0 {
		return TrainState{}, false
	}
	return last.States[len(last.States)-1], true
}

// TrainDistance computes the along-route distance between two trajectories
// at timestep t, using inst's all-edge-pairs shortest path table. It
// returns railopt.NotFound if either trajectory has no state at t.
func TrainDistance(inst *instance.Instance, paths [][]float64, a, b *TrainTrajectory, t int) (float64, error) {
	const op = "simulate.TrainDistance"
	sa, err := a.GetState(t)
	if err != nil {
		return 0, railopt.Wrap(railopt.NotFound, op, err)
	}
	sb, err := b.GetState(t)
	if err != nil {
		return 0, railopt.Wrap(railopt.NotFound, op, err)
	}
	if sa.Edge == sb.Edge {
		return absFloat(sa.Position - sb.Position), nil
	}
	edgeLenA := inst.Network.Edge(sa.Edge).Length
	base := paths[sa.Edge][sb.Edge]
	if base >= network.Inf {
		return 0, railopt.Newf(railopt.Consistency, op, "no path between edge %d and edge %d", sa.Edge, sb.Edge)
	}
	// base runs to the end of sb.Edge; step back to its start.
	return (edgeLenA - sa.Position) + base - inst.Network.Edge(sb.Edge).Length + sb.Position, nil
}

// TrainVertexDistance computes the remaining along-route distance from
// trajectory's state at t to vertex v: the shortest, via the shortest path
// table, over every in-edge of v reachable from the train's current edge.
func TrainVertexDistance(inst *instance.Instance, paths [][]float64, traj *TrainTrajectory, t int, v int) (float64, error) {
	const op = "simulate.TrainVertexDistance"
	s, err := traj.GetState(t)
	if err != nil {
		return 0, railopt.Wrap(railopt.NotFound, op, err)
	}
	inEdges := inst.Network.InEdges(v)
	if len(inEdges) == 0 {
		return 0, railopt.Newf(railopt.Consistency, op, "vertex %d has no in-edges", v)
	}
	best := -1.0
	edgeLen := inst.Network.Edge(s.Edge).Length
	for _, in := range inEdges {
		var d float64
		if in == s.Edge {
			d = edgeLen - s.Position
		} else {
			base := paths[s.Edge][in]
			if base >= network.Inf {
				continue
			}
			d = (edgeLen - s.Position) + base
		}
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return 0, railopt.Newf(railopt.Consistency, op, "no path from edge %d to vertex %d", s.Edge, v)
	}
	return best, nil
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
