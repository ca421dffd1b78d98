package objective

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/simulate"
)

// DestinationPenalty divides, for each train, the remaining distance from
// its trajectory's final state to its scheduled exit vertex by the
// farthest any point in the network lies from that exit, then averages
// over trains. Per spec.md §9's open question (b), a train whose exit
// vertex is unreachable from its final position is a railopt.Consistency
// error rather than an undefined ratio — the same treatment applies if the
// exit vertex has zero reach (an isolated dead end normalises to a
// division by zero).
func DestinationPenalty(inst *instance.Instance, trajs map[int]*simulate.TrainTrajectory, paths [][]float64) (float64, error) {
	const op = "objective.DestinationPenalty"
	tt := inst.Timetable
	n := tt.Trains().Len()
	if n == 0 {
		return 0, nil
	}

	var total float64
	var count int
	for train := 0; train < n; train++ {
		traj := trajs[train]
		if traj == nil {
			continue
		}
		final, ok := traj.FinalState()
		if !ok {
			continue
		}
		sched, err := tt.Schedule(train)
		if err != nil {
			return 0, railopt.Wrap(railopt.NotFound, op, err)
		}

		dist, err := simulate.TrainVertexDistance(inst, paths, traj, final.T, sched.ExitVertex)
		if err != nil {
			return 0, railopt.Wrap(railopt.Consistency, op, err)
		}
		norm := maxDistanceFrom(inst.Network, paths, sched.ExitVertex)
		if norm <= 0 {
			return 0, railopt.Newf(railopt.Consistency, op, "exit vertex %d has zero reach, cannot normalise destination penalty", sched.ExitVertex)
		}
		total += dist / norm
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

// maxDistanceFrom returns the greatest shortest-path distance that any
// point in the network could be from v, measured via v's in-edges (the
// edges a train actually arrives on when reaching v) — mirroring
// simulate.TrainVertexDistance's own use of InEdges, just maximised
// instead of taken from one specific position. Terminal exit vertices
// (the common case: an exit has no out-edges) still have a well-defined,
// usually large, reach this way, unlike a normaliser built from out-edges
// which would degenerate to zero for every terminal.
func maxDistanceFrom(n *network.Network, paths [][]float64, v int) float64 {
	inEdges := n.InEdges(v)
	if len(inEdges) == 0 {
		return 0
	}
	var max float64
	for j := 0; j < n.NumEdges(); j++ {
		best := network.Inf
		for _, in := range inEdges {
			if paths[j][in] < best {
				best = paths[j][in]
			}
		}
		if best >= network.Inf {
			continue
		}
		// A train positioned at the very start of edge j (not yet past
		// it) is a full edge-length farther from v than paths[j][in]
		// alone accounts for, since paths measures end-of-edge to
		// end-of-edge.
		cand := best + n.Edge(j).Length
		if cand > max {
			max = cand
		}
	}
	return max
}
