package mip

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
)

// EdgesUsedByTrain returns the candidate edge set variables should be
// created over for train, per spec.md §4.9: when fixRoutes is set, the
// train's already-assigned RouteMap route (or, if relaxed, the full
// forward/backward reachable set when no route is assigned); when unset,
// always the reachable set. This keeps variable count proportional to
// routable topology rather than the full graph product. paths is the
// network's all-edge-pairs shortest-path matrix (see pathcache), reused
// across every train instead of each train re-deriving reachability from
// scratch.
func EdgesUsedByTrain(inst *instance.Instance, train int, paths [][]float64, fixRoutes, relaxed bool) ([]int, error) {
	const op = "mip.EdgesUsedByTrain"
	if fixRoutes {
		route := inst.Routes.Route(train)
		if len(route) > 0 {
			out := make([]int, len(route))
			copy(out, route)
			return out, nil
		}
		if !relaxed {
			return nil, railopt.Newf(railopt.Consistency, op, "train %d has no fixed route and relaxed=false", train)
		}
	}
	sched, err := inst.Timetable.Schedule(train)
	if err != nil {
		return nil, railopt.Wrap(railopt.NotFound, op, err)
	}
	return reachableBetween(inst, paths, sched.EntryVertex, sched.ExitVertex), nil
}

// reachableBetween returns the edges reachable forward from entry's
// out-edges and backward from exit's in-edges, intersected — the edges
// any entry-to-exit path could possibly use. Reachability is read
// directly off the precomputed shortest-path matrix instead of
// re-walking the successor graph per query.
func reachableBetween(inst *instance.Instance, paths [][]float64, entry, exit int) []int {
	forward := forwardReachable(inst, paths, inst.Network.OutEdges(entry))
	backward := backwardReachable(inst, paths, inst.Network.InEdges(exit))

	var out []int
	for e := range forward {
		if backward[e] {
			out = append(out, e)
		}
	}
	return out
}

func forwardReachable(inst *instance.Instance, paths [][]float64, start []int) map[int]bool {
	seen := make(map[int]bool, len(start))
	for e := 0; e < inst.Network.NumEdges(); e++ {
		for _, s := range start {
			if paths[s][e] < network.Inf {
				seen[e] = true
				break
			}
		}
	}
	return seen
}

func backwardReachable(inst *instance.Instance, paths [][]float64, start []int) map[int]bool {
	seen := make(map[int]bool, len(start))
	for e := 0; e < inst.Network.NumEdges(); e++ {
		for _, s := range start {
			if paths[e][s] < network.Inf {
				seen[e] = true
				break
			}
		}
	}
	return seen
}
