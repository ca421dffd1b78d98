package mip

import (
	"fmt"

	"golang.org/x/exp/slices"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/pathcache"
)

// BuildMovingBlock constructs the moving-block formulation of spec.md
// §4.9: per-train edge-usage and velocity-extension variables, pairwise
// ordering variables, arrival/departure time variables and stop
// assignment variables, plus the edge-aggregation, entry/exit and
// interior-vertex flow-conservation constraints. fixRoutes/relaxed are
// forwarded to EdgesUsedByTrain to pick each train's candidate edge set.
// store supplies the network's shortest-path matrix once for every
// train's reachability query instead of each one recomputing it.
func BuildMovingBlock(inst *instance.Instance, cfg config.Config, store *pathcache.Store, fixRoutes, relaxed bool) (*Model, error) {
	const op = "mip.BuildMovingBlock"
	m := NewModel()
	n := inst.Timetable.Trains().Len()

	paths, err := store.GetOrCompute(inst.Network)
	if err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}

	trainEdges := make(map[int][]int, n)
	trainVelocities := make(map[int][]float64, n)
	for tr := 0; tr < n; tr++ {
		edges, err := EdgesUsedByTrain(inst, tr, paths, fixRoutes, relaxed)
		if err != nil {
			return nil, err
		}
		trainEdges[tr] = edges
		train := inst.Timetable.Trains().Train(tr)
		trainVelocities[tr] = VelocityExtensions(None, train.MaxSpeed, train.Acceleration, train.MaxSpeed, train.MaxSpeed, cfg.VelocityStep)
	}

	if err := addEdgeVars(m, inst, trainEdges, trainVelocities); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addTimeVars(m, inst, trainEdges); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addStopVars(m, inst, trainEdges); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addOrderVars(m, inst, trainEdges); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addTTDVars(m, inst, trainEdges); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addEdgeAggregationConstraints(m, inst, trainEdges, trainVelocities); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addVertexConstraints(m, inst, trainEdges, trainVelocities); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addObjective(m, inst, trainEdges); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	return m, nil
}

func xKey(tr, e int) string { return fmt.Sprintf("x[%d,%d]", tr, e) }
func yKey(tr, e int, vi, vj float64) string {
	return fmt.Sprintf("y[%d,%d,%v,%v]", tr, e, vi, vj)
}
func tFrontArrivalKey(tr, e int) string   { return fmt.Sprintf("t_front_arrival[%d,%d]", tr, e) }
func tFrontDepartureKey(tr, e int) string { return fmt.Sprintf("t_front_departure[%d,%d]", tr, e) }
func tRearDepartureKey(tr, e int) string  { return fmt.Sprintf("t_rear_departure[%d,%d]", tr, e) }
func stopKey(tr, stopIdx, vertex int) string {
	return fmt.Sprintf("stop[%d,%d,%d]", tr, stopIdx, vertex)
}
func orderKey(tr1, tr2, e int) string { return fmt.Sprintf("order[%d,%d,%d]", tr1, tr2, e) }
func tTTDDepartureKey(tr, ttd int) string {
	return fmt.Sprintf("t_ttd_departure[%d,%d]", tr, ttd)
}
func xTTDKey(tr, ttd int) string { return fmt.Sprintf("x_ttd[%d,%d]", tr, ttd) }
func orderTTDKey(tr1, tr2, ttd int) string {
	return fmt.Sprintf("order_ttd[%d,%d,%d]", tr1, tr2, ttd)
}

func addEdgeVars(m *Model, inst *instance.Instance, trainEdges map[int][]int, trainVelocities map[int][]float64) error {
	for tr, edges := range trainEdges {
		for _, e := range edges {
			if err := m.AddVar(xKey(tr, e), Variable{Kind: EdgeUsed, Binary: true, Lower: 0, Upper: 1}); err != nil {
				return err
			}
			velocities := trainVelocities[tr]
			for _, vi := range velocities {
				for _, vj := range velocities {
					train := inst.Timetable.Trains().Train(tr)
					if !PossibleByEOM(vi, vj, train.Acceleration, train.Deceleration, inst.Network.Edge(e).Length) {
						continue
					}
					if err := m.AddVar(yKey(tr, e, vi, vj), Variable{Kind: VelocityExt, Binary: true, Lower: 0, Upper: 1}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func addTimeVars(m *Model, inst *instance.Instance, trainEdges map[int][]int) error {
	maxT := inst.Timetable.MaxT()
	for tr, edges := range trainEdges {
		for _, e := range edges {
			for _, kv := range []struct {
				key  string
				kind VarKind
			}{
				{tFrontArrivalKey(tr, e), TFrontArrival},
				{tFrontDepartureKey(tr, e), TFrontDeparture},
				{tRearDepartureKey(tr, e), TRearDeparture},
			} {
				if err := m.AddVar(kv.key, Variable{Kind: kv.kind, Lower: 0, Upper: maxT}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func addStopVars(m *Model, inst *instance.Instance, trainEdges map[int][]int) error {
	for tr := range trainEdges {
		sched, err := inst.Timetable.Schedule(tr)
		if err != nil {
			return err
		}
		for stopIdx := range sched.Stops {
			for _, e := range trainEdges[tr] {
				v := inst.Network.Edge(e).Target
				key := stopKey(tr, stopIdx, v)
				if _, exists := m.Vars[key]; exists {
					continue
				}
				if err := m.AddVar(key, Variable{Kind: Stop, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func addOrderVars(m *Model, inst *instance.Instance, trainEdges map[int][]int) error {
	for tr1, edges1 := range trainEdges {
		shared := make(map[int]bool, len(edges1))
		for _, e := range edges1 {
			shared[e] = true
		}
		for tr2, edges2 := range trainEdges {
			if tr2 <= tr1 {
				continue
			}
			for _, e := range edges2 {
				if !shared[e] {
					continue
				}
				if err := m.AddVar(orderKey(tr1, tr2, e), Variable{Kind: Order, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addTTDVars registers the unbreakable-section ("train-detection section",
// TTD) variables of spec.md §4.9: a continuous t_ttd_departure[tr,ttd] and
// binary x_ttd[tr,ttd] for every train that uses at least one edge of
// section ttd, plus a binary order_ttd[tr1,tr2,ttd] for every unordered
// pair of trains sharing it. Sections come from
// inst.Network.UnbreakableSections, which partitions edges the same way
// network.UnbreakableSections groups them for discretization. No ordering
// constraints are emitted over these variables — the relative-order
// semantics are left to a solver-side formulation, same as upstream.
func addTTDVars(m *Model, inst *instance.Instance, trainEdges map[int][]int) error {
	maxT := inst.Timetable.MaxT()
	sections := inst.Network.UnbreakableSections()
	for ttd, section := range sections {
		sectionEdges := make(map[int]bool, len(section))
		for _, e := range section {
			sectionEdges[e] = true
		}

		var trainsHere []int
		for tr, edges := range trainEdges {
			used := false
			for _, e := range edges {
				if sectionEdges[e] {
					used = true
					break
				}
			}
			if !used {
				continue
			}
			trainsHere = append(trainsHere, tr)
			if err := m.AddVar(tTTDDepartureKey(tr, ttd), Variable{Kind: TTTDDeparture, Lower: 0, Upper: maxT}); err != nil {
				return err
			}
			if err := m.AddVar(xTTDKey(tr, ttd), Variable{Kind: XTTD, Binary: true, Lower: 0, Upper: 1}); err != nil {
				return err
			}
		}

		slices.Sort(trainsHere)
		for i, tr1 := range trainsHere {
			for _, tr2 := range trainsHere[i+1:] {
				if err := m.AddVar(orderTTDKey(tr1, tr2, ttd), Variable{Kind: OrderTTD, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addEdgeAggregationConstraints emits x[tr,e] = Σ_{i,j feasible} y[tr,e,i,j]
// for every train/edge pair with at least one feasible velocity pairing.
func addEdgeAggregationConstraints(m *Model, inst *instance.Instance, trainEdges map[int][]int, trainVelocities map[int][]float64) error {
	for tr, edges := range trainEdges {
		train := inst.Timetable.Trains().Train(tr)
		velocities := trainVelocities[tr]
		for _, e := range edges {
			var terms []Term
			for _, vi := range velocities {
				for _, vj := range velocities {
					if !PossibleByEOM(vi, vj, train.Acceleration, train.Deceleration, inst.Network.Edge(e).Length) {
						continue
					}
					terms = append(terms, Term{Var: yKey(tr, e, vi, vj), Coeff: 1})
				}
			}
			if len(terms) == 0 {
				continue
			}
			terms = append(terms, Term{Var: xKey(tr, e), Coeff: -1})
			if err := m.AddConstraint(Constraint{
				Name:     fmt.Sprintf("edge_aggregation[%d,%d]", tr, e),
				Terms:    terms,
				Relation: Eq,
				RHS:      0,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addVertexConstraints emits the entry/exit equalities and interior-vertex
// degree/flow-conservation inequalities of spec.md §4.9.
func addVertexConstraints(m *Model, inst *instance.Instance, trainEdges map[int][]int, trainVelocities map[int][]float64) error {
	for tr, edges := range trainEdges {
		sched, err := inst.Timetable.Schedule(tr)
		if err != nil {
			return err
		}
		edgeSet := make(map[int]bool, len(edges))
		for _, e := range edges {
			edgeSet[e] = true
		}

		entryTerms := edgeTermsAt(inst.Network.OutEdges(sched.EntryVertex), edgeSet, tr)
		if len(entryTerms) > 0 {
			if err := m.AddConstraint(Constraint{Name: fmt.Sprintf("entry[%d]", tr), Terms: entryTerms, Relation: Eq, RHS: 1}); err != nil {
				return err
			}
		}
		exitTerms := edgeTermsAt(inst.Network.InEdges(sched.ExitVertex), edgeSet, tr)
		if len(exitTerms) > 0 {
			if err := m.AddConstraint(Constraint{Name: fmt.Sprintf("exit[%d]", tr), Terms: exitTerms, Relation: Eq, RHS: 1}); err != nil {
				return err
			}
		}

		interior := make(map[int]bool)
		for _, e := range edges {
			interior[inst.Network.Edge(e).Source] = true
			interior[inst.Network.Edge(e).Target] = true
		}
		delete(interior, sched.EntryVertex)
		delete(interior, sched.ExitVertex)
		for v := range interior {
			inTerms := edgeTermsAt(inst.Network.InEdges(v), edgeSet, tr)
			if len(inTerms) > 0 {
				if err := m.AddConstraint(Constraint{Name: fmt.Sprintf("interior_in[%d,%d]", tr, v), Terms: inTerms, Relation: LessEq, RHS: 1}); err != nil {
					return err
				}
			}
			outTerms := edgeTermsAt(inst.Network.OutEdges(v), edgeSet, tr)
			if len(outTerms) > 0 {
				if err := m.AddConstraint(Constraint{Name: fmt.Sprintf("interior_out[%d,%d]", tr, v), Terms: outTerms, Relation: LessEq, RHS: 1}); err != nil {
					return err
				}
			}
			if err := addFlowConservation(m, inst, tr, v, edgeSet, trainVelocities[tr]); err != nil {
				return err
			}
		}
	}
	return nil
}

func edgeTermsAt(candidates []int, edgeSet map[int]bool, tr int) []Term {
	var terms []Term
	for _, e := range candidates {
		if edgeSet[e] {
			terms = append(terms, Term{Var: xKey(tr, e), Coeff: 1})
		}
	}
	return terms
}

// addFlowConservation emits, for each velocity extension v_i at vertex v,
// Σ_{in edges, j feasible} y[·,j,i] = Σ_{out edges, j feasible} y[·,i,j].
func addFlowConservation(m *Model, inst *instance.Instance, tr, v int, edgeSet map[int]bool, velocities []float64) error {
	train := inst.Timetable.Trains().Train(tr)
	for _, vi := range velocities {
		var terms []Term
		for _, in := range inst.Network.InEdges(v) {
			if !edgeSet[in] {
				continue
			}
			for _, vj := range velocities {
				if !PossibleByEOM(vj, vi, train.Acceleration, train.Deceleration, inst.Network.Edge(in).Length) {
					continue
				}
				terms = append(terms, Term{Var: yKey(tr, in, vj, vi), Coeff: 1})
			}
		}
		for _, out := range inst.Network.OutEdges(v) {
			if !edgeSet[out] {
				continue
			}
			for _, vj := range velocities {
				if !PossibleByEOM(vi, vj, train.Acceleration, train.Deceleration, inst.Network.Edge(out).Length) {
					continue
				}
				terms = append(terms, Term{Var: yKey(tr, out, vi, vj), Coeff: -1})
			}
		}
		if len(terms) == 0 {
			continue
		}
		if err := m.AddConstraint(Constraint{
			Name:     fmt.Sprintf("flow_conservation[%d,%d,%v]", tr, v, vi),
			Terms:    terms,
			Relation: Eq,
			RHS:      0,
		}); err != nil {
			return err
		}
	}
	return nil
}

// addObjective adds t_rear_departure[tr,e] with coefficient 1 for every
// candidate edge e of every train that ends at the train's exit vertex.
// The constant earliest_exit_time(tr) offset is not subtracted: Model has
// no constant objective term.
func addObjective(m *Model, inst *instance.Instance, trainEdges map[int][]int) error {
	for tr, edges := range trainEdges {
		sched, err := inst.Timetable.Schedule(tr)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if inst.Network.Edge(e).Target != sched.ExitVertex {
				continue
			}
			key := tRearDepartureKey(tr, e)
			if _, ok := m.Vars[key]; !ok {
				continue
			}
			if err := m.AddObjectiveTerm(key, 1); err != nil {
				return err
			}
		}
	}
	return nil
}
