package mip

import (
	"fmt"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/pathcache"
)

// BuildVSSGeneration extends a moving-block model with the
// virtual-subsection-generation variables and constraints of spec.md
// §4.9: boundary position variables (b_pos), per-timestep boundary
// occupation flags (b_front, b_rear) and the entry/exit-position and
// section-length bookkeeping (e_lda, e_mu, len_in, len_out, x_in, x_out)
// needed to let a breakable edge's block boundaries move. No per-vertex
// x_v variables are created.
func BuildVSSGeneration(inst *instance.Instance, cfg config.Config, store *pathcache.Store, fixRoutes, relaxed bool) (*Model, error) {
	const op = "mip.BuildVSSGeneration"
	m, err := BuildMovingBlock(inst, cfg, store, fixRoutes, relaxed)
	if err != nil {
		return nil, err
	}
	paths, err := store.GetOrCompute(inst.Network)
	if err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}

	maxT := int(inst.Timetable.MaxT())
	for e := 0; e < inst.Network.NumEdges(); e++ {
		edge := inst.Network.Edge(e)
		if !edge.Breakable {
			continue
		}
		maxVSS := inst.Network.MaxVSSOnEdge(e)
		for k := 0; k < maxVSS; k++ {
			if err := m.AddVar(bPosKey(e, k), Variable{Kind: BPos, Lower: 0, Upper: edge.Length}); err != nil {
				return nil, railopt.Wrap(railopt.Consistency, op, err)
			}
			for t := 0; t <= maxT; t++ {
				if err := m.AddVar(bFrontKey(e, k, t), Variable{Kind: BFront, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
				if err := m.AddVar(bRearKey(e, k, t), Variable{Kind: BRear, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
			}
		}
	}

	n := inst.Timetable.Trains().Len()
	for tr := 0; tr < n; tr++ {
		edges, err := EdgesUsedByTrain(inst, tr, paths, fixRoutes, relaxed)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			edge := inst.Network.Edge(e)
			if err := m.AddVar(lenInKey(tr, e), Variable{Kind: LenIn, Lower: 0, Upper: edge.Length}); err != nil {
				return nil, railopt.Wrap(railopt.Consistency, op, err)
			}
			if err := m.AddVar(lenOutKey(tr, e), Variable{Kind: LenOut, Lower: 0, Upper: edge.Length}); err != nil {
				return nil, railopt.Wrap(railopt.Consistency, op, err)
			}
			for t := 0; t <= maxT; t++ {
				if err := m.AddVar(entryPosKey(tr, e, t), Variable{Kind: EntryPos, Lower: 0, Upper: edge.Length}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
				if err := m.AddVar(exitPosKey(tr, e, t), Variable{Kind: ExitPos, Lower: 0, Upper: edge.Length}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
				if err := m.AddVar(xInKey(tr, e, t), Variable{Kind: XIn, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
				if err := m.AddVar(xOutKey(tr, e, t), Variable{Kind: XOut, Binary: true, Lower: 0, Upper: 1}); err != nil {
					return nil, railopt.Wrap(railopt.Consistency, op, err)
				}
			}
		}
	}

	if err := addVSSSpacingConstraints(m, inst); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	if err := addVSSSectionLengthConstraints(m, inst, paths, fixRoutes, relaxed); err != nil {
		return nil, railopt.Wrap(railopt.Consistency, op, err)
	}
	return m, nil
}

func bPosKey(e, k int) string         { return fmt.Sprintf("b_pos[%d,%d]", e, k) }
func bFrontKey(e, k, t int) string    { return fmt.Sprintf("b_front[%d,%d,%d]", e, k, t) }
func bRearKey(e, k, t int) string     { return fmt.Sprintf("b_rear[%d,%d,%d]", e, k, t) }
func lenInKey(tr, e int) string       { return fmt.Sprintf("len_in[%d,%d]", tr, e) }
func lenOutKey(tr, e int) string      { return fmt.Sprintf("len_out[%d,%d]", tr, e) }
func entryPosKey(tr, e, t int) string { return fmt.Sprintf("e_lda[%d,%d,%d]", tr, e, t) }
func exitPosKey(tr, e, t int) string  { return fmt.Sprintf("e_mu[%d,%d,%d]", tr, e, t) }
func xInKey(tr, e, t int) string      { return fmt.Sprintf("x_in[%d,%d,%d]", tr, e, t) }
func xOutKey(tr, e, t int) string     { return fmt.Sprintf("x_out[%d,%d,%d]", tr, e, t) }

// addVSSSpacingConstraints enforces b_pos[e,k] <= b_pos[e,k+1] - min_block_length
// on each breakable edge, keeping consecutive boundaries a full block apart.
func addVSSSpacingConstraints(m *Model, inst *instance.Instance) error {
	for e := 0; e < inst.Network.NumEdges(); e++ {
		edge := inst.Network.Edge(e)
		if !edge.Breakable {
			continue
		}
		maxVSS := inst.Network.MaxVSSOnEdge(e)
		for k := 0; k < maxVSS-1; k++ {
			if err := m.AddConstraint(Constraint{
				Name: fmt.Sprintf("vss_spacing[%d,%d]", e, k),
				Terms: []Term{
					{Var: bPosKey(e, k), Coeff: 1},
					{Var: bPosKey(e, k+1), Coeff: -1},
				},
				Relation: LessEq,
				RHS:      -edge.MinBlockLength,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addVSSSectionLengthConstraints emits len_in[tr,e] + len_out[tr,e] =
// edge length, tying the two split lengths a train's occupied section
// contributes on entry and exit of a breakable edge.
func addVSSSectionLengthConstraints(m *Model, inst *instance.Instance, paths [][]float64, fixRoutes, relaxed bool) error {
	n := inst.Timetable.Trains().Len()
	for tr := 0; tr < n; tr++ {
		edges, err := EdgesUsedByTrain(inst, tr, paths, fixRoutes, relaxed)
		if err != nil {
			return err
		}
		for _, e := range edges {
			edge := inst.Network.Edge(e)
			if !edge.Breakable {
				continue
			}
			if err := m.AddConstraint(Constraint{
				Name: fmt.Sprintf("vss_section_length[%d,%d]", tr, e),
				Terms: []Term{
					{Var: lenInKey(tr, e), Coeff: 1},
					{Var: lenOutKey(tr, e), Coeff: 1},
				},
				Relation: Eq,
				RHS:      edge.Length,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
