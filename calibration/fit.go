package calibration

import (
	"github.com/openacid/slimarray/polyfit"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/simulate"
)

// FitPositionRelation fits a quadratic time-to-cumulative-distance Relation
// over a simulated trajectory, one sample per recorded TrainState. Distance
// accumulates across edge boundaries using n's edge lengths, so the fit
// reflects the train's progress along its whole route rather than resetting
// to zero at each edge.
func FitPositionRelation(n *network.Network, traj *simulate.TrainTrajectory) (Relation, error) {
	const op = "calibration.FitPositionRelation"
	var xs, ys []float64
	var base float64
	for _, et := range traj.Edges {
		for _, st := range et.States {
			xs = append(xs, float64(st.T))
			ys = append(ys, base+st.Position)
		}
		base += n.Edge(et.Edge).Length
	}
	if len(xs) < 3 {
		return Relation{}, railopt.Newf(railopt.Consistency, op, "need at least 3 samples to fit a quadratic relation, got %d", len(xs))
	}
	fit := polyfit.NewFit(xs, ys, 2)
	return Relation{Coeffs: fit.Solve()}, nil
}
