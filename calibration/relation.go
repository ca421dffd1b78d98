// Package calibration fits a quadratic time-to-position Relation from a
// recorded TrainTrajectory, estimating effective acceleration/deceleration
// as a diagnostic add-on outside the simulator's own kinematic model.
package calibration

import (
	"fmt"
	"math"
)

// Relation is a fitted polynomial y = f(x): Coeffs[0] + Coeffs[1]*x +
// Coeffs[2]*x^2 + ..., x measured in timesteps and y in cumulative
// distance travelled.
type Relation struct {
	Coeffs []float64
}

// Evaluate computes f(x).
func (r Relation) Evaluate(x float64) float64 {
	y := 0.0
	p := 1.0
	for _, c := range r.Coeffs {
		y += c * p
		p *= x
	}
	return y
}

// SolveForX inverts a linear or quadratic Relation, returning the root
// inside [min, max]. If both roots of a quadratic fall in range, the
// lower one is returned; this choice is arbitrary but deterministic.
func (r Relation) SolveForX(y, min, max float64) (x float64, ok bool) {
	switch len(r.Coeffs) {
	case 0:
		return 0, false
	case 1:
		return 0, false
	case 2:
		x := (y - r.Coeffs[0]) / r.Coeffs[1]
		return x, x >= min && x <= max
	case 3:
		a := r.Coeffs[2]
		b := r.Coeffs[1]
		c := r.Coeffs[0] - y
		disc := b*b - 4*a*c
		if disc < 0 {
			return 0, false
		}
		sq := math.Sqrt(disc)
		xa := (-b + sq) / (2 * a)
		xb := (-b - sq) / (2 * a)
		xaIn := xa >= min && xa <= max
		xbIn := xb >= min && xb <= max
		switch {
		case xaIn && !xbIn:
			return xa, true
		case !xaIn && xbIn:
			return xb, true
		case xaIn && xbIn:
			return math.Min(xa, xb), true
		default:
			return 0, false
		}
	default:
		panic(fmt.Sprintf("calibration: only linear and quadratic relations supported (%d coeffs given)", len(r.Coeffs)))
	}
}

// EstimatedAcceleration returns the instantaneous second derivative of a
// quadratic position relation — 2*Coeffs[2], the constant acceleration
// implied by a deg-2 fit — or 0 for a non-quadratic relation.
func (r Relation) EstimatedAcceleration() float64 {
	if len(r.Coeffs) != 3 {
		return 0
	}
	return 2 * r.Coeffs[2]
}
