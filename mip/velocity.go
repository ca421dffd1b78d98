// Package mip implements the MIP model builder of spec.md §4.9: it
// constructs the variables and constraints of the moving-block and
// VSS-generation formulations without solving them — solving is an
// external collaborator's job.
package mip

import "math"

// VelocityStrategy selects how per-vertex velocity extensions (the
// discrete speed values a train may hold as it passes a vertex) are
// computed.
type VelocityStrategy int

const (
	// None enumerates {0, Δ, 2Δ, ..., min(maxVertexSpeed, maxSpeed)}.
	None VelocityStrategy = iota
	// MinOneStep grows each successive speed by at most Δ, bounded by the
	// kinematic distance available on the shortest neighbouring edge.
	MinOneStep
)

// VelocityExtensions returns the discrete speed values a train may hold at
// a vertex, per spec.md §4.9.
func VelocityExtensions(strategy VelocityStrategy, maxSpeed, acceleration, maxVertexSpeed, neighbourMinLength, delta float64) []float64 {
	speedCap := math.Min(maxVertexSpeed, maxSpeed)
	switch strategy {
	case MinOneStep:
		return minOneStepExtensions(acceleration, speedCap, neighbourMinLength, delta)
	default:
		return noneExtensions(speedCap, delta)
	}
}

func noneExtensions(speedCap, delta float64) []float64 {
	var out []float64
	for v := 0.0; v < speedCap; v += delta {
		out = append(out, v)
	}
	out = append(out, speedCap)
	return out
}

// minOneStepExtensions grows s_{k+1} = min(s_k+delta,
// sqrt(s_k^2+2*acceleration*neighbourMinLength), speedCap) from s_0=0
// until it reaches speedCap.
func minOneStepExtensions(acceleration, speedCap, neighbourMinLength, delta float64) []float64 {
	out := []float64{0}
	s := 0.0
	for s < speedCap {
		kinematic := math.Sqrt(s*s + 2*acceleration*neighbourMinLength)
		next := math.Min(s+delta, kinematic)
		if next > speedCap {
			next = speedCap
		}
		if next <= s {
			break
		}
		out = append(out, next)
		s = next
	}
	return out
}

// PossibleByEOM reports whether a second-order equation-of-motion profile
// of length at most maxLength exists connecting v1 to v2 under bounded
// acceleration/deceleration: an increasing transition needs
// (v2²-v1²)/(2·acceleration) of runway, a decreasing one needs
// (v1²-v2²)/(2·deceleration).
func PossibleByEOM(v1, v2, acceleration, deceleration, maxLength float64) bool {
	if v2 >= v1 {
		if acceleration <= 0 {
			return v2 == v1
		}
		needed := (v2*v2 - v1*v1) / (2 * acceleration)
		return needed <= maxLength
	}
	if deceleration <= 0 {
		return false
	}
	needed := (v1*v1 - v2*v2) / (2 * deceleration)
	return needed <= maxLength
}
