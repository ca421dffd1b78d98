// Package objective implements the three normalised penalties of spec.md
// §4.8 — collision, destination and stop compliance — evaluated over an
// already-simulated set of TrainTrajectory values.
package objective

import (
	"math"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/simulate"
)

// CollisionPenalty scans every unordered pair of trains whose scheduled
// time intervals overlap, at each overlapping timestep comparing the
// distance between train centres against half the sum of their lengths
// plus safety. Every step's penalty accumulates into one running total
// across all pairs, which is divided once by the number of pairs at the
// end.
func CollisionPenalty(inst *instance.Instance, trajs map[int]*simulate.TrainTrajectory, safety float64, paths [][]float64) (float64, error) {
	const op = "objective.CollisionPenalty"
	tt := inst.Timetable
	n := tt.Trains().Len()

	var pairCount int
	var total float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ti, tj := trajs[i], trajs[j]
			if ti == nil || tj == nil {
				continue
			}
			loI, hiI, err := tt.TimeInterval(i)
			if err != nil {
				return 0, railopt.Wrap(railopt.Consistency, op, err)
			}
			loJ, hiJ, err := tt.TimeInterval(j)
			if err != nil {
				return 0, railopt.Wrap(railopt.Consistency, op, err)
			}
			lo := math.Max(loI, loJ)
			hi := math.Min(hiI, hiJ)
			if lo > hi {
				continue
			}

			trainI := tt.Trains().Train(i)
			trainJ := tt.Trains().Train(j)
			required := 0.5*trainI.Length + 0.5*trainJ.Length + safety
			speedSum := trainI.MaxSpeed + trainJ.MaxSpeed
			if 2*required < speedSum {
				return 0, railopt.Newf(railopt.Consistency, op, "time resolution too coarse for train pair (%d,%d): 2*required_dist=%v < max_speed_sum=%v", i, j, 2*required, speedSum)
			}

			for t := int(math.Ceil(lo)); t <= int(math.Floor(hi)); {
				dist, err := simulate.TrainDistance(inst, paths, ti, tj, t)
				if err != nil {
					// one or both trajectories have no recorded state at t
					// (e.g. a trajectory ended early), or no path leads from
					// i's edge to j's; nothing to compare.
					t++
					continue
				}
				if dist >= required {
					skip := int(math.Floor((dist - required) / speedSum))
					if skip < 1 {
						skip = 1
					}
					t += skip
					continue
				}
				total += 1 - dist/required
				t++
			}
			pairCount++
		}
	}
	if pairCount == 0 {
		return 0, nil
	}
	return total / float64(pairCount), nil
}
