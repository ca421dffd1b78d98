package objective

import (
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/simulate"
)

// StopPenalty compares, over all trains, the total scheduled stop count
// against the total realised (PlannedStop) count, returning
// (scheduled-visited)/scheduled, or 0 if no stops were scheduled at all.
// A train visiting more stops than it was scheduled is a hard
// railopt.Consistency error, per spec.md §4.8.
func StopPenalty(inst *instance.Instance, trajs map[int]*simulate.TrainTrajectory) (float64, error) {
	const op = "objective.StopPenalty"
	tt := inst.Timetable
	n := tt.Trains().Len()

	var scheduled, visited int
	for train := 0; train < n; train++ {
		sched, err := tt.Schedule(train)
		if err != nil {
			return 0, railopt.Wrap(railopt.NotFound, op, err)
		}
		scheduled += len(sched.Stops)
		traj := trajs[train]
		if traj == nil {
			continue
		}
		if traj.StopsVisited > len(sched.Stops) {
			return 0, railopt.Newf(railopt.Consistency, op, "train %d visited %d stops, more than the %d scheduled", train, traj.StopsVisited, len(sched.Stops))
		}
		visited += traj.StopsVisited
	}
	if scheduled == 0 {
		return 0, nil
	}
	return float64(scheduled-visited) / float64(scheduled), nil
}
