package simulate

import (
	"math"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/timetable"
	"nyiyui.ca/railopt/traincat"
)

const epsilon = 1e-9

// Simulate reconstructs train's full trajectory from sol, per spec.md §4.7.
// When inst.Routes holds a route for train, the run starts on that route's
// first edge; every later edge is chosen among the current edge's
// successors by sol's scaled lottery, so a route is not followed past its
// first edge.
func Simulate(inst *instance.Instance, train int, sol RoutingSolution) (*TrainTrajectory, error) {
	const op = "simulate.Simulate"
	sched, err := inst.Timetable.Schedule(train)
	if err != nil {
		return nil, railopt.Wrap(railopt.NotFound, op, err)
	}
	tr := inst.Timetable.Trains().Train(train)

	firstEdge, err := firstEdgeOf(inst, train, sched, sol)
	if err != nil {
		return nil, err
	}

	maxT := inst.Timetable.MaxT()
	traj := &TrainTrajectory{Train: train, stopsRealised: map[int]bool{}}

	state := TrainState{T: int(sched.EntryWindow.A), Edge: firstEdge, Position: 0, Orientation: Forward, Speed: sched.EntrySpeed}
	edge := firstEdge
	transitionCount := 0
	for {
		et, residual, nextSpeed, nextT, done, err := simulateEdge(inst, train, tr, sched, sol, maxT, edge, state, traj)
		if err != nil {
			return nil, err
		}
		traj.Edges = append(traj.Edges, et)
		if done {
			break
		}
		successors := inst.Network.Successors(edge)
		nextEdge := successors[chooseIndex(sol.direction(transitionCount), len(successors))]
		transitionCount++
		edge = nextEdge
		state = TrainState{T: nextT, Edge: edge, Position: residual, Orientation: Forward, Speed: nextSpeed}
	}
	traj.StopsVisited = len(traj.stopsRealised)
	return traj, nil
}

func firstEdgeOf(inst *instance.Instance, train int, sched timetable.Schedule, sol RoutingSolution) (int, error) {
	const op = "simulate.firstEdgeOf"
	if route := inst.Routes.Route(train); len(route) > 0 {
		return route[0], nil
	}
	out := inst.Network.OutEdges(sched.EntryVertex)
	if len(out) == 0 {
		return 0, railopt.Newf(railopt.Consistency, op, "entry vertex %d has no out-edges", sched.EntryVertex)
	}
	return out[chooseIndex(sol.direction(0), len(out))], nil
}

func chooseIndex(d float64, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(d * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// simulateEdge integrates one edge's worth of trajectory starting at
// entry, returning the completed EdgeTrajectory. For a Normal outcome it
// also returns the residual overshoot position and speed to seed the next
// edge; done is true for any outcome that ends the whole simulation
// (DeadEnd, PlannedStop, TimeEnd — OverSpeed also ends the simulation since
// spec.md has no retry-at-lower-speed provision).
func simulateEdge(inst *instance.Instance, train int, tr traincat.Train, sched timetable.Schedule, sol RoutingSolution, maxT float64, edge int, entry TrainState, traj *TrainTrajectory) (et EdgeTrajectory, residual, nextSpeed float64, nextT int, done bool, err error) {
	const op = "simulate.simulateEdge"
	length := inst.Network.Edge(edge).Length
	states := []TrainState{entry}
	t, pos, speed := entry.T, entry.Position, entry.Speed

	for {
		if stopIdx, ok := plannedStopAt(inst, train, sched, edge, float64(t)); ok {
			traj.stopsRealised[stopIdx] = true
			brakedStates, ferr := brakeTail(states, tr, length, 0)
			if ferr != nil {
				return EdgeTrajectory{}, 0, 0, 0, true, railopt.Wrap(railopt.Consistency, op, ferr)
			}
			return EdgeTrajectory{Edge: edge, States: brakedStates, Outcome: PlannedStop}, 0, 0, 0, true, nil
		}
		if float64(t) >= maxT {
			brakedStates, ferr := brakeTail(states, tr, length, 0)
			if ferr != nil {
				return EdgeTrajectory{}, 0, 0, 0, true, railopt.Wrap(railopt.Consistency, op, ferr)
			}
			return EdgeTrajectory{Edge: edge, States: brakedStates, Outcome: TimeEnd}, 0, 0, 0, true, nil
		}

		target := sol.activeTarget(t, speed)
		newSpeed := stepSpeed(speed, target, tr.Acceleration, tr.Deceleration, tr.MaxSpeed)
		newPos := pos + (speed+newSpeed)/2
		newT := t + 1

		if newPos >= -epsilon && newPos <= length+epsilon {
			clamped := math.Max(0, math.Min(length, newPos))
			next := TrainState{T: newT, Edge: edge, Position: clamped, Orientation: Forward, Speed: newSpeed}
			states = append(states, next)
			t, pos, speed = newT, clamped, newSpeed
			continue
		}

		overshoot := newPos - length
		successors := inst.Network.Successors(edge)
		if len(successors) == 0 {
			brakedStates, ferr := brakeTail(states, tr, length, 0)
			if ferr != nil {
				return EdgeTrajectory{}, 0, 0, 0, true, railopt.Wrap(railopt.Consistency, op, ferr)
			}
			return EdgeTrajectory{Edge: edge, States: brakedStates, Outcome: DeadEnd}, 0, 0, 0, true, nil
		}
		nextEdge := successors[chooseIndex(sol.direction(len(traj.Edges)), len(successors))]
		if newSpeed > inst.Network.Edge(nextEdge).MaxSpeed+epsilon {
			brakedStates, ferr := brakeTail(states, tr, length, inst.Network.Edge(nextEdge).MaxSpeed)
			if ferr != nil {
				return EdgeTrajectory{}, 0, 0, 0, true, railopt.Wrap(railopt.Consistency, op, ferr)
			}
			return EdgeTrajectory{Edge: edge, States: brakedStates, Outcome: OverSpeed}, 0, 0, 0, true, nil
		}

		final := TrainState{T: newT, Edge: edge, Position: length, Orientation: Forward, Speed: newSpeed}
		states = append(states, final)
		return EdgeTrajectory{Edge: edge, States: states, Outcome: Normal}, overshoot, newSpeed, newT, false, nil
	}
}

// stepSpeed adjusts speed toward target by at most acceleration (when
// increasing) or deceleration (when decreasing), clamped to [-maxSpeed,
// maxSpeed].
func stepSpeed(speed, target, acceleration, deceleration, maxSpeed float64) float64 {
	var next float64
	if target >= speed {
		next = math.Min(speed+acceleration, target)
	} else {
		next = math.Max(speed-deceleration, target)
	}
	if next > maxSpeed {
		next = maxSpeed
	}
	if next < -maxSpeed {
		next = -maxSpeed
	}
	return next
}

// plannedStopAt reports whether a scheduled stop's forced stopping
// interval contains t and the train's current edge belongs to that stop's
// station, returning the stop's index within the schedule.
func plannedStopAt(inst *instance.Instance, train int, sched timetable.Schedule, edge int, t float64) (int, bool) {
	owner, ok := inst.Stations.StationOf(edge)
	if !ok {
		return 0, false
	}
	for i, stop := range sched.Stops {
		if stop.Station != owner {
			continue
		}
		lo, hi, nonEmpty := stop.ForcedInterval()
		if nonEmpty && t >= lo && t <= hi {
			return i, true
		}
	}
	return 0, false
}

// brakeTail finds the latest timestep in states from which braking at the
// train's deceleration reaches target before the edge boundary (0 or
// length), and replaces everything from that point onward with the
// braking profile. Per the implementer's resolution of spec.md §9's open
// question (a), failure to find any feasible point is a hard
// railopt.Consistency error, never an unbounded retry loop.
func brakeTail(states []TrainState, tr traincat.Train, length, target float64) ([]TrainState, error) {
	const op = "simulate.brakeTail"
	for i := len(states) - 1; i >= 0; i-- {
		braked, ok := simulateBraking(states[i], tr, length, target)
		if ok {
			out := make([]TrainState, 0, i+1+len(braked))
			out = append(out, states[:i+1]...)
			out = append(out, braked...)
			return out, nil
		}
	}
	return nil, railopt.Newf(railopt.Consistency, op, "no feasible braking manoeuvre to reach speed %v within [0, %v]", target, length)
}

// simulateBraking decelerates from start at tr.Deceleration until target
// is reached, failing if position would leave [0, length] first.
func simulateBraking(start TrainState, tr traincat.Train, length, target float64) ([]TrainState, bool) {
	var out []TrainState
	t, pos, speed := start.T, start.Position, start.Speed
	for math.Abs(speed-target) > epsilon {
		var newSpeed float64
		if speed > target {
			newSpeed = math.Max(target, speed-tr.Deceleration)
		} else {
			newSpeed = math.Min(target, speed+tr.Deceleration)
		}
		newPos := pos + (speed+newSpeed)/2
		if newPos < -epsilon || newPos > length+epsilon {
			return nil, false
		}
		t++
		clamped := math.Max(0, math.Min(length, newPos))
		out = append(out, TrainState{T: t, Edge: start.Edge, Position: clamped, Orientation: start.Orientation, Speed: newSpeed})
		pos, speed = clamped, newSpeed
	}
	return out, true
}
