package objective

import (
	"math"
	"path/filepath"
	"testing"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/pathcache"
	"nyiyui.ca/railopt/simulate"
	"nyiyui.ca/railopt/timetable"
	"nyiyui.ca/railopt/traincat"
)

func openTestStore(t *testing.T) *pathcache.Store {
	t.Helper()
	s, err := pathcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("pathcache.Open: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func buildTwoTrainInstance(t *testing.T) *instance.Instance {
	t.Helper()
	n := network.New()
	l0, err := n.AddVertex("l0", network.NoBorder)
	if err != nil {
		t.Fatalf("AddVertex l0: %s", err)
	}
	r0, err := n.AddVertex("r0", network.NoBorder)
	if err != nil {
		t.Fatalf("AddVertex r0: %s", err)
	}
	e0, err := n.AddEdge(l0, r0, 1000, 20, false, 0)
	if err != nil {
		t.Fatalf("AddEdge: %s", err)
	}

	inst := instance.New(n)
	for _, name := range []string{"tr1", "tr2"} {
		if _, err := inst.Timetable.AddTrain(
			traincat.Train{Name: name, Length: 20, MaxSpeed: 20, Acceleration: 2, Deceleration: 2},
			timetable.Schedule{
				EntryVertex: l0, EntryWindow: timetable.Window{A: 0, B: 0},
				ExitVertex: r0, ExitWindow: timetable.Window{A: 200, B: 200},
			},
		); err != nil {
			t.Fatalf("AddTrain %s: %s", name, err)
		}
	}
	if err := inst.Routes.PushBackEdge(0, e0); err != nil {
		t.Fatalf("PushBackEdge tr1: %s", err)
	}
	if err := inst.Routes.PushBackEdge(1, e0); err != nil {
		t.Fatalf("PushBackEdge tr2: %s", err)
	}
	return inst
}

func mustSimulateAll(t *testing.T, inst *instance.Instance, sols map[int]simulate.RoutingSolution) map[int]*simulate.TrainTrajectory {
	t.Helper()
	trajs, err := simulate.SimulateAll(inst, sols, config.Default())
	if err != nil {
		t.Fatalf("SimulateAll: %s", err)
	}
	return trajs
}

// TestObjectiveBoundsEmptyScenario covers property #9: an empty scenario
// (no trains) yields a zero combined objective.
func TestObjectiveBoundsEmptyScenario(t *testing.T) {
	n := network.New()
	_, _ = n.AddVertex("l0", network.NoBorder)
	_, _ = n.AddVertex("r0", network.NoBorder)
	inst := instance.New(n)
	res, err := Evaluate(inst, nil, config.Default(), openTestStore(t))
	if err != nil {
		t.Fatalf("Evaluate: %s", err)
	}
	if res.Combined != 0 {
		t.Fatalf("Combined = %v, want 0 for an empty scenario", res.Combined)
	}
}

func TestCollisionPenaltyTooCoarseGuard(t *testing.T) {
	n := network.New()
	l0, _ := n.AddVertex("l0", network.NoBorder)
	r0, _ := n.AddVertex("r0", network.NoBorder)
	e0, err := n.AddEdge(l0, r0, 1000, 20, false, 0)
	if err != nil {
		t.Fatalf("AddEdge: %s", err)
	}
	inst := instance.New(n)
	for _, name := range []string{"tr1", "tr2"} {
		if _, err := inst.Timetable.AddTrain(
			traincat.Train{Name: name, Length: 2, MaxSpeed: 20, Acceleration: 2, Deceleration: 2},
			timetable.Schedule{EntryVertex: l0, EntryWindow: timetable.Window{A: 0, B: 0}, ExitVertex: r0, ExitWindow: timetable.Window{A: 200, B: 200}},
		); err != nil {
			t.Fatalf("AddTrain %s: %s", name, err)
		}
	}
	if err := inst.Routes.PushBackEdge(0, e0); err != nil {
		t.Fatalf("PushBackEdge tr1: %s", err)
	}
	if err := inst.Routes.PushBackEdge(1, e0); err != nil {
		t.Fatalf("PushBackEdge tr2: %s", err)
	}
	sols := map[int]simulate.RoutingSolution{
		0: {TargetSpeeds: map[int]float64{0: 20}},
		1: {TargetSpeeds: map[int]float64{0: 20}},
	}
	trajs := mustSimulateAll(t, inst, sols)
	_, err = CollisionPenalty(inst, trajs, 0, inst.Network.AllEdgePairsShortestPaths())
	if !railopt.Is(err, railopt.Consistency) {
		t.Fatalf("CollisionPenalty with tiny trains and no safety margin: got %v, want Consistency", err)
	}
}

func TestCollisionPenaltyBoundedAndPositiveForOverlap(t *testing.T) {
	inst := buildTwoTrainInstance(t)
	sols := map[int]simulate.RoutingSolution{
		0: {TargetSpeeds: map[int]float64{0: 20}},
		1: {TargetSpeeds: map[int]float64{0: 20}},
	}
	trajs := mustSimulateAll(t, inst, sols)
	penalty, err := CollisionPenalty(inst, trajs, 100, inst.Network.AllEdgePairsShortestPaths())
	if err != nil {
		t.Fatalf("CollisionPenalty: %s", err)
	}
	if penalty < 0 || penalty > 1 {
		t.Fatalf("CollisionPenalty = %v, want within [0,1]", penalty)
	}
	if penalty <= 0 {
		t.Fatalf("CollisionPenalty = %v, want > 0 for two trains sharing the same edge at the same times", penalty)
	}
}

func TestDestinationPenaltyBounded(t *testing.T) {
	inst := buildTwoTrainInstance(t)
	sols := map[int]simulate.RoutingSolution{
		0: {TargetSpeeds: map[int]float64{0: 20}},
		1: {TargetSpeeds: map[int]float64{0: 20}},
	}
	trajs := mustSimulateAll(t, inst, sols)
	penalty, err := DestinationPenalty(inst, trajs, inst.Network.AllEdgePairsShortestPaths())
	if err != nil {
		t.Fatalf("DestinationPenalty: %s", err)
	}
	if penalty < 0 || penalty > 1+1e-9 {
		t.Fatalf("DestinationPenalty = %v, want within [0,1]", penalty)
	}
}

func TestStopPenaltyOverVisitIsHardError(t *testing.T) {
	inst := buildTwoTrainInstance(t)
	trajs := map[int]*simulate.TrainTrajectory{
		0: {Train: 0, StopsVisited: 1},
		1: {Train: 1, StopsVisited: 0},
	}
	_, err := StopPenalty(inst, trajs)
	if !railopt.Is(err, railopt.Consistency) {
		t.Fatalf("StopPenalty with over-visit: got %v, want Consistency", err)
	}
}

func TestStopPenaltyNoStopsScheduled(t *testing.T) {
	inst := buildTwoTrainInstance(t)
	trajs := map[int]*simulate.TrainTrajectory{
		0: {Train: 0, StopsVisited: 0},
		1: {Train: 1, StopsVisited: 0},
	}
	penalty, err := StopPenalty(inst, trajs)
	if err != nil {
		t.Fatalf("StopPenalty: %s", err)
	}
	if math.Abs(penalty) > 1e-9 {
		t.Fatalf("StopPenalty = %v, want 0 with no scheduled stops", penalty)
	}
}
