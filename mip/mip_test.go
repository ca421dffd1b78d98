package mip

import (
	"math"
	"path/filepath"
	"testing"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/pathcache"
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

func buildLinearInstance(t *testing.T) (*instance.Instance, int, int, int) {
	t.Helper()
	n := network.New()
	l0, err := n.AddVertex("l0", network.NoBorder)
	if err != nil {
		t.Fatalf("AddVertex l0: %s", err)
	}
	mid, err := n.AddVertex("mid", network.NoBorder)
	if err != nil {
		t.Fatalf("AddVertex mid: %s", err)
	}
	r0, err := n.AddVertex("r0", network.NoBorder)
	if err != nil {
		t.Fatalf("AddVertex r0: %s", err)
	}
	e0, err := n.AddEdge(l0, mid, 500, 20, false, 0)
	if err != nil {
		t.Fatalf("AddEdge e0: %s", err)
	}
	e1, err := n.AddEdge(mid, r0, 500, 20, false, 0)
	if err != nil {
		t.Fatalf("AddEdge e1: %s", err)
	}
	if err := n.AddSuccessor(e0, e1); err != nil {
		t.Fatalf("AddSuccessor: %s", err)
	}

	inst := instance.New(n)
	if _, err := inst.Timetable.AddTrain(
		traincat.Train{Name: "tr1", Length: 20, MaxSpeed: 20, Acceleration: 2, Deceleration: 2},
		timetable.Schedule{
			EntryVertex: l0, EntryWindow: timetable.Window{A: 0, B: 0},
			ExitVertex: r0, ExitWindow: timetable.Window{A: 200, B: 200},
		},
	); err != nil {
		t.Fatalf("AddTrain: %s", err)
	}
	return inst, l0, mid, r0
}

func TestPossibleByEOMAcceleratingWithinRunway(t *testing.T) {
	if !PossibleByEOM(0, 10, 2, 2, 100) {
		t.Fatalf("expected 0->10 accelerating at a=2 to fit in 100 (needs 25)")
	}
	if PossibleByEOM(0, 10, 2, 2, 10) {
		t.Fatalf("expected 0->10 accelerating at a=2 to NOT fit in 10 (needs 25)")
	}
}

func TestPossibleByEOMDecelerating(t *testing.T) {
	if !PossibleByEOM(10, 0, 2, 2, 25) {
		t.Fatalf("expected 10->0 decelerating at d=2 to fit exactly in 25")
	}
	if PossibleByEOM(10, 0, 2, 2, 24) {
		t.Fatalf("expected 10->0 decelerating at d=2 to NOT fit in 24")
	}
}

func TestPossibleByEOMZeroAccelerationRequiresEqualSpeed(t *testing.T) {
	if !PossibleByEOM(5, 5, 0, 0, 0) {
		t.Fatalf("equal speeds with zero acceleration should always be possible")
	}
	if PossibleByEOM(5, 10, 0, 2, 1000) {
		t.Fatalf("increasing speed with zero acceleration should be impossible")
	}
}

func TestVelocityExtensionsNoneStepsToCap(t *testing.T) {
	got := VelocityExtensions(None, 22, 2, 20, 20, 5)
	want := []float64{0, 5, 10, 15, 20}
	if len(got) != len(want) {
		t.Fatalf("VelocityExtensions(None) = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("VelocityExtensions(None)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestVelocityExtensionsMinOneStepSelfConsistent checks the MinOneStep
// recursion s_{k+1} = min(s_k+delta, sqrt(s_k^2+2*a*L), cap) against
// values computed by hand from that same recursion, rather than against
// the worked numbers given alongside it — those don't reproduce from the
// stated recursion for any starting interpretation tried (see DESIGN.md).
func TestVelocityExtensionsMinOneStepSelfConsistent(t *testing.T) {
	got := VelocityExtensions(MinOneStep, 30, 1, 30, 50, 5)
	want := []float64{0, 5, 10, math.Sqrt(200), math.Sqrt(300), 20, math.Sqrt(500), math.Sqrt(600), math.Sqrt(700), math.Sqrt(800), 30}
	if len(got) != len(want) {
		t.Fatalf("VelocityExtensions(MinOneStep) = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Fatalf("VelocityExtensions(MinOneStep)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEdgesUsedByTrainFixedRoute(t *testing.T) {
	inst, _, _, _ := buildLinearInstance(t)
	e0, err := inst.Network.EdgeByEndpoints(0, 1)
	if err != nil {
		t.Fatalf("EdgeByEndpoints: %s", err)
	}
	e1, err := inst.Network.EdgeByEndpoints(1, 2)
	if err != nil {
		t.Fatalf("EdgeByEndpoints: %s", err)
	}
	if err := inst.Routes.PushBackEdge(0, e0); err != nil {
		t.Fatalf("PushBackEdge: %s", err)
	}
	if err := inst.Routes.PushBackEdge(0, e1); err != nil {
		t.Fatalf("PushBackEdge: %s", err)
	}

	got, err := EdgesUsedByTrain(inst, 0, nil, true, false)
	if err != nil {
		t.Fatalf("EdgesUsedByTrain: %s", err)
	}
	if len(got) != 2 || got[0] != e0 || got[1] != e1 {
		t.Fatalf("EdgesUsedByTrain(fixRoutes) = %v, want [%d %d]", got, e0, e1)
	}
}

func TestEdgesUsedByTrainNoRouteAndNotRelaxedFails(t *testing.T) {
	inst, _, _, _ := buildLinearInstance(t)
	_, err := EdgesUsedByTrain(inst, 0, nil, true, false)
	if !railopt.Is(err, railopt.Consistency) {
		t.Fatalf("EdgesUsedByTrain: got %v, want railopt.Consistency", err)
	}
}

func TestEdgesUsedByTrainReachability(t *testing.T) {
	inst, _, _, _ := buildLinearInstance(t)
	e0, _ := inst.Network.EdgeByEndpoints(0, 1)
	e1, _ := inst.Network.EdgeByEndpoints(1, 2)

	paths := inst.Network.AllEdgePairsShortestPaths()
	got, err := EdgesUsedByTrain(inst, 0, paths, false, false)
	if err != nil {
		t.Fatalf("EdgesUsedByTrain: %s", err)
	}
	seen := map[int]bool{}
	for _, e := range got {
		seen[e] = true
	}
	if !seen[e0] || !seen[e1] {
		t.Fatalf("EdgesUsedByTrain(reachability) = %v, want both %d and %d reachable", got, e0, e1)
	}
}

func TestModelAddVarDuplicateRejected(t *testing.T) {
	m := NewModel()
	if err := m.AddVar("x", Variable{Kind: EdgeUsed, Binary: true, Upper: 1}); err != nil {
		t.Fatalf("AddVar: %s", err)
	}
	err := m.AddVar("x", Variable{Kind: EdgeUsed, Binary: true, Upper: 1})
	if !railopt.Is(err, railopt.Duplicate) {
		t.Fatalf("AddVar duplicate: got %v, want railopt.Duplicate", err)
	}
}

func TestModelAddConstraintUnknownVarRejected(t *testing.T) {
	m := NewModel()
	err := m.AddConstraint(Constraint{Name: "c", Terms: []Term{{Var: "missing", Coeff: 1}}, Relation: LessEq, RHS: 1})
	if !railopt.Is(err, railopt.NotFound) {
		t.Fatalf("AddConstraint unknown var: got %v, want railopt.NotFound", err)
	}
}

func TestBuildMovingBlockProducesEntryExitConstraints(t *testing.T) {
	inst, l0, _, r0 := buildLinearInstance(t)
	store := openTestStore(t)
	m, err := BuildMovingBlock(inst, config.Default(), store, false, false)
	if err != nil {
		t.Fatalf("BuildMovingBlock: %s", err)
	}
	if len(m.Vars) == 0 {
		t.Fatalf("BuildMovingBlock produced no variables")
	}
	var sawEntry, sawExit bool
	for _, c := range m.Constraints {
		switch c.Name {
		case "entry[0]":
			sawEntry = true
		case "exit[0]":
			sawExit = true
		}
	}
	if !sawEntry || !sawExit {
		t.Fatalf("BuildMovingBlock missing entry/exit constraints for train 0 (entry=%d exit=%d)", l0, r0)
	}
	if len(m.Objective) == 0 {
		t.Fatalf("BuildMovingBlock produced an empty objective")
	}
}

func TestBuildVSSGenerationAddsBoundaryVars(t *testing.T) {
	n := network.New()
	l0, _ := n.AddVertex("l0", network.NoBorder)
	r0, _ := n.AddVertex("r0", network.NoBorder)
	e0, err := n.AddEdge(l0, r0, 100, 20, true, 10)
	if err != nil {
		t.Fatalf("AddEdge: %s", err)
	}
	inst := instance.New(n)
	if _, err := inst.Timetable.AddTrain(
		traincat.Train{Name: "tr1", Length: 20, MaxSpeed: 20, Acceleration: 2, Deceleration: 2},
		timetable.Schedule{
			EntryVertex: l0, EntryWindow: timetable.Window{A: 0, B: 0},
			ExitVertex: r0, ExitWindow: timetable.Window{A: 60, B: 60},
		},
	); err != nil {
		t.Fatalf("AddTrain: %s", err)
	}

	store := openTestStore(t)
	m, err := BuildVSSGeneration(inst, config.Default(), store, false, false)
	if err != nil {
		t.Fatalf("BuildVSSGeneration: %s", err)
	}
	maxVSS := n.MaxVSSOnEdge(e0)
	if maxVSS <= 0 {
		t.Fatalf("test edge has no VSS capacity, fixture is degenerate")
	}
	if _, ok := m.Vars[bPosKey(e0, 0)]; !ok {
		t.Fatalf("BuildVSSGeneration did not register b_pos[%d,0]", e0)
	}
}
