package iostore

import (
	"path/filepath"
	"testing"

	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/timetable"
	"nyiyui.ca/railopt/traincat"
)

func buildInstance(t *testing.T) *instance.Instance {
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
	e0, err := n.AddEdge(l0, r0, 100, 20, false, 0)
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
	if err := inst.Routes.PushBackEdge(0, e0); err != nil {
		t.Fatalf("PushBackEdge: %s", err)
	}
	return inst
}

func TestSaveLoadRoundTrip(t *testing.T) {
	inst := buildInstance(t)
	dir := filepath.Join(t.TempDir(), "run")

	if err := Save(inst, dir); err != nil {
		t.Fatalf("Save: %s", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if loaded.Network.NumEdges() != inst.Network.NumEdges() {
		t.Fatalf("Load: NumEdges = %d, want %d", loaded.Network.NumEdges(), inst.Network.NumEdges())
	}
	if loaded.Timetable.Trains().Len() != inst.Timetable.Trains().Len() {
		t.Fatalf("Load: Trains().Len() = %d, want %d", loaded.Timetable.Trains().Len(), inst.Timetable.Trains().Len())
	}
	if len(loaded.Routes.Route(0)) != len(inst.Routes.Route(0)) {
		t.Fatalf("Load: Route(0) length = %d, want %d", len(loaded.Routes.Route(0)), len(inst.Routes.Route(0)))
	}
}

func TestLoadMissingDirFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Fatalf("Load: expected an error for a missing directory")
	}
}
