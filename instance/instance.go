// Package instance implements the Instance bundle of spec.md §4.6: the
// composition of Network, StationList, Timetable and RouteMap that both
// the VSS-generation and general-performance-optimization formulations
// share, plus the directory-per-instance load/save described in §6.
package instance

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/routemap"
	"nyiyui.ca/railopt/station"
	"nyiyui.ca/railopt/timetable"
	"nyiyui.ca/railopt/traincat"
)

// Instance bundles one run's Network, StationList, Timetable and RouteMap.
// RunID identifies this in-memory build for logging and telemetry
// correlation; it is assigned fresh by New and Load, never persisted.
type Instance struct {
	RunID     uuid.UUID
	Network   *network.Network
	Stations  *station.List
	Timetable *timetable.Timetable
	Routes    *routemap.RouteMap
}

// New bundles an already-built Network into a fresh, empty Instance.
func New(net *network.Network) *Instance {
	stations := station.New()
	return &Instance{
		RunID:     uuid.New(),
		Network:   net,
		Stations:  stations,
		Timetable: timetable.New(stations),
		Routes:    routemap.New(net),
	}
}

// Discretize applies net.Discretize and pushes the resulting rewrites into
// the Timetable (and through it, the StationList) and the RouteMap.
func (inst *Instance) Discretize(sep network.SeparationType) ([]network.Rewrite, error) {
	rewrites, err := inst.Network.Discretize(sep)
	if err != nil {
		return nil, railopt.Wrap(railopt.Consistency, "instance.Discretize", err)
	}
	inst.Timetable.UpdateAfterDiscretization(rewrites)
	inst.Routes.UpdateAfterDiscretization(rewrites)
	return rewrites, nil
}

// TrainsInSection returns the indices of trains whose route intersects
// edges.
func (inst *Instance) TrainsInSection(edges []int) []int {
	want := make(map[int]bool, len(edges))
	for _, e := range edges {
		want[e] = true
	}
	var out []int
	for _, train := range inst.Routes.Trains() {
		for _, e := range inst.Routes.Route(train) {
			if want[e] {
				out = append(out, train)
				break
			}
		}
	}
	return out
}

// TrainsAtT returns the indices of trains whose TimeInterval includes t.
func (inst *Instance) TrainsAtT(t float64) []int {
	var out []int
	for train := 0; train < inst.Timetable.Trains().Len(); train++ {
		lo, hi, err := inst.Timetable.TimeInterval(train)
		if err != nil {
			continue
		}
		if t >= lo && t <= hi {
			out = append(out, train)
		}
	}
	return out
}

// CheckConsistency combines the three components' checks, delegating to
// Timetable.CheckConsistency which itself validates against Network and
// RouteMap.
func (inst *Instance) CheckConsistency(everyTrainMustHaveRoute bool) error {
	return inst.Timetable.CheckConsistency(inst.Network, inst.Routes, everyTrainMustHaveRoute)
}

// Save writes the directory-per-instance layout of spec.md §6 under dir:
// network/, timetable/ and (if any routes exist) routes/.
func (inst *Instance) Save(dir string) error {
	const op = "instance.Save"
	if err := inst.Network.Export(filepath.Join(dir, "network")); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	ttDir := filepath.Join(dir, "timetable")
	if err := inst.Timetable.Trains().Export(ttDir); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := inst.Stations.Export(ttDir); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := inst.Timetable.Export(ttDir, inst.Network); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if len(inst.Routes.Trains()) > 0 {
		routesDir := filepath.Join(dir, "routes")
		if err := inst.Routes.Export(routesDir, inst.Timetable.Trains()); err != nil {
			return railopt.Wrap(railopt.IoFailure, op, err)
		}
	}
	return nil
}

// Load reconstructs an Instance from the directory layout Save produces.
// routes/routes.json is optional.
func Load(dir string) (*Instance, error) {
	const op = "instance.Load"
	net, err := network.Import(filepath.Join(dir, "network"))
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	ttDir := filepath.Join(dir, "timetable")
	trains, err := traincat.Import(ttDir)
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	stations, err := station.Import(ttDir, net)
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	tt := timetable.NewWithTrains(stations, trains)
	if err := tt.Import(ttDir, net); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}

	var routes *routemap.RouteMap
	routesPath := filepath.Join(dir, "routes", "routes.json")
	if _, statErr := os.Stat(routesPath); statErr == nil {
		routes, err = routemap.Import(filepath.Join(dir, "routes"), net, trains)
		if err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
	} else {
		routes = routemap.New(net)
	}

	return &Instance{
		RunID:     uuid.New(),
		Network:   net,
		Stations:  stations,
		Timetable: tt,
		Routes:    routes,
	}, nil
}
