// Package timetable implements the Timetable of spec.md §4.4: a per-train
// Schedule composing the train catalogue and the station list, with stop
// conflict checking and the horizon queries the simulator and MIP builder
// need.
package timetable

import (
	"math"

	"golang.org/x/exp/slices"
	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
	"nyiyui.ca/railopt/routemap"
	"nyiyui.ca/railopt/station"
	"nyiyui.ca/railopt/traincat"
)

// Window is a closed time interval [A, B], used for arrival/departure
// permission windows throughout spec.md §3.
type Window struct {
	A, B float64
}

// StopKind distinguishes a general (windowed) scheduled stop from a fixed
// (point-time) one, per spec.md §9's tagged-variant rewrite of the source's
// templated schedule.
type StopKind int

const (
	General StopKind = iota
	Fixed
)

// Stop is a ScheduledStop (spec.md §3): permitted arrival window Begin,
// permitted departure window End, minimum dwell Tau, and the station name
// the train must occupy during the stop.
type Stop struct {
	Kind    StopKind
	Station string
	Begin   Window
	End     Window
	Tau     float64
}

// NewGeneralStop validates and constructs a windowed stop. Invariants (§3):
// bB>=bA>=0, eB>=eA>=0, eB>=bA, eB-bA>=tau, tau>=1.
func NewGeneralStop(stationName string, begin, end Window, tau float64) (Stop, error) {
	const op = "timetable.NewGeneralStop"
	s := Stop{Kind: General, Station: stationName, Begin: begin, End: end, Tau: tau}
	if err := s.validate(op); err != nil {
		return Stop{}, err
	}
	return s, nil
}

// NewFixedStop constructs a stop whose windows collapse to points, with
// Tau derived as end-begin.
func NewFixedStop(stationName string, begin, end float64) (Stop, error) {
	const op = "timetable.NewFixedStop"
	s := Stop{
		Kind:    Fixed,
		Station: stationName,
		Begin:   Window{A: begin, B: begin},
		End:     Window{A: end, B: end},
		Tau:     end - begin,
	}
	if err := s.validate(op); err != nil {
		return Stop{}, err
	}
	return s, nil
}

func (s Stop) validate(op string) error {
	if s.Begin.B < s.Begin.A || s.Begin.A < 0 {
		return railopt.Newf(railopt.InvalidInput, op, "begin window %v invalid", s.Begin)
	}
	if s.End.B < s.End.A || s.End.A < 0 {
		return railopt.Newf(railopt.InvalidInput, op, "end window %v invalid", s.End)
	}
	if s.End.B < s.Begin.A {
		return railopt.Newf(railopt.InvalidInput, op, "end window %v ends before begin window %v starts", s.End, s.Begin)
	}
	if s.Tau < 1 {
		return railopt.Newf(railopt.InvalidInput, op, "minimum dwell %v must be >= 1", s.Tau)
	}
	if s.End.B-s.Begin.A < s.Tau {
		return railopt.Newf(railopt.InvalidInput, op, "window span %v shorter than minimum dwell %v", s.End.B-s.Begin.A, s.Tau)
	}
	return nil
}

// ForcedInterval returns the forced stopping interval [lo, hi] — times at
// which the train must be stopped in every feasible realisation — and
// whether it is non-empty (lo <= hi).
func (s Stop) ForcedInterval() (lo, hi float64, nonEmpty bool) {
	lo = math.Max(s.Begin.B, s.End.B-s.Tau)
	hi = math.Min(s.Begin.A+s.Tau, s.End.A)
	return lo, hi, lo <= hi
}

// Conflicts reports whether s and other conflict: same station name, or
// both forced intervals non-empty and overlapping.
func (s Stop) Conflicts(other Stop) bool {
	if s.Station == other.Station {
		return true
	}
	lo1, hi1, ok1 := s.ForcedInterval()
	lo2, hi2, ok2 := other.ForcedInterval()
	if !ok1 || !ok2 {
		return false
	}
	return lo1 <= hi2 && lo2 <= hi1
}

// Less implements spec.md §3's stop ordering: s1 < s2 iff they don't
// conflict and bB(s1) < bA(s2) and eA(s1) < bB(s2).
func (s Stop) Less(other Stop) bool {
	if s.Conflicts(other) {
		return false
	}
	return s.Begin.B < other.Begin.A && s.End.A < other.Begin.B
}

// Schedule is a train's per-run entry/exit parameters and ordered stop
// list, per spec.md §3.
type Schedule struct {
	EntryVertex int
	EntryWindow Window
	EntrySpeed  float64
	ExitVertex  int
	ExitWindow  Window
	ExitSpeed   float64
	Stops       []Stop
}

// Timetable composes a shared StationList with an internally-owned train
// catalogue and a parallel Schedule slice; train and schedule indices
// coincide, per spec.md §9's fix for the source's cyclic train_list
// reference.
type Timetable struct {
	stations  *station.List
	trains    *traincat.Catalogue
	schedules []Schedule
}

// New returns an empty Timetable referencing the given (shared) StationList.
func New(stations *station.List) *Timetable {
	return &Timetable{stations: stations, trains: traincat.New()}
}

// NewWithTrains returns a Timetable with no schedules yet, but with trains
// as its train catalogue. Used by instance.Load to attach a catalogue
// imported from trains.json before schedules.json is read, keeping the
// train-index and schedule-index spaces in lockstep.
func NewWithTrains(stations *station.List, trains *traincat.Catalogue) *Timetable {
	return &Timetable{stations: stations, trains: trains}
}

// Trains returns the Timetable's internally-owned train catalogue.
func (tt *Timetable) Trains() *traincat.Catalogue { return tt.trains }

// AddTrain inserts t into the train catalogue and sched into the schedule
// vector at the same index.
func (tt *Timetable) AddTrain(t traincat.Train, sched Schedule) (int, error) {
	const op = "timetable.AddTrain"
	if err := checkWindow(op, "entry", sched.EntryWindow); err != nil {
		return 0, err
	}
	if err := checkWindow(op, "exit", sched.ExitWindow); err != nil {
		return 0, err
	}
	if sched.ExitWindow.B < sched.EntryWindow.A {
		return 0, railopt.Newf(railopt.InvalidInput, op, "exit window %v ends before entry window %v starts", sched.ExitWindow, sched.EntryWindow)
	}
	idx, err := tt.trains.Add(t)
	if err != nil {
		return 0, err
	}
	tt.schedules = append(tt.schedules, sched)
	return idx, nil
}

// checkWindow validates the same bB>=bA>=0 invariant spec.md §3 states for
// stop windows, applied to Schedule's entry/exit windows.
func checkWindow(op, which string, w Window) error {
	if w.B < w.A || w.A < 0 {
		return railopt.Newf(railopt.InvalidInput, op, "%s window %v invalid", which, w)
	}
	return nil
}

// Schedule returns the schedule for train.
func (tt *Timetable) Schedule(train int) (Schedule, error) {
	if train < 0 || train >= len(tt.schedules) {
		return Schedule{}, railopt.Newf(railopt.NotFound, "timetable.Schedule", "train index %d out of range", train)
	}
	return tt.schedules[train], nil
}

// AddStop validates that train and stop.Station exist, checks stop doesn't
// conflict with any existing stop of train, and appends it. It does not
// sort; callers that need the totally-ordered invariant should follow with
// SortStops, or use AddFixedStop which sorts automatically.
func (tt *Timetable) AddStop(train int, stop Stop) error {
	const op = "timetable.AddStop"
	if train < 0 || train >= len(tt.schedules) {
		return railopt.Newf(railopt.NotFound, op, "train index %d out of range", train)
	}
	if !tt.stations.Has(stop.Station) {
		return railopt.Newf(railopt.NotFound, op, "no station named %q", stop.Station)
	}
	for _, existing := range tt.schedules[train].Stops {
		if existing.Conflicts(stop) {
			return railopt.Newf(railopt.Consistency, op, "stop at %q conflicts with existing stop at %q", stop.Station, existing.Station)
		}
	}
	tt.schedules[train].Stops = append(tt.schedules[train].Stops, stop)
	return nil
}

// AddFixedStop is the convenience form of add_stop: it builds a Fixed stop,
// appends it via AddStop, and sorts the resulting stop list.
func (tt *Timetable) AddFixedStop(train int, stationName string, begin, end float64) error {
	stop, err := NewFixedStop(stationName, begin, end)
	if err != nil {
		return err
	}
	if err := tt.AddStop(train, stop); err != nil {
		return err
	}
	return tt.SortStops(train)
}

// SortStops orders train's stop list under Stop.Less.
func (tt *Timetable) SortStops(train int) error {
	if train < 0 || train >= len(tt.schedules) {
		return railopt.Newf(railopt.NotFound, "timetable.SortStops", "train index %d out of range", train)
	}
	slices.SortFunc(tt.schedules[train].Stops, func(a, b Stop) bool { return a.Less(b) })
	return nil
}

// MaxT returns the maximum exit-window upper bound across all schedules'
// exit windows and stops.
func (tt *Timetable) MaxT() float64 {
	max := 0.0
	for _, s := range tt.schedules {
		if s.ExitWindow.B > max {
			max = s.ExitWindow.B
		}
		for _, stop := range s.Stops {
			if stop.End.B > max {
				max = stop.End.B
			}
		}
	}
	return max
}

// TimeInterval returns (entry window lower bound, exit window upper bound)
// for train.
func (tt *Timetable) TimeInterval(train int) (float64, float64, error) {
	if train < 0 || train >= len(tt.schedules) {
		return 0, 0, railopt.Newf(railopt.NotFound, "timetable.TimeInterval", "train index %d out of range", train)
	}
	s := tt.schedules[train]
	return s.EntryWindow.A, s.ExitWindow.B, nil
}

// TimeIndexInterval converts train's TimeInterval into discrete timestep
// indices at step dt: (floor(t0a/dt), ceil(tnb/dt)), with the upper bound
// dropped by one when tnInclusive is false and tnb/dt is an exact integer.
func (tt *Timetable) TimeIndexInterval(train int, dt float64, tnInclusive bool) (int, int, error) {
	t0a, tnb, err := tt.TimeInterval(train)
	if err != nil {
		return 0, 0, err
	}
	lo := int(math.Floor(t0a / dt))
	hiExact := tnb / dt
	hi := int(math.Ceil(hiExact))
	if !tnInclusive && hiExact == math.Trunc(hiExact) {
		hi--
	}
	return lo, hi, nil
}

// UpdateAfterDiscretization refreshes the shared StationList's tracks.
// Schedules and stops hold only station names and vertex indices, which
// discretization never renames or removes, so nothing else needs rewriting
// (spec.md §4.4).
func (tt *Timetable) UpdateAfterDiscretization(rewrites []network.Rewrite) {
	tt.stations.UpdateAfterDiscretization(rewrites)
}

// CheckConsistency validates every train's entry/exit vertices, stop
// stations, and pairwise non-conflicting stops; if everyTrainMustHaveRoute
// is set, additionally requires a route that begins at an out-edge of the
// entry vertex, ends at an in-edge of the exit vertex, visits every stop's
// station, and respects the successor relation throughout.
func (tt *Timetable) CheckConsistency(net *network.Network, routes *routemap.RouteMap, everyTrainMustHaveRoute bool) error {
	const op = "timetable.CheckConsistency"
	for train, s := range tt.schedules {
		if s.EntryVertex < 0 || s.EntryVertex >= net.NumVertices() {
			return railopt.Newf(railopt.Consistency, op, "train %d: entry vertex %d does not exist", train, s.EntryVertex)
		}
		if s.ExitVertex < 0 || s.ExitVertex >= net.NumVertices() {
			return railopt.Newf(railopt.Consistency, op, "train %d: exit vertex %d does not exist", train, s.ExitVertex)
		}
		for _, stop := range s.Stops {
			if !tt.stations.Has(stop.Station) {
				return railopt.Newf(railopt.Consistency, op, "train %d: stop station %q does not exist", train, stop.Station)
			}
		}
		for i := 0; i < len(s.Stops); i++ {
			for j := i + 1; j < len(s.Stops); j++ {
				if s.Stops[i].Conflicts(s.Stops[j]) {
					return railopt.Newf(railopt.Consistency, op, "train %d: stops %d and %d conflict", train, i, j)
				}
			}
		}
		if !everyTrainMustHaveRoute {
			continue
		}
		route := routes.Route(train)
		if len(route) == 0 {
			return railopt.Newf(railopt.Consistency, op, "train %d: no route", train)
		}
		first, last := route[0], route[len(route)-1]
		if net.Edge(first).Source != s.EntryVertex {
			return railopt.Newf(railopt.Consistency, op, "train %d: route does not start at an out-edge of entry vertex %d", train, s.EntryVertex)
		}
		if net.Edge(last).Target != s.ExitVertex {
			return railopt.Newf(railopt.Consistency, op, "train %d: route does not end at an in-edge of exit vertex %d", train, s.ExitVertex)
		}
		for i := 0; i < len(route)-1; i++ {
			if !net.IsValidSuccessor(route[i], route[i+1]) {
				return railopt.Newf(railopt.Consistency, op, "train %d: route edges %d->%d are not valid successors", train, route[i], route[i+1])
			}
		}
		for _, stop := range s.Stops {
			tracks, err := tt.stations.Tracks(stop.Station)
			if err != nil {
				return railopt.Wrap(railopt.Consistency, op, err)
			}
			if !routeVisits(route, tracks) {
				return railopt.Newf(railopt.Consistency, op, "train %d: route never visits station %q", train, stop.Station)
			}
		}
	}
	return nil
}

func routeVisits(route, tracks []int) bool {
	set := make(map[int]bool, len(tracks))
	for _, e := range tracks {
		set[e] = true
	}
	for _, e := range route {
		if set[e] {
			return true
		}
	}
	return false
}
