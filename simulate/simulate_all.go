package simulate

import (
	"sync"

	"go.uber.org/multierr"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
)

// SimulateAll runs Simulate for every train in inst.Timetable, fanning out
// across goroutines bounded by cfg.MaxParallelTrains (0 means unbounded,
// one goroutine per train), per spec.md §5's embarrassingly-parallel
// clause. sols supplies each train's RoutingSolution, keyed by train index;
// a missing entry uses the zero value (an even lottery, no target speed
// overrides). Errors from individual trains are combined with
// go.uber.org/multierr rather than failing fast, so one infeasible train
// doesn't hide diagnostics for the rest.
func SimulateAll(inst *instance.Instance, sols map[int]RoutingSolution, cfg config.Config) (map[int]*TrainTrajectory, error) {
	n := inst.Timetable.Trains().Len()
	out := make(map[int]*TrainTrajectory, n)

	limit := cfg.MaxParallelTrains
	if limit <= 0 {
		limit = n
	}
	if limit <= 0 {
		return out, nil
	}
	sem := make(chan struct{}, limit)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var errs error

	for train := 0; train < n; train++ {
		train := train
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			traj, err := Simulate(inst, train, sols[train])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return
			}
			out[train] = traj
		}()
	}
	wg.Wait()
	return out, errs
}
