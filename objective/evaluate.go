package objective

import (
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/pathcache"
	"nyiyui.ca/railopt/simulate"
)

// Result holds the three normalised penalties of spec.md §4.8 and their
// sum, the combined objective.
type Result struct {
	Collision   float64
	Destination float64
	Stop        float64
	Combined    float64
}

// Evaluate runs all three penalties over trajs and sums them, per
// spec.md §4.8's "combined by sum" rule. store supplies the network's
// shortest-path matrix once, shared between the collision and
// destination penalties instead of each recomputing it.
func Evaluate(inst *instance.Instance, trajs map[int]*simulate.TrainTrajectory, cfg config.Config, store *pathcache.Store) (Result, error) {
	paths, err := store.GetOrCompute(inst.Network)
	if err != nil {
		return Result{}, err
	}
	collision, err := CollisionPenalty(inst, trajs, cfg.CollisionSafety, paths)
	if err != nil {
		return Result{}, err
	}
	destination, err := DestinationPenalty(inst, trajs, paths)
	if err != nil {
		return Result{}, err
	}
	stop, err := StopPenalty(inst, trajs)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Collision:   collision,
		Destination: destination,
		Stop:        stop,
		Combined:    collision + destination + stop,
	}, nil
}
