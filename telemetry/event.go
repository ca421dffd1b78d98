package telemetry

import "nyiyui.ca/railopt/simulate"

// StepEvent is one published trajectory sample: a train's state at one
// instant, plus the transition outcome that ended its edge if this is the
// final state of an EdgeTrajectory (zero value simulate.Normal otherwise
// — see simulate.TransitionKind).
type StepEvent struct {
	Train   int                     `json:"train"`
	State   simulate.TrainState     `json:"state"`
	Outcome simulate.TransitionKind `json:"outcome,omitempty"`
}
