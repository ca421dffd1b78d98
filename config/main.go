// Package config holds the tunable constants shared by the simulator and
// MIP builder. It follows the teacher's config package (config/main.go) in
// spirit: a plain struct with JSON tags and no bespoke flag/env parsing —
// spec.md never mandates an external config file format, so this stays a
// zero-value-safe struct rather than inventing one.
package config

import "time"

// Default returns the configuration spec.md's worked examples assume:
// a one-second simulation step, a 100µm collision safety margin, and no
// bound on discretization block length beyond what each edge declares.
func Default() Config {
	return Config{
		StepDuration:        time.Second,
		CollisionSafety:     100,
		VelocityStep:        1,
		MaxParallelTrains:   0, // 0 means "one goroutine per train"
		DiscretizationSplit: 0,
	}
}

// Config bundles the constants referenced across simulate, objective and
// mip that spec.md fixes as literals (§4.7-4.9) rather than deriving from
// the data model.
type Config struct {
	// StepDuration is the length of one simulator timestep (Δt in spec.md
	// §4.7). The simulator counts integer timesteps and does not read this
	// field.
	StepDuration time.Duration `json:"step_duration"`
	// CollisionSafety is the extra clearance (µm) added to half the sum of
	// two trains' lengths in objective.CollisionPenalty (spec.md §4.8: "100").
	CollisionSafety float64 `json:"collision_safety"`
	// VelocityStep is Δ, the discrete speed increment used by mip's
	// velocity-extension strategies (spec.md §4.9).
	VelocityStep float64 `json:"velocity_step"`
	// MaxParallelTrains bounds the worker pool simulate.SimulateAll uses to
	// fan out per-train trajectory construction. 0 means unbounded (one
	// goroutine per train), matching the "embarrassingly parallel" clause
	// of spec.md §5.
	MaxParallelTrains int `json:"max_parallel_trains"`
	// DiscretizationSplit is not read by network.SeparateEdge or
	// network.Discretize: they always split an edge into
	// floor(length/min_block_length) segments, whatever this field holds.
	DiscretizationSplit int `json:"discretization_split"`
}
