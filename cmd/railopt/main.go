// Command railopt is a thin CLI wrapper over the railopt library: it
// parses flags, sets up logging, dispatches to a library call and
// translates the result into one of spec.md §6's exit codes. It contains
// no business logic of its own.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/config"
	"nyiyui.ca/railopt/instance"
	"nyiyui.ca/railopt/iostore"
	"nyiyui.ca/railopt/mip"
	"nyiyui.ca/railopt/objective"
	"nyiyui.ca/railopt/pathcache"
	"nyiyui.ca/railopt/simulate"
)

const (
	exitSuccess = 0
	exitIO      = 1
	exitConsist = 2
	exitSolver  = 3
)

func main() {
	defer zap.S().Sync()
	level := zap.LevelFlag("log-level", zap.InfoLevel, "set log level")
	flag.Usage = usage
	flag.Parse()

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(*level)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(exitIO)
	}

	var code int
	switch args[0] {
	case "check":
		code = runCheck(args[1:])
	case "discretize":
		code = runDiscretize(args[1:])
	case "simulate":
		code = runSimulate(args[1:])
	case "objective":
		code = runObjective(args[1:])
	case "build-mip":
		code = runBuildMIP(args[1:])
	default:
		zap.S().Errorf("unknown subcommand %q", args[0])
		usage()
		code = exitIO
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: railopt [-log-level LEVEL] <subcommand> [args]

subcommands:
  check <dir>                          load an instance and check consistency
  discretize <dir> <outdir>            discretize breakable sections and re-save
  simulate <dir>                       simulate every train at its scheduled max speed
  objective <dir>                      simulate and print the combined objective
  build-mip <dir> [-formulation=...]   build (never solve) a MIP model and print its size`)
}

// exitCodeFor maps a railopt.Error's Kind to spec.md §6's exit codes.
// Non-railopt errors (flag parsing, missing arguments) are treated as I/O
// failures since they always occur before any library call runs.
func exitCodeFor(err error) int {
	switch {
	case railopt.Is(err, railopt.IoFailure):
		return exitIO
	case railopt.Is(err, railopt.Consistency), railopt.Is(err, railopt.InvalidInput),
		railopt.Is(err, railopt.NotFound), railopt.Is(err, railopt.Duplicate),
		railopt.Is(err, railopt.OutOfRange):
		return exitConsist
	default:
		return exitIO
	}
}

func runCheck(args []string) int {
	if len(args) != 1 {
		zap.S().Error("check: expected exactly one directory argument")
		return exitIO
	}
	inst, err := iostore.Load(args[0])
	if err != nil {
		zap.S().Errorw("check: load failed", "error", err)
		return exitCodeFor(err)
	}
	if err := inst.CheckConsistency(false); err != nil {
		zap.S().Errorw("check: consistency violation", "error", err)
		return exitConsist
	}
	zap.S().Infow("check: ok", "trains", inst.Timetable.Trains().Len(), "edges", inst.Network.NumEdges())
	return exitSuccess
}

func runDiscretize(args []string) int {
	if len(args) != 2 {
		zap.S().Error("discretize: expected <dir> <outdir>")
		return exitIO
	}
	inst, err := iostore.Load(args[0])
	if err != nil {
		zap.S().Errorw("discretize: load failed", "error", err)
		return exitCodeFor(err)
	}
	if _, err := inst.Discretize(0); err != nil {
		zap.S().Errorw("discretize: failed", "error", err)
		return exitCodeFor(err)
	}
	if err := iostore.Save(inst, args[1]); err != nil {
		zap.S().Errorw("discretize: save failed", "error", err)
		return exitCodeFor(err)
	}
	zap.S().Infow("discretize: ok", "out", args[1])
	return exitSuccess
}

func runSimulate(args []string) int {
	if len(args) != 1 {
		zap.S().Error("simulate: expected exactly one directory argument")
		return exitIO
	}
	inst, err := iostore.Load(args[0])
	if err != nil {
		zap.S().Errorw("simulate: load failed", "error", err)
		return exitCodeFor(err)
	}
	sols := maxSpeedSolutions(inst)
	trajs, err := simulate.SimulateAll(inst, sols, config.Default())
	if err != nil {
		zap.S().Errorw("simulate: one or more trains failed", "error", err)
		return exitConsist
	}
	for train, traj := range trajs {
		zap.S().Infow("simulate: trajectory", "train", train, "edges_visited", len(traj.Edges), "stops_visited", traj.StopsVisited)
	}
	return exitSuccess
}

func runObjective(args []string) int {
	if len(args) != 1 {
		zap.S().Error("objective: expected exactly one directory argument")
		return exitIO
	}
	inst, err := iostore.Load(args[0])
	if err != nil {
		zap.S().Errorw("objective: load failed", "error", err)
		return exitCodeFor(err)
	}
	store, err := openPathCache(args[0])
	if err != nil {
		zap.S().Errorw("objective: pathcache open failed", "error", err)
		return exitCodeFor(err)
	}
	defer store.Close()
	sols := maxSpeedSolutions(inst)
	cfg := config.Default()
	trajs, err := simulate.SimulateAll(inst, sols, cfg)
	if err != nil {
		zap.S().Errorw("objective: simulation failed", "error", err)
		return exitConsist
	}
	res, err := objective.Evaluate(inst, trajs, cfg, store)
	if err != nil {
		zap.S().Errorw("objective: evaluation failed", "error", err)
		return exitConsist
	}
	fmt.Printf("collision=%.4f destination=%.4f stop=%.4f combined=%.4f\n", res.Collision, res.Destination, res.Stop, res.Combined)
	return exitSuccess
}

// openPathCache opens the shortest-path cache alongside the instance
// directory, so repeated invocations against an unchanged network reuse
// the same buntdb file instead of recomputing Floyd-Warshall every run.
func openPathCache(instDir string) (*pathcache.Store, error) {
	return pathcache.Open(filepath.Join(instDir, ".pathcache.db"))
}

func runBuildMIP(args []string) int {
	fs := flag.NewFlagSet("build-mip", flag.ContinueOnError)
	vss := fs.Bool("vss-generation", false, "build the VSS-generation formulation instead of moving-block")
	fixRoutes := fs.Bool("fix-routes", false, "restrict variables to each train's already-assigned route")
	relaxed := fs.Bool("relaxed", false, "fall back to reachability when fix-routes is set but a train has no route")
	if err := fs.Parse(args); err != nil {
		return exitIO
	}
	if fs.NArg() != 1 {
		zap.S().Error("build-mip: expected exactly one directory argument")
		return exitIO
	}
	inst, err := iostore.Load(fs.Arg(0))
	if err != nil {
		zap.S().Errorw("build-mip: load failed", "error", err)
		return exitCodeFor(err)
	}
	store, err := openPathCache(fs.Arg(0))
	if err != nil {
		zap.S().Errorw("build-mip: pathcache open failed", "error", err)
		return exitCodeFor(err)
	}
	defer store.Close()
	cfg := config.Default()
	var model *mip.Model
	if *vss {
		model, err = mip.BuildVSSGeneration(inst, cfg, store, *fixRoutes, *relaxed)
	} else {
		model, err = mip.BuildMovingBlock(inst, cfg, store, *fixRoutes, *relaxed)
	}
	if err != nil {
		zap.S().Errorw("build-mip: model construction failed", "error", err)
		return exitSolver
	}
	fmt.Printf("variables=%d objective_terms=%d constraints=%d\n", len(model.Vars), len(model.Objective), len(model.Constraints))
	return exitSuccess
}

func maxSpeedSolutions(inst *instance.Instance) map[int]simulate.RoutingSolution {
	sols := make(map[int]simulate.RoutingSolution, inst.Timetable.Trains().Len())
	for tr := 0; tr < inst.Timetable.Trains().Len(); tr++ {
		train := inst.Timetable.Trains().Train(tr)
		sols[tr] = simulate.RoutingSolution{TargetSpeeds: map[int]float64{0: train.MaxSpeed}}
	}
	return sols
}
