package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/hydronet-sim/reservoir-core/internal/calibration"
	"github.com/hydronet-sim/reservoir-core/internal/engine"
	"github.com/hydronet-sim/reservoir-core/pkg/config"
	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

func main() {
	var modelPath string
	var output string
	var includeSeries bool
	var logLevel string
	var calibrate bool
	var objectiveName string
	var direction string
	var iterations int
	var stepSize float64
	var seed int64

	flag.StringVar(&modelPath, "model", "", "path to the model YAML file")
	flag.StringVar(&output, "output", "table", "output format (table, json)")
	flag.BoolVar(&includeSeries, "series", false, "include per-timestep series in JSON output")
	flag.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.BoolVar(&calibrate, "calibrate", false, "calibrate variable parameters before the final run")
	flag.StringVar(&objectiveName, "objective", "", "recorder to optimize (required with -calibrate)")
	flag.StringVar(&direction, "direction", "maximize", "objective direction (minimize, maximize)")
	flag.IntVar(&iterations, "iterations", 100, "maximum calibration iterations")
	flag.Float64Var(&stepSize, "step", 0.1, "initial calibration step as a fraction of each coordinate's span")
	flag.Int64Var(&seed, "seed", 1, "calibration random seed")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stderr))

	if modelPath == "" && flag.NArg() > 0 {
		modelPath = flag.Arg(0)
	}
	if modelPath == "" {
		fmt.Fprintln(os.Stderr, "usage: rescli -model <model.yaml> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadModelFile(modelPath)
	if err != nil {
		fatal("loading model: %v", err)
	}
	m, err := engine.Build(cfg)
	if err != nil {
		fatal("building model: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if calibrate {
		if err := runCalibration(ctx, m, objectiveName, direction, iterations, stepSize, seed); err != nil {
			fatal("calibration: %v", err)
		}
	}

	// The model holds the calibrated values at this point, so the final
	// run reports the recorders at the optimum.
	results, err := m.Run(ctx)
	if err != nil {
		fatal("running model: %v", err)
	}
	if includeSeries {
		results = m.Results(true)
	}

	switch output {
	case "json":
		if err := printJSON(results); err != nil {
			fatal("encoding results: %v", err)
		}
	case "table":
		printTable(results)
	default:
		fatal("unknown output format %q", output)
	}
}

func runCalibration(ctx context.Context, m *engine.Model, recorder, direction string, iterations int, step float64, seed int64) error {
	objective, err := calibration.NewObjective(recorder, calibration.Direction(direction))
	if err != nil {
		return err
	}
	opt := calibration.NewOptimizer(objective, calibration.Options{
		MaxIterations: iterations,
		StepSize:      step,
		Seed:          seed,
	})
	res, err := opt.Optimize(ctx, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "calibration: best %s = %g after %d iterations, %d runs (%s)\n",
		recorder, objective.Value(res.BestScore), res.Iterations, res.Evaluations, res.Reason)
	for i, values := range res.BestValues {
		fmt.Fprintf(os.Stderr, "  variable %d: %v\n", i, values)
	}
	return nil
}

func printTable(results *models.RunResults) {
	fmt.Printf("timesteps: %d  scenarios: %d\n\n", results.Timesteps, results.Scenarios)

	names := make([]string, 0, len(results.Recorders))
	for name := range results.Recorders {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDER\tAGGREGATE\tVALUE")
	for _, name := range names {
		rec := results.Recorders[name]
		fmt.Fprintf(w, "%s\t%s\t%g\n", name, rec.Aggregate, rec.AggregatedValue)
	}
	w.Flush()
}

func printJSON(results *models.RunResults) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "rescli: "+format+"\n", args...)
	os.Exit(1)
}
