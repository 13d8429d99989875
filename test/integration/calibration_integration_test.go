//go:build integration
// +build integration

package integration_test

import (
	"context"
	"math"
	"testing"

	"github.com/hydronet-sim/reservoir-core/internal/calibration"
	"github.com/hydronet-sim/reservoir-core/internal/engine"
	"github.com/hydronet-sim/reservoir-core/pkg/config"
)

// calibrationModelYAML declares its release rule as a bounded variable, so
// the optimizer is free to raise the per-band releases toward the inflow.
const calibrationModelYAML = `
timestepper:
  start: 2020-01-01
  end: 2020-01-03
nodes:
  - name: source
    type: catchment
    inflow: 10.0
  - name: reservoir
    type: storage
    max_volume: 100.0
    initial_volume: 50.0
  - name: farm
    type: demand
    max_flow: release_rule
edges:
  - from: source
    to: reservoir
  - from: reservoir
    to: farm
parameters:
  release_rule:
    type: controlcurve
    storage_node: reservoir
    control_curves: [0.5]
    values: [4.0, 2.0]
    lower_bounds: [0.0, 0.0]
    upper_bounds: [8.0, 8.0]
    is_variable: true
recorders:
  - name: delivered
    type: node_flow
    node: farm
    aggregate: total
`

func TestIntegration_Calibration_RaisesDeliveries(t *testing.T) {
	cfg, err := config.ParseModelYAMLString(calibrationModelYAML)
	if err != nil {
		t.Fatalf("parsing model: %v", err)
	}
	m, err := engine.Build(cfg)
	if err != nil {
		t.Fatalf("building model: %v", err)
	}

	// The starting rule delivers 4 per day over 3 days.
	baseline, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	if got := baseline.Recorders["delivered"].AggregatedValue; math.Abs(got-12) > 1e-9 {
		t.Fatalf("expected baseline deliveries 12, got %g", got)
	}

	objective, err := calibration.NewObjective("delivered", calibration.Maximize)
	if err != nil {
		t.Fatalf("building objective: %v", err)
	}
	opt := calibration.NewOptimizer(objective, calibration.Options{
		MaxIterations: 30,
		Seed:          7,
	})

	res, err := opt.Optimize(context.Background(), m)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	best := objective.Value(res.BestScore)
	if best <= 12 {
		t.Errorf("expected calibration to improve on baseline 12, got %g", best)
	}
	if best > 24+1e-9 {
		t.Errorf("deliveries cannot exceed the bounded maximum 24, got %g", best)
	}
	if res.Evaluations <= res.Iterations {
		t.Errorf("expected several evaluations per iteration, got %d over %d iterations",
			res.Evaluations, res.Iterations)
	}
	for _, values := range res.BestValues {
		for k, v := range values {
			if v < -1e-9 || v > 8+1e-9 {
				t.Errorf("coordinate %d outside bounds [0, 8]: %g", k, v)
			}
		}
	}

	// The model holds the best values, so a fresh run reproduces the score.
	final, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("final run: %v", err)
	}
	if got := final.Recorders["delivered"].AggregatedValue; math.Abs(got-best) > 1e-9 {
		t.Errorf("expected final run to reproduce best score %g, got %g", best, got)
	}
}
